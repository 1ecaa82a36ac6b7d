package schedule

import "errors"

// Domain-specific errors for schedule operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrScheduleNotFound is returned when a schedule record does not exist.
	ErrScheduleNotFound = errors.New("schedule: not found")

	// ErrInvalidWindow is returned when a window fails validation
	// (unparseable times or end not after start).
	ErrInvalidWindow = errors.New("schedule: invalid window")

	// ErrSchedulerNodeMissing is returned when the realtime store has no
	// scheduler node for the device. The sync path never creates scheduler
	// nodes; provisioning them is the firmware's job.
	ErrSchedulerNodeMissing = errors.New("schedule: scheduler node missing in realtime store")
)
