package device

import (
	"fmt"
	"time"
)

// ControlMethod determines who drives an output device.
type ControlMethod string

// Control methods.
const (
	// ControlManual means the operator drives the device directly.
	ControlManual ControlMethod = "Manual"

	// ControlAuto means the firmware drives the device from its schedule.
	ControlAuto ControlMethod = "Auto"
)

// IsValid checks if the control method is recognised.
func (m ControlMethod) IsValid() bool {
	return m == ControlManual || m == ControlAuto
}

// Status is the mirrored on/off state of an output device.
//
// The realtime store is authoritative for actual state; this value is the
// structured store's mirror of the last state the core wrote or observed.
type Status string

// Device statuses.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid checks if the status is recognised.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// StatusFromBool converts an operator on/off request to a Status.
func StatusFromBool(on bool) Status {
	if on {
		return StatusActive
	}
	return StatusInactive
}

// Invert returns the opposite status.
func (s Status) Invert() Status {
	if s == StatusActive {
		return StatusInactive
	}
	return StatusActive
}

// Type categorises output devices.
type Type string

// Device types.
const (
	TypePump   Type = "pump"
	TypeLight  Type = "light"
	TypeFan    Type = "fan"
	TypeMister Type = "mister"
)

// Device is a controllable output device in a cabinet.
//
// The structured store row is the source of truth for intent (control
// method, scheduler binding) and mirrors the live status. SchedulerID is
// nil until a schedule has been synced for the device.
type Device struct {
	ID          string  `json:"id"`
	ContainerID string  `json:"containerId"`
	AreaID      *string `json:"areaId,omitempty"`
	Name        string  `json:"name"`
	Type        Type    `json:"type"`

	ControlMethod ControlMethod `json:"controlMethod"`
	Status        Status        `json:"status"`
	SchedulerID   *string       `json:"schedulerId,omitempty"`

	LastActivatedAt   *time.Time `json:"lastActivatedAt,omitempty"`
	LastDeactivatedAt *time.Time `json:"lastDeactivatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SchedulerNodeID returns the device's scheduler node ID, deriving the
// conventional schedule_<deviceID> when none has been assigned yet.
func (d *Device) SchedulerNodeID() string {
	if d.SchedulerID != nil && *d.SchedulerID != "" {
		return *d.SchedulerID
	}
	return "schedule_" + d.ID
}

// Validate checks the device for structural errors.
func (d *Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if d.ContainerID == "" {
		return fmt.Errorf("%w: containerId is required", ErrInvalidDevice)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if !d.ControlMethod.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidControlMethod, d.ControlMethod)
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	return nil
}

// DeepCopy returns an independent copy of the device.
// Pointer fields are duplicated so callers can mutate freely.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	out := *d
	if d.AreaID != nil {
		v := *d.AreaID
		out.AreaID = &v
	}
	if d.SchedulerID != nil {
		v := *d.SchedulerID
		out.SchedulerID = &v
	}
	if d.LastActivatedAt != nil {
		t := *d.LastActivatedAt
		out.LastActivatedAt = &t
	}
	if d.LastDeactivatedAt != nil {
		t := *d.LastDeactivatedAt
		out.LastDeactivatedAt = &t
	}
	return &out
}
