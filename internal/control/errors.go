package control

import "errors"

// Domain-specific errors for control operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceBusy is returned when another control operation on the same
	// device is still in flight. Callers should surface this to the
	// operator rather than queueing.
	ErrDeviceBusy = errors.New("control: device busy")
)
