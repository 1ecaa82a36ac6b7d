package device

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceNotFound is returned when a device does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with a duplicate ID.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when a device fails structural validation.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidControlMethod is returned for control methods other than
	// Manual or Auto.
	ErrInvalidControlMethod = errors.New("device: invalid control method")

	// ErrInvalidStatus is returned for statuses other than active or inactive.
	ErrInvalidStatus = errors.New("device: invalid status")
)
