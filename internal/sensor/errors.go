package sensor

import "errors"

// Domain-specific errors for sensor operations.
var (
	// ErrSensorNotFound is returned when a sensor does not exist.
	ErrSensorNotFound = errors.New("sensor: not found")

	// ErrSensorExists is returned when creating a sensor with a duplicate ID.
	ErrSensorExists = errors.New("sensor: already exists")

	// ErrThresholdNotFound is returned when a sensor has no threshold.
	ErrThresholdNotFound = errors.New("sensor: threshold not found")

	// ErrInvalidThreshold is returned when min is not below max.
	ErrInvalidThreshold = errors.New("sensor: invalid threshold (min must be below max)")
)
