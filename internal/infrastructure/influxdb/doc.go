// Package influxdb wraps the InfluxDB v2 client for sensor telemetry.
//
// The telemetry recorder writes sensor readings and device state events as
// non-blocking batched points. The whole integration is optional: when
// disabled in configuration, Connect returns ErrDisabled and the rest of
// the system runs without history.
package influxdb
