// Package telemetry records live sensor readings into InfluxDB.
//
// The recorder is optional and config-gated; when telemetry is disabled
// the rest of the system runs without history.
package telemetry
