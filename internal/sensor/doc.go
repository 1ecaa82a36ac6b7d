// Package sensor manages environmental sensor metadata and alert thresholds.
//
// Readings themselves flow through the realtime store and, optionally, into
// InfluxDB via the telemetry recorder. This package owns the structured
// side: which sensors exist, where they sit, and the bands outside which a
// reading is flagged.
package sensor
