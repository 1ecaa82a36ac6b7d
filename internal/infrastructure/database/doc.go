// Package database provides the SQLite structured store for FarmCab Core.
//
// This package manages:
//   - Opening the database with WAL mode and busy-timeout pragmas
//   - Embedded SQL migrations (see the migrations package)
//   - Health checks and connection lifecycle
//
// The structured store is the source of truth for "intent": device records,
// schedules, areas, sensors, and thresholds. Live "actual" state lives in the
// realtime store (see internal/rtdb) and is only mirrored here.
package database
