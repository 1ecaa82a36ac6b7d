// Package logging provides structured logging for FarmCab Core.
//
// Built on the standard library's log/slog, it adds:
//   - Configuration-driven format (JSON/text), level, and destination
//   - Default service/version attributes on every record
//   - A Default() bootstrap logger for use before config is loaded
//
// Components should accept a narrow Logger interface rather than this
// concrete type so tests can substitute a no-op implementation.
package logging
