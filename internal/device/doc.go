// Package device manages output devices (pumps, lights, fans, misters).
//
// A device row in the structured store carries operator intent: what the
// device is, which area it belongs to, whether it is driven manually or by
// its schedule, and which scheduler node feeds it. The status column
// mirrors the live state held in the realtime store and is updated after
// every successful realtime patch.
//
// The Registry wraps the Repository with a write-through in-memory cache,
// populated at startup, so the live view and control paths can resolve
// device metadata without touching SQLite.
package device
