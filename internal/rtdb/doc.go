// Package rtdb provides the realtime key-path store for FarmCab Core.
//
// The realtime store holds live "actual" cabinet state: controller on/off
// status, scheduler windows as seen by the firmware, and raw sensor
// readings. It is authoritative for actual state; the structured store
// (SQLite) is authoritative for operator intent and only mirrors status.
//
// Nodes are addressed by slash-separated key paths:
//
//	containers/{containerId}/controllers/{deviceId}   -> {"status": "active"|"inactive"}
//	containers/{containerId}/{schedulerId}            -> {"startTime", "endTime", "date"}
//	containers/{containerId}/{sensorId}               -> {"value", "status", ...}
//
// Two implementations are provided:
//   - MQTTStore maps paths 1:1 onto retained MQTT topics
//   - MemoryStore is an in-process equivalent for tests
package rtdb
