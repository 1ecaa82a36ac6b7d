package rtdb

import "fmt"

// Path builders for the containers/{containerId}/... hierarchy.
//
// Controller nodes live under a controllers/ segment; scheduler and sensor
// nodes sit directly under the container keyed by their own IDs.

// ControllerPath returns the node path for an output device's live status.
//
// Example: containers/container_04/controllers/pump_01
func ControllerPath(containerID, deviceID string) string {
	return fmt.Sprintf("containers/%s/controllers/%s", containerID, deviceID)
}

// NodePath returns the path for a node directly under a container.
// Used for scheduler nodes (schedule_pump_01) and sensor nodes (sensor_ec_01).
//
// Example: containers/container_04/schedule_pump_01
func NodePath(containerID, nodeID string) string {
	return fmt.Sprintf("containers/%s/%s", containerID, nodeID)
}
