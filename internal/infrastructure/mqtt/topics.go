package mqtt

import "fmt"

// Topic prefixes for the FarmCab realtime store.
//
// Realtime store topics mirror the key-path hierarchy used by the cabinet
// firmware: containers/{containerId}/... with every node published retained
// so new subscribers immediately see current state.
const (
	// TopicPrefixContainers is the base for all realtime store topics.
	TopicPrefixContainers = "containers"

	// TopicPrefixSystem is the base for core lifecycle topics.
	TopicPrefixSystem = "farmcab/system"
)

// Topics provides builders for FarmCab MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Controller("container_04", "pump_01")
//	// Returns: "containers/container_04/controllers/pump_01"
type Topics struct{}

// Controller returns the topic carrying an output device's live status node.
//
// Example: containers/container_04/controllers/pump_01
func (Topics) Controller(containerID, deviceID string) string {
	return fmt.Sprintf("%s/%s/controllers/%s", TopicPrefixContainers, containerID, deviceID)
}

// ContainerNode returns the topic for a node directly under a container.
// Scheduler and sensor nodes live here (e.g. schedule_pump_01, sensor_ec_01).
//
// Example: containers/container_04/schedule_pump_01
func (Topics) ContainerNode(containerID, nodeID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixContainers, containerID, nodeID)
}

// ContainerWildcard returns a pattern matching every node in a container.
//
// Example: containers/container_04/#
func (Topics) ContainerWildcard(containerID string) string {
	return fmt.Sprintf("%s/%s/#", TopicPrefixContainers, containerID)
}

// AllControllers returns a pattern matching controller nodes in any container.
//
// Example: containers/+/controllers/+
func (Topics) AllControllers() string {
	return fmt.Sprintf("%s/+/controllers/+", TopicPrefixContainers)
}

// SystemStatus returns the topic for core online/offline status.
// Used for the LWT and graceful shutdown announcements.
//
// Example: farmcab/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
