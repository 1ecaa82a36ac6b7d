// Package mqtt provides MQTT client connectivity for FarmCab Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// FarmCab uses MQTT retained topics as its realtime key-path store. The
// cabinet firmware publishes live device and sensor state under
// containers/{containerId}/..., and the core patches controller status and
// scheduler windows back onto the same hierarchy. The rtdb package builds
// its Store abstraction on top of this client.
//
//	Cabinet firmware ↔ MQTT Broker ↔ FarmCab Core ↔ Dashboard clients
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Watch every node in this cabinet
//	err = client.Subscribe(mqtt.Topics{}.ContainerWildcard("container_04"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Patch a controller's live status (retained so late joiners see it)
//	topic := mqtt.Topics{}.Controller("container_04", "pump_01")
//	client.PublishRetained(topic, []byte(`{"status":"active"}`))
package mqtt
