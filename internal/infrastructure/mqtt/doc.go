// Package mqtt provides MQTT client connectivity for Hass Core.
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
// Hass Core uses MQTT as the transport between devices and the entity
// layer. Devices publish state to arbitrary topics declared in entity
// configuration; the entity layer subscribes through this client and
// publishes commands back the same way.
//
//	Devices ↔ MQTT Broker ↔ Hass Core entities
//
// The entity package consumes this client through its Transport interface,
// so tests can substitute a fake without a broker.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("bedroom/fan/preset/state", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish("bedroom/fan/preset/set", []byte("medium"), 1, false)
package mqtt
