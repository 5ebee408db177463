// Package influxdb provides optional time-series recording of entity state
// transitions for Hass Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched writes of state changes
//   - Async write error reporting via callback
//   - Health monitoring
//
// # Architecture
//
// The entity layer reports every genuine state change through its Notifier
// fan-out; one of the notifiers forwards the change here. Recording is
// best-effort: a disconnected client drops points rather than blocking the
// message-handling path.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    log.Printf("influxdb write error: %v", err)
//	})
//
//	client.WriteStateChange("bedroom-fan-preset", "select", "medium")
//
// InfluxDB is disabled by default; Connect returns ErrDisabled when the
// config has enabled: false.
package influxdb
