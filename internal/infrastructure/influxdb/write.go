package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateChange records an entity state transition.
//
// This is the primary method for recording entity history. The write is
// non-blocking; points are batched and sent asynchronously, and a client
// that is not connected silently drops the point (history is best-effort).
//
// Parameters:
//   - entityID: Unique entity identifier (e.g., "bedroom-fan-preset")
//   - kind: Entity kind tag (e.g., "select", "update", "lawn_mower")
//   - state: The new native state value
//
// Example:
//
//	client.WriteStateChange("bedroom-fan-preset", "select", "medium")
func (c *Client) WriteStateChange(entityID, kind, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"entity_id": entityID,
			"kind":      kind,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteVersionChange records an update entity's version pair.
//
// Used for tracking firmware/software rollouts over time. Installed and
// latest are written together so dashboards can derive "update pending"
// windows from a single measurement.
//
// Parameters:
//   - entityID: Unique entity identifier
//   - installed: Currently installed version (may be empty if unknown)
//   - latest: Latest advertised version (may be empty if unknown)
func (c *Client) WriteVersionChange(entityID, installed, latest string) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	if installed != "" {
		fields["installed_version"] = installed
	}
	if latest != "" {
		fields["latest_version"] = latest
	}
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"entity_version",
		map[string]string{
			"entity_id": entityID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
