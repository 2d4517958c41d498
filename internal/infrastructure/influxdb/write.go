package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/habridge/internal/hub"
)

// WriteEntityState records one entity state change as a point in the
// entity_state measurement. Numeric states are written as a float value;
// non-numeric states (on, off, open) are written as a string field so
// dashboards can still plot transitions.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - entityID: Entity identifier in domain.object_id form
//   - state: New state value as reported by the hub
func (c *Client) WriteEntityState(entityID, state string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"entity_id": entityID,
		"domain":    hub.Domain(entityID),
	}

	fields := map[string]interface{}{}
	if value, err := strconv.ParseFloat(state, 64); err == nil {
		fields["value"] = value
	} else {
		fields["state"] = state
	}

	c.writeAPI.WritePoint(write.NewPoint("entity_state", tags, fields, time.Now()))
}

// WritePoint writes a custom point for measurements that don't fit the
// entity state helper.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
