// Package influxdb records entity state telemetry in InfluxDB v2.
//
// State changes from the event feed become points in the entity_state
// measurement, tagged by entity and domain. Writes go through the
// non-blocking batched write API; failures surface via an error callback
// rather than back-pressure on the feed.
package influxdb
