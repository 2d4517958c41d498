package hub

import "strings"

// EntityState is the normalized record for one entity's state.
//
// The same shape is produced by the REST read path and carried inside
// state-changed events on the WebSocket feed, so the synchronizer can
// overwrite a cached record transparently. Records are always written
// whole, never patched.
type EntityState struct {
	// EntityID is the entity identifier in domain.object_id form
	// (e.g., "light.kitchen").
	EntityID string `json:"entity_id"`

	// State is the entity's current state value (e.g., "on", "21.5").
	State string `json:"state"`

	// Attributes holds entity-specific metadata (brightness, unit, ...).
	Attributes map[string]any `json:"attributes,omitempty"`

	// LastChanged and LastUpdated are hub-reported timestamps, passed
	// through unmodified.
	LastChanged string `json:"last_changed,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`

	// Context carries the hub's event context, if present.
	Context map[string]any `json:"context,omitempty"`
}

// Domain returns the entity's domain (the part before the first dot).
// Returns the full ID if it contains no dot.
func (s *EntityState) Domain() string {
	return Domain(s.EntityID)
}

// ServiceCatalog maps domain -> service name -> service description.
// The hub may report services as either a map or a list of per-domain
// records; the client normalizes both into this shape.
type ServiceCatalog map[string]map[string]any

// Info is the hub's configuration snapshot as reported by /api/config.
type Info struct {
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Elevation    int            `json:"elevation"`
	UnitSystem   map[string]any `json:"unit_system,omitempty"`
	LocationName string         `json:"location_name"`
	TimeZone     string         `json:"time_zone"`
	Components   []string       `json:"components,omitempty"`
	Version      string         `json:"version"`
	State        string         `json:"state,omitempty"`
}

// Domain returns the domain portion of an entity ID ("light.kitchen" -> "light").
// Returns the full ID if it contains no separator.
func Domain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i >= 0 {
		return entityID[:i]
	}
	return entityID
}
