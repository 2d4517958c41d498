package hub

// Cache key layout for the "states" and "services" namespaces.
//
// Per-entity records live under StateKey. Aggregates (the full state list,
// per-domain group listings) live under dedicated keys; they cannot be
// patched incrementally and are invalidated wholesale whenever a member
// entity changes.
const (
	// AllStatesKey is the aggregate key holding the full entity state list.
	AllStatesKey = "all_states"

	// ServicesKey holds the normalized service catalog.
	ServicesKey = "services"

	// ConfigKey holds the hub configuration snapshot.
	ConfigKey = "config"

	stateKeyPrefix = "state:"
	groupKeyPrefix = "group:"
)

// StateKey returns the cache key for one entity's state record.
func StateKey(entityID string) string {
	return stateKeyPrefix + entityID
}

// GroupKeyPrefix returns the key prefix under which per-domain group
// aggregates are cached (e.g., "group:light" for "group:light:upstairs").
func GroupKeyPrefix(domain string) string {
	return groupKeyPrefix + domain
}

// GroupKey returns the cache key for a group listing within a domain.
func GroupKey(domain, groupID string) string {
	return groupKeyPrefix + domain + ":" + groupID
}
