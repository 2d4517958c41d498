package eventstream

import (
	"strings"

	"github.com/nerrad567/habridge/internal/hub"
	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// Filter decides which entities the synchronizer processes. It lets a
// deployment scope the cache to the entities its clients actually read
// instead of tracking the whole hub.
//
// Exclusion wins over inclusion: an entity in an excluded domain is
// dropped even when it matches an allowed prefix. With filtering
// disabled every entity passes.
type Filter struct {
	enabled         bool
	entityPrefixes  []string
	excludedDomains map[string]struct{}
}

// NewFilter builds a filter from configuration.
func NewFilter(cfg config.FilterConfig) *Filter {
	excluded := make(map[string]struct{}, len(cfg.ExcludedDomains))
	for _, domain := range cfg.ExcludedDomains {
		excluded[domain] = struct{}{}
	}
	return &Filter{
		enabled:         cfg.Enabled,
		entityPrefixes:  cfg.EntityPrefixes,
		excludedDomains: excluded,
	}
}

// ShouldProcess reports whether events for the given entity are handled.
//
// Parameters:
//   - entityID: Entity identifier in domain.object_id form
//
// Returns:
//   - bool: true if the entity passes the filter policy
func (f *Filter) ShouldProcess(entityID string) bool {
	if !f.enabled {
		return true
	}

	if _, excluded := f.excludedDomains[hub.Domain(entityID)]; excluded {
		return false
	}

	// An empty prefix list means "all domains except the excluded ones".
	if len(f.entityPrefixes) == 0 {
		return true
	}
	for _, prefix := range f.entityPrefixes {
		if strings.HasPrefix(entityID, prefix) {
			return true
		}
	}
	return false
}
