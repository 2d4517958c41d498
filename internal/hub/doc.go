// Package hub provides the REST client for the upstream automation hub
// and the data shapes shared between the read path and the event-stream
// synchronizer.
//
// The client normalizes hub responses into EntityState records and a
// ServiceCatalog at the boundary, so internal code never branches on raw
// untyped payloads. The same EntityState shape is carried inside
// state-changed events, which is what allows the synchronizer to replace
// cache entries directly instead of invalidating them.
//
// The package also defines the cache key layout ("state:<entity_id>",
// "all_states", "group:<domain>...") used by both the API handlers and
// the synchronizer.
package hub
