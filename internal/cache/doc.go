// Package cache provides the namespaced TTL cache store at the heart of
// the bridge.
//
// The store holds independent namespaces ("states", "services", "config"),
// each with its own time-to-live and entry bound. Namespaces are declared
// once at construction; looking up an undeclared namespace is an error,
// never an implicit create.
//
// An entry is visible to readers only while its TTL has not elapsed.
// Expired entries are indistinguishable from missing ones and are purged
// lazily on read. When a namespace exceeds its entry bound, the oldest
// inserted entries are evicted first, independent of TTL.
//
// The store is the single shared mutable resource between the HTTP read
// path (cache-miss population) and the event-stream synchronizer (direct
// entry mutation), so every operation is safe for concurrent use.
//
// # Usage
//
//	store, err := cache.New([]cache.Namespace{
//	    {Name: cache.NamespaceStates, TTL: 5 * time.Minute, MaxEntries: 1000},
//	})
//	store.Set(cache.NamespaceStates, "state:light.kitchen", record)
//	value, ok, err := store.Get(cache.NamespaceStates, "state:light.kitchen")
package cache
