package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Default namespace names used by the bridge. The store itself is agnostic
// to what a namespace holds; these constants only keep callers consistent.
const (
	NamespaceStates   = "states"
	NamespaceServices = "services"
	NamespaceConfig   = "config"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Namespace declares one cache partition with its expiry and size policy.
type Namespace struct {
	// Name identifies the namespace (e.g., "states").
	Name string

	// TTL is the default time-to-live for entries in this namespace.
	TTL time.Duration

	// MaxEntries bounds the namespace size. When a Set would exceed it,
	// the oldest inserted entry is evicted first, independent of TTL.
	MaxEntries int
}

// entry is a single cached value with its expiry bookkeeping.
type entry struct {
	key        string
	value      any
	insertedAt time.Time
	ttl        time.Duration
	elem       *list.Element // position in the namespace insertion order
}

// partition holds the entries and insertion order for one namespace.
type partition struct {
	cfg     Namespace
	entries map[string]*entry
	order   *list.List // front = oldest inserted

	// counters for Stats; mutated under the store lock.
	hits      uint64
	misses    uint64
	evictions uint64
}

// Store is a thread-safe, multi-namespace TTL cache.
//
// Namespaces are statically declared via New; every operation on an
// undeclared namespace returns ErrUnknownNamespace. Entries expire after
// their TTL and are lazily purged on read.
//
// All public methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	logger     Logger

	// now is the clock used for insertion and expiry checks.
	// Overridable in tests for deterministic TTL behaviour.
	now func() time.Time
}

// Stats describes the current state of one namespace.
type Stats struct {
	Size       int           `json:"size"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
	Hits       uint64        `json:"hits"`
	Misses     uint64        `json:"misses"`
	Evictions  uint64        `json:"evictions"`
}

// New creates a Store with the given namespace declarations.
//
// Parameters:
//   - namespaces: Partitions to declare; at least one is required
//
// Returns:
//   - *Store: Store ready for use
//   - error: If a declaration is invalid or duplicated
func New(namespaces []Namespace) (*Store, error) {
	if len(namespaces) == 0 {
		return nil, fmt.Errorf("%w: at least one namespace is required", ErrInvalidNamespace)
	}

	s := &Store{
		partitions: make(map[string]*partition, len(namespaces)),
		logger:     noopLogger{},
		now:        time.Now,
	}

	for _, ns := range namespaces {
		if ns.Name == "" {
			return nil, fmt.Errorf("%w: namespace name cannot be empty", ErrInvalidNamespace)
		}
		if ns.TTL <= 0 {
			return nil, fmt.Errorf("%w: %q ttl must be positive", ErrInvalidNamespace, ns.Name)
		}
		if ns.MaxEntries <= 0 {
			return nil, fmt.Errorf("%w: %q max entries must be positive", ErrInvalidNamespace, ns.Name)
		}
		if _, exists := s.partitions[ns.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNamespace, ns.Name)
		}
		s.partitions[ns.Name] = &partition{
			cfg:     ns,
			entries: make(map[string]*entry),
			order:   list.New(),
		}
	}

	return s, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Get retrieves a value by key.
//
// A missing key is not an error: the second return value reports presence.
// Expired entries are indistinguishable from missing ones and are purged
// on the way out.
//
// Parameters:
//   - namespace: Declared namespace name
//   - key: Entry key
//
// Returns:
//   - any: The stored value, or nil if absent
//   - bool: true if a live entry was found
//   - error: ErrUnknownNamespace if the namespace was not declared
func (s *Store) Get(namespace, key string) (any, bool, error) {
	s.mu.RLock()
	p, ok := s.partitions[namespace]
	if !ok {
		s.mu.RUnlock()
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	e, exists := p.entries[key]
	if exists && !s.expired(e) {
		value := e.value
		s.mu.RUnlock()

		s.mu.Lock()
		p.hits++
		s.mu.Unlock()

		s.logger.Debug("cache hit", "namespace", namespace, "key", key)
		return value, true, nil
	}
	s.mu.RUnlock()

	// Miss, possibly with an expired entry to purge.
	s.mu.Lock()
	p.misses++
	if e, stale := p.entries[key]; stale && s.expired(e) {
		s.removeLocked(p, e)
	}
	s.mu.Unlock()

	s.logger.Debug("cache miss", "namespace", namespace, "key", key)
	return nil, false, nil
}

// Set stores a value under the namespace's default TTL.
//
// Any existing entry is unconditionally replaced and its insertion time
// reset. This is the operation the event-stream synchronizer uses for the
// cache-update fast path, so it must stay safe to call concurrently with Get.
//
// Parameters:
//   - namespace: Declared namespace name
//   - key: Entry key
//   - value: Opaque payload owned by the cache after the call
//
// Returns:
//   - error: ErrUnknownNamespace or ErrEmptyKey
func (s *Store) Set(namespace, key string, value any) error {
	return s.setWithTTL(namespace, key, value, 0)
}

// SetWithTTL stores a value with a per-entry TTL override.
// A non-positive ttl falls back to the namespace default.
func (s *Store) SetWithTTL(namespace, key string, value any, ttl time.Duration) error {
	return s.setWithTTL(namespace, key, value, ttl)
}

// Warm pre-populates an entry at startup so the first read after boot is
// not a forced cache miss. It is Set under a name that states intent.
func (s *Store) Warm(namespace, key string, value any) error {
	return s.setWithTTL(namespace, key, value, 0)
}

func (s *Store) setWithTTL(namespace, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[namespace]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	if ttl <= 0 {
		ttl = p.cfg.TTL
	}

	if existing, exists := p.entries[key]; exists {
		// Replacement resets both value and insertion position.
		p.order.Remove(existing.elem)
	}

	e := &entry{
		key:        key,
		value:      value,
		insertedAt: s.now(),
		ttl:        ttl,
	}
	e.elem = p.order.PushBack(e)
	p.entries[key] = e

	// Insertion-order eviction keeps the namespace within its bound.
	for len(p.entries) > p.cfg.MaxEntries {
		oldest := p.order.Front()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		s.removeLocked(p, evicted)
		p.evictions++
		s.logger.Debug("cache entry evicted",
			"namespace", namespace,
			"key", evicted.key,
		)
	}

	return nil
}

// Delete removes an entry by key. Deleting an absent key is a no-op.
//
// Returns:
//   - error: ErrUnknownNamespace if the namespace was not declared
func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[namespace]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	if e, exists := p.entries[key]; exists {
		s.removeLocked(p, e)
		s.logger.Debug("cache entry deleted", "namespace", namespace, "key", key)
	}

	return nil
}

// DeleteMatching removes every entry whose key satisfies the predicate.
//
// Aggregate caches (e.g., per-domain group listings) cannot be patched
// incrementally; callers use this to invalidate them wholesale whenever a
// member entity changes.
//
// Parameters:
//   - namespace: Declared namespace name
//   - match: Predicate evaluated against each key
//
// Returns:
//   - int: Number of entries removed
//   - error: ErrUnknownNamespace if the namespace was not declared
func (s *Store) DeleteMatching(namespace string, match func(key string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[namespace]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	removed := 0
	for key, e := range p.entries {
		if match(key) {
			s.removeLocked(p, e)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug("cache entries invalidated",
			"namespace", namespace,
			"count", removed,
		)
	}
	return removed, nil
}

// Clear removes all entries from a namespace.
//
// Returns:
//   - error: ErrUnknownNamespace if the namespace was not declared
func (s *Store) Clear(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[namespace]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	p.entries = make(map[string]*entry)
	p.order.Init()
	s.logger.Info("cache namespace cleared", "namespace", namespace)
	return nil
}

// Len returns the number of live entries in a namespace.
// Expired-but-unpurged entries are not counted.
func (s *Store) Len(namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[namespace]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	count := 0
	for _, e := range p.entries {
		if !s.expired(e) {
			count++
		}
	}
	return count, nil
}

// Stats returns per-namespace statistics for observability endpoints.
func (s *Store) Stats() map[string]Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]Stats, len(s.partitions))
	for name, p := range s.partitions {
		stats[name] = Stats{
			Size:       len(p.entries),
			MaxEntries: p.cfg.MaxEntries,
			TTL:        p.cfg.TTL,
			Hits:       p.hits,
			Misses:     p.misses,
			Evictions:  p.evictions,
		}
	}
	return stats
}

// PurgeExpired eagerly removes expired entries from all namespaces and
// returns the number removed. The store works correctly with lazy purging
// alone; this keeps memory tight for namespaces that are rarely read.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, p := range s.partitions {
		for _, e := range p.entries {
			if s.expired(e) {
				s.removeLocked(p, e)
				removed++
			}
		}
	}
	return removed
}

// expired reports whether the entry's TTL has elapsed.
func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.insertedAt) >= e.ttl
}

// removeLocked unlinks an entry from its partition. Caller holds the write lock.
func (s *Store) removeLocked(p *partition, e *entry) {
	delete(p.entries, e.key)
	p.order.Remove(e.elem)
}
