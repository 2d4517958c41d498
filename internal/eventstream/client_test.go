package eventstream

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/habridge/internal/cache"
	"github.com/nerrad567/habridge/internal/hub"
	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// ============================================================================
// Test fakes
// ============================================================================

// fakeCache records cache operations for assertion. Preloaded keys drive
// the DeleteMatching predicate so tests can check which keys would go.
type fakeCache struct {
	mu      sync.Mutex
	keys    []string
	setErr  error
	sets    map[string]any // "ns/key" -> value
	deletes []string       // "ns/key"
	matched []string       // keys removed by DeleteMatching
	cleared []string       // namespaces
}

func newFakeCache(keys ...string) *fakeCache {
	return &fakeCache{keys: keys, sets: make(map[string]any)}
}

func (f *fakeCache) Set(namespace, key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets[namespace+"/"+key] = value
	return nil
}

func (f *fakeCache) Delete(namespace, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, namespace+"/"+key)
	return nil
}

func (f *fakeCache) DeleteMatching(namespace string, match func(key string) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, key := range f.keys {
		if match(key) {
			f.matched = append(f.matched, key)
			count++
		}
	}
	return count, nil
}

func (f *fakeCache) Clear(namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, namespace)
	return nil
}

func (f *fakeCache) deleted(entry string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deletes {
		if d == entry {
			return true
		}
	}
	return false
}

func (f *fakeCache) setValue(entry string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.sets[entry]
	return v, ok
}

// fakeMetrics records observability signals.
type fakeMetrics struct {
	mu        sync.Mutex
	actions   []string
	connected []bool
}

func (f *fakeMetrics) FeedConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, connected)
}

func (f *fakeMetrics) CacheAction(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeMetrics) lastAction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.actions) == 0 {
		return ""
	}
	return f.actions[len(f.actions)-1]
}

// newHandlerClient builds a client wired for handler tests only; no
// connection is involved.
func newHandlerClient(fc *fakeCache, updateFromEvents bool, filter config.FilterConfig) (*Client, *fakeMetrics) {
	fm := &fakeMetrics{}
	return &Client{
		updateFromEvents: updateFromEvents,
		cache:            fc,
		filter:           NewFilter(filter),
		logger:           noopLogger{},
		metrics:          fm,
	}, fm
}

// ============================================================================
// Filter
// ============================================================================

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.FilterConfig
		entityID string
		want     bool
	}{
		{
			name:     "disabled passes everything",
			cfg:      config.FilterConfig{Enabled: false, ExcludedDomains: []string{"light"}},
			entityID: "light.kitchen",
			want:     true,
		},
		{
			name:     "empty prefixes pass all domains",
			cfg:      config.FilterConfig{Enabled: true},
			entityID: "sensor.humidity",
			want:     true,
		},
		{
			name:     "excluded domain dropped",
			cfg:      config.FilterConfig{Enabled: true, ExcludedDomains: []string{"camera"}},
			entityID: "camera.front_door",
			want:     false,
		},
		{
			name: "exclusion wins over matching prefix",
			cfg: config.FilterConfig{
				Enabled:         true,
				EntityPrefixes:  []string{"camera."},
				ExcludedDomains: []string{"camera"},
			},
			entityID: "camera.front_door",
			want:     false,
		},
		{
			name:     "prefix allowlist passes match",
			cfg:      config.FilterConfig{Enabled: true, EntityPrefixes: []string{"light.", "sensor.temp"}},
			entityID: "sensor.temp_outdoor",
			want:     true,
		},
		{
			name:     "prefix allowlist drops non-match",
			cfg:      config.FilterConfig{Enabled: true, EntityPrefixes: []string{"light."}},
			entityID: "switch.garage",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewFilter(tt.cfg).ShouldProcess(tt.entityID); got != tt.want {
				t.Errorf("ShouldProcess(%q) = %v, want %v", tt.entityID, got, tt.want)
			}
		})
	}
}

// ============================================================================
// Backoff
// ============================================================================

func TestBaseDelay(t *testing.T) {
	maxDelay := 300 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, maxDelay}, // 512s capped
		{20, maxDelay},
		{100, maxDelay}, // beyond shift guard
	}

	for _, tt := range tests {
		if got := baseDelay(tt.attempt, maxDelay); got != tt.want {
			t.Errorf("baseDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBaseDelay_Monotonic(t *testing.T) {
	maxDelay := 300 * time.Second
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		delay := baseDelay(attempt, maxDelay)
		if delay < prev {
			t.Fatalf("baseDelay(%d) = %v dropped below baseDelay(%d) = %v",
				attempt, delay, attempt-1, prev)
		}
		prev = delay
	}
}

func TestWithJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := 10 * time.Second
	ceiling := base + time.Duration(jitterFraction*float64(base))

	for i := 0; i < 100; i++ {
		got := withJitter(base, rng)
		if got < base || got >= ceiling {
			t.Fatalf("withJitter(%v) = %v, want in [%v, %v)", base, got, base, ceiling)
		}
	}
}

// ============================================================================
// URL derivation and state names
// ============================================================================

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		hubURL  string
		want    string
		wantErr bool
	}{
		{"http://hub.local:8123", "ws://hub.local:8123/api/websocket", false},
		{"https://hub.example.com", "wss://hub.example.com/api/websocket", false},
		{"ftp://hub.local", "", true},
	}

	for _, tt := range tests {
		got, err := websocketURL(tt.hubURL)
		if tt.wantErr {
			if err == nil {
				t.Errorf("websocketURL(%q) error = nil, want error", tt.hubURL)
			}
			continue
		}
		if err != nil {
			t.Errorf("websocketURL(%q) error = %v", tt.hubURL, err)
			continue
		}
		if got != tt.want {
			t.Errorf("websocketURL(%q) = %q, want %q", tt.hubURL, got, tt.want)
		}
	}
}

func TestConnStateString(t *testing.T) {
	states := map[ConnState]string{
		StateDisconnected:   "disconnected",
		StateConnecting:     "connecting",
		StateAwaitingAuth:   "awaiting_auth",
		StateAuthenticating: "authenticating",
		StateSubscribing:    "subscribing",
		StateStreaming:      "streaming",
		ConnState(99):       "unknown",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("ConnState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

// ============================================================================
// Event handling
// ============================================================================

const stateChangedEvent = `{
	"type": "event",
	"event": {
		"event_type": "state_changed",
		"data": {
			"entity_id": "light.kitchen",
			"old_state": {"entity_id": "light.kitchen", "state": "off"},
			"new_state": {"entity_id": "light.kitchen", "state": "on"}
		}
	}
}`

func TestHandleStateChanged_UpdateMode(t *testing.T) {
	fc := newFakeCache("group:light:upstairs", "group:switch:all", "state:light.kitchen")
	c, fm := newHandlerClient(fc, true, config.FilterConfig{})

	c.handleMessage([]byte(stateChangedEvent))

	value, ok := fc.setValue(cache.NamespaceStates + "/" + hub.StateKey("light.kitchen"))
	if !ok {
		t.Fatal("entity entry was not overwritten")
	}
	if state, ok := value.(*hub.EntityState); !ok || state.State != "on" {
		t.Errorf("cached value = %#v, want EntityState with state on", value)
	}

	if !fc.deleted(cache.NamespaceStates + "/" + hub.AllStatesKey) {
		t.Error("all-states snapshot was not invalidated")
	}
	if len(fc.matched) != 1 || fc.matched[0] != "group:light:upstairs" {
		t.Errorf("group invalidation matched %v, want [group:light:upstairs]", fc.matched)
	}
	if got := fm.lastAction(); got != ActionUpdate {
		t.Errorf("recorded action = %q, want %q", got, ActionUpdate)
	}
}

func TestHandleStateChanged_InvalidateMode(t *testing.T) {
	fc := newFakeCache()
	c, fm := newHandlerClient(fc, false, config.FilterConfig{})

	c.handleMessage([]byte(stateChangedEvent))

	if !fc.deleted(cache.NamespaceStates + "/" + hub.StateKey("light.kitchen")) {
		t.Error("entity entry was not invalidated")
	}
	if _, ok := fc.setValue(cache.NamespaceStates + "/" + hub.StateKey("light.kitchen")); ok {
		t.Error("entity entry was overwritten in invalidate mode")
	}
	if got := fm.lastAction(); got != ActionInvalidate {
		t.Errorf("recorded action = %q, want %q", got, ActionInvalidate)
	}
}

func TestHandleStateChanged_SetFailureFallsBackToInvalidate(t *testing.T) {
	fc := newFakeCache()
	fc.setErr = errors.New("namespace full")
	c, fm := newHandlerClient(fc, true, config.FilterConfig{})

	c.handleMessage([]byte(stateChangedEvent))

	if !fc.deleted(cache.NamespaceStates + "/" + hub.StateKey("light.kitchen")) {
		t.Error("failed update did not fall back to invalidation")
	}
	if got := fm.lastAction(); got != ActionInvalidate {
		t.Errorf("recorded action = %q, want %q", got, ActionInvalidate)
	}
}

func TestHandleStateChanged_Filtered(t *testing.T) {
	fc := newFakeCache("group:light:upstairs")
	c, fm := newHandlerClient(fc, true, config.FilterConfig{
		Enabled:         true,
		ExcludedDomains: []string{"light"},
	})

	c.handleMessage([]byte(stateChangedEvent))

	if len(fc.sets) != 0 || len(fc.deletes) != 0 || len(fc.matched) != 0 {
		t.Error("filtered event mutated the cache")
	}
	if got := fm.lastAction(); got != ActionDiscard {
		t.Errorf("recorded action = %q, want %q", got, ActionDiscard)
	}
}

func TestHandleStateChanged_IncompleteEvent(t *testing.T) {
	incomplete := []string{
		`{"type": "event", "event": {"event_type": "state_changed", "data": {}}}`,
		`{"type": "event", "event": {"event_type": "state_changed", "data": {"entity_id": "light.kitchen"}}}`,
		`{"type": "event"}`,
		`{not json`,
	}

	fc := newFakeCache()
	c, _ := newHandlerClient(fc, true, config.FilterConfig{})

	for _, raw := range incomplete {
		c.handleMessage([]byte(raw))
	}

	if len(fc.sets) != 0 || len(fc.deletes) != 0 || len(fc.cleared) != 0 {
		t.Error("incomplete events mutated the cache")
	}
}

func TestHandleServiceEvent(t *testing.T) {
	for _, topic := range []string{TopicServiceRegistered, TopicServiceRemoved} {
		t.Run(topic, func(t *testing.T) {
			fc := newFakeCache()
			c, fm := newHandlerClient(fc, true, config.FilterConfig{})

			c.handleMessage([]byte(`{
				"type": "event",
				"event": {
					"event_type": "` + topic + `",
					"data": {"domain": "light", "service": "flash"}
				}
			}`))

			if len(fc.cleared) != 1 || fc.cleared[0] != cache.NamespaceServices {
				t.Errorf("cleared namespaces = %v, want [%s]", fc.cleared, cache.NamespaceServices)
			}
			if got := fm.lastAction(); got != ActionInvalidate {
				t.Errorf("recorded action = %q, want %q", got, ActionInvalidate)
			}
		})
	}
}

func TestHandleStateChanged_RealStore(t *testing.T) {
	store, err := cache.New([]cache.Namespace{
		{Name: cache.NamespaceStates, TTL: time.Minute, MaxEntries: 100},
		{Name: cache.NamespaceServices, TTL: time.Minute, MaxEntries: 10},
	})
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}

	// Seed the store the way a warmed bridge looks: the aggregate
	// snapshot, a per-domain group aggregate, a stale entity entry, and
	// the service catalog.
	seed := []struct {
		key   string
		value any
	}{
		{hub.AllStatesKey, []hub.EntityState{{EntityID: "light.kitchen", State: "off"}}},
		{hub.GroupKeyPrefix("light") + ":all", []string{"light.kitchen"}},
		{hub.StateKey("light.kitchen"), &hub.EntityState{EntityID: "light.kitchen", State: "off"}},
	}
	for _, entry := range seed {
		if err := store.Set(cache.NamespaceStates, entry.key, entry.value); err != nil {
			t.Fatalf("seeding %s: %v", entry.key, err)
		}
	}
	if err := store.Set(cache.NamespaceServices, hub.ServicesKey, hub.ServiceCatalog{}); err != nil {
		t.Fatalf("seeding services: %v", err)
	}

	c := &Client{
		updateFromEvents: true,
		cache:            store,
		filter:           NewFilter(config.FilterConfig{}),
		logger:           noopLogger{},
		metrics:          noopMetrics{},
	}
	c.handleMessage([]byte(stateChangedEvent))

	// The event-carried record replaced the stale entity entry.
	value, ok, err := store.Get(cache.NamespaceStates, hub.StateKey("light.kitchen"))
	if err != nil || !ok {
		t.Fatalf("Get(entity) = (%v, %v), want a hit", ok, err)
	}
	state, valid := value.(*hub.EntityState)
	if !valid || state.State != "on" {
		t.Errorf("cached entity = %#v, want EntityState with state on", value)
	}

	// Both aggregates are gone; the next list read must refetch.
	if _, ok, _ := store.Get(cache.NamespaceStates, hub.AllStatesKey); ok {
		t.Error("all-states snapshot survived the state change")
	}
	if _, ok, _ := store.Get(cache.NamespaceStates, hub.GroupKeyPrefix("light")+":all"); ok {
		t.Error("group aggregate survived the state change")
	}

	// The services namespace is untouched by state events.
	if _, ok, _ := store.Get(cache.NamespaceServices, hub.ServicesKey); !ok {
		t.Error("service catalog was disturbed by a state change")
	}
}

func TestStateChangeCallback(t *testing.T) {
	fc := newFakeCache()
	c, _ := newHandlerClient(fc, true, config.FilterConfig{})

	var got StateChange
	c.SetOnStateChange(func(change StateChange) { got = change })

	c.handleMessage([]byte(stateChangedEvent))

	if got.EntityID != "light.kitchen" {
		t.Fatalf("callback EntityID = %q, want light.kitchen", got.EntityID)
	}
	if got.OldState == nil || got.OldState.State != "off" {
		t.Errorf("callback OldState = %#v, want state off", got.OldState)
	}
	if got.NewState == nil || got.NewState.State != "on" {
		t.Errorf("callback NewState = %#v, want state on", got.NewState)
	}
}

// ============================================================================
// Connection lifecycle
// ============================================================================

// feedServer runs a WebSocket endpoint that hands each connection to fn.
func feedServer(t *testing.T, fn func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrading connection: %v", err)
			return
		}
		defer conn.Close()
		fn(conn)
	}))
}

// serveHandshake plays the server side of the credential handshake and
// acknowledges the three topic subscriptions.
func serveHandshake(t *testing.T, conn *websocket.Conn) bool {
	t.Helper()

	if err := conn.WriteJSON(map[string]string{"type": "auth_required"}); err != nil {
		return false
	}

	var auth map[string]string
	if err := conn.ReadJSON(&auth); err != nil {
		return false
	}
	if auth["type"] != "auth" || auth["access_token"] != "feed-token" {
		t.Errorf("auth message = %v, want type auth with feed-token", auth)
		return false
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth_ok"}); err != nil {
		return false
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			return false
		}
		if sub["type"] != "subscribe_events" {
			t.Errorf("subscription message type = %v, want subscribe_events", sub["type"])
		}
		topic, _ := sub["event_type"].(string)
		seen[topic] = true
		conn.WriteJSON(map[string]any{"id": sub["id"], "type": "result", "success": true})
	}
	for _, topic := range []string{TopicStateChanged, TopicServiceRegistered, TopicServiceRemoved} {
		if !seen[topic] {
			t.Errorf("no subscription for topic %s", topic)
		}
	}
	return true
}

// newFeedClient builds a client against the given test server URL.
func newFeedClient(t *testing.T, serverURL string, fc *fakeCache) *Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.Hub.URL = serverURL
	cfg.Hub.Token = "feed-token"
	cfg.Cache.UpdateFromEvents = true
	cfg.EventStream.AuthTimeout = 2
	cfg.EventStream.Reconnect = config.ReconnectConfig{MaxAttempts: 2, MaxDelay: 1}

	c, err := New(cfg, fc)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestRunConnection_Streaming(t *testing.T) {
	received := make(chan struct{})
	server := feedServer(t, func(conn *websocket.Conn) {
		if !serveHandshake(t, conn) {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(stateChangedEvent))
		<-received
	})
	defer server.Close()

	fc := newFakeCache()
	c := newFeedClient(t, server.URL, fc)

	errCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { errCh <- c.runConnection(ctx) }()

	// Wait for the event to land in the cache.
	deadline := time.After(3 * time.Second)
	for {
		if _, ok := fc.setValue(cache.NamespaceStates + "/" + hub.StateKey("light.kitchen")); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("state change never reached the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}

	status := c.Status()
	if !status.Connected || status.State != "streaming" {
		t.Errorf("Status() = %+v, want connected streaming", status)
	}
	if status.Subscriptions != 3 {
		t.Errorf("Subscriptions = %d, want 3", status.Subscriptions)
	}

	close(received)
	cancel()
	if err := <-errCh; err == nil {
		t.Error("runConnection() returned nil after cancellation")
	}
}

func TestRunConnection_AuthInvalid(t *testing.T) {
	server := feedServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]string{"type": "auth_required"})
		var auth map[string]string
		conn.ReadJSON(&auth)
		conn.WriteJSON(map[string]string{"type": "auth_invalid", "message": "bad token"})
	})
	defer server.Close()

	c := newFeedClient(t, server.URL, newFakeCache())
	err := c.runConnection(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("runConnection() error = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), "bad token") {
		t.Errorf("error %q does not carry the feed's message", err)
	}
}

func TestRunConnection_ProtocolViolation(t *testing.T) {
	server := feedServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]string{"type": "pong"})
	})
	defer server.Close()

	c := newFeedClient(t, server.URL, newFakeCache())
	if err := c.runConnection(context.Background()); !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("runConnection() error = %v, want ErrProtocolViolation", err)
	}
}

func TestRunConnection_AuthTimeout(t *testing.T) {
	server := feedServer(t, func(conn *websocket.Conn) {
		// Never send auth_required; the client must give up on its own.
		time.Sleep(3 * time.Second)
	})
	defer server.Close()

	fc := newFakeCache()
	cfg := &config.Config{}
	cfg.Hub.URL = server.URL
	cfg.Hub.Token = "feed-token"
	cfg.EventStream.AuthTimeout = 1
	cfg.EventStream.Reconnect = config.ReconnectConfig{MaxDelay: 1}

	c, err := New(cfg, fc)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	if err := c.runConnection(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("runConnection() error = %v, want ErrAuthFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("handshake took %v, want bounded by the 1s auth timeout", elapsed)
	}
}

func TestRun_MaxAttemptsReached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // nothing listening

	c := newFeedClient(t, server.URL, newFakeCache())

	err := c.Run(context.Background())
	if !errors.Is(err, ErrMaxAttemptsReached) {
		t.Fatalf("Run() error = %v, want ErrMaxAttemptsReached", err)
	}

	status := c.Status()
	if status.Connected {
		t.Error("Status().Connected = true after giving up")
	}
	if status.ReconnectAttempts != 2 {
		t.Errorf("ReconnectAttempts = %d, want 2", status.ReconnectAttempts)
	}
	if status.LastError == "" {
		t.Error("Status().LastError is empty after failures")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	cfg := &config.Config{}
	cfg.Hub.URL = server.URL
	cfg.Hub.Token = "feed-token"
	cfg.EventStream.AuthTimeout = 1
	cfg.EventStream.Reconnect = config.ReconnectConfig{MaxAttempts: 0, MaxDelay: 300}

	c, err := New(cfg, newFakeCache())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	// Let the first attempt fail, then cancel mid-backoff.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestAttemptsResetAfterStreaming(t *testing.T) {
	c := newFeedClient(t, "http://hub.local:8123", newFakeCache())

	c.recordFailure(errors.New("down"))
	c.recordFailure(errors.New("still down"))
	if got := c.Status().ReconnectAttempts; got != 2 {
		t.Fatalf("ReconnectAttempts = %d, want 2", got)
	}

	c.markStreaming()
	status := c.Status()
	if status.ReconnectAttempts != 0 {
		t.Errorf("ReconnectAttempts after streaming = %d, want 0", status.ReconnectAttempts)
	}
	if status.LastError != "" {
		t.Errorf("LastError after streaming = %q, want empty", status.LastError)
	}
}
