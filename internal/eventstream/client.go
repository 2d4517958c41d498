package eventstream

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/habridge/internal/hub"
	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// ConnState is the synchronizer's connection lifecycle state.
type ConnState int

// Connection lifecycle states, in handshake order.
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateAwaitingAuth
	StateAuthenticating
	StateSubscribing
	StateStreaming
)

// String returns the lowercase state name used in logs and status payloads.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Cache is the subset of cache operations the synchronizer needs.
// Satisfied by *cache.Store.
type Cache interface {
	Set(namespace, key string, value any) error
	Delete(namespace, key string) error
	DeleteMatching(namespace string, match func(key string) bool) (int, error)
	Clear(namespace string) error
}

// Logger defines the logging interface used by the Client.
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

// Metrics receives feed observability signals. Satisfied by
// *metrics.Collector; the default implementation discards everything.
type Metrics interface {
	FeedConnected(connected bool)
	CacheAction(action string)
}

type noopMetrics struct{}

func (noopMetrics) FeedConnected(bool) {}
func (noopMetrics) CacheAction(string) {}

// StateChange is delivered to the optional change callback after an event
// has been applied to the cache. Used to fan processed changes out to
// MQTT, history recording and time-series sinks without coupling the
// synchronizer to those subsystems.
type StateChange struct {
	EntityID string
	OldState *hub.EntityState
	NewState *hub.EntityState
}

// Client maintains the WebSocket event feed from the hub and keeps the
// cache coherent by applying state-changed events as they arrive.
//
// Connection lifecycle: connect, authenticate, subscribe, stream. Any
// failure drops back to disconnected and the Run loop retries with
// exponential backoff. Consecutive failure counting resets only once a
// connection reaches the streaming state.
//
// Thread Safety:
//   - Run must be called from a single goroutine.
//   - Status, SetLogger, SetMetrics and SetOnStateChange are safe to call
//     from any goroutine.
type Client struct {
	wsURL            string
	token            string
	authTimeout      time.Duration
	maxAttempts      int
	maxDelay         time.Duration
	updateFromEvents bool

	cache  Cache
	filter *Filter
	dialer *websocket.Dialer
	rng    *rand.Rand

	mu            sync.RWMutex
	state         ConnState
	attempts      int
	lastErr       error
	subscriptions map[int]string
	logger        Logger
	metrics       Metrics
	onStateChange func(StateChange)

	nextID int
}

// New creates an event feed client bound to the given cache.
//
// Parameters:
//   - cfg: Full service configuration (hub credentials, feed and cache settings)
//   - store: Cache the feed keeps coherent
//
// Returns:
//   - *Client: Client ready for Run
//   - error: If the hub URL cannot be converted to a WebSocket endpoint
func New(cfg *config.Config, store Cache) (*Client, error) {
	wsURL, err := websocketURL(cfg.Hub.URL)
	if err != nil {
		return nil, err
	}

	return &Client{
		wsURL:            wsURL,
		token:            cfg.Hub.Token,
		authTimeout:      cfg.EventStream.GetAuthTimeout(),
		maxAttempts:      cfg.EventStream.Reconnect.MaxAttempts,
		maxDelay:         cfg.EventStream.Reconnect.GetMaxDelay(),
		updateFromEvents: cfg.Cache.UpdateFromEvents,
		cache:            store,
		filter:           NewFilter(cfg.EventStream.Filter),
		dialer:           websocket.DefaultDialer,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		state:            StateDisconnected,
		logger:           noopLogger{},
		metrics:          noopMetrics{},
	}, nil
}

// websocketURL converts the hub's base HTTP URL into its WebSocket endpoint.
func websocketURL(hubURL string) (string, error) {
	parsed, err := url.Parse(hubURL)
	if err != nil {
		return "", fmt.Errorf("%w: parsing hub url: %w", ErrConnectionFailed, err)
	}

	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported hub url scheme %q", ErrConnectionFailed, parsed.Scheme)
	}
	parsed.Path = "/api/websocket"
	return parsed.String(), nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetMetrics sets the metrics sink for the client.
func (c *Client) SetMetrics(m Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// SetOnStateChange registers a callback invoked after each processed
// state-changed event. The callback runs on the feed goroutine and must
// not block.
func (c *Client) SetOnStateChange(fn func(StateChange)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// Run connects to the feed and keeps it alive until the context is
// cancelled or the reconnect attempt cap is reached.
//
// Returns:
//   - error: ctx.Err() on cancellation, ErrMaxAttemptsReached when the
//     attempt cap is exhausted
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.runConnection(ctx)
		c.setState(StateDisconnected)
		c.getMetrics().FeedConnected(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt := c.recordFailure(err)
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			c.getLogger().Error("event feed exhausted reconnect attempts",
				"attempts", attempt, "error", err)
			return fmt.Errorf("%w: after %d attempts: %w", ErrMaxAttemptsReached, attempt, err)
		}

		delay := withJitter(baseDelay(attempt, c.maxDelay), c.rng)
		c.getLogger().Warn("event feed disconnected, reconnecting",
			"attempt", attempt, "delay", delay.Round(time.Millisecond), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runConnection performs one full connect-authenticate-subscribe-stream
// cycle. It returns when the connection drops or the context is cancelled.
func (c *Client) runConnection(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %w", ErrConnectionFailed, c.wsURL, err)
	}
	defer conn.Close()

	// Unblock reads when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := c.authenticate(conn); err != nil {
		return err
	}
	if err := c.subscribe(conn); err != nil {
		return err
	}

	c.markStreaming()
	c.getMetrics().FeedConnected(true)
	c.getLogger().Info("event feed streaming", "url", c.wsURL,
		"topics", []string{TopicStateChanged, TopicServiceRegistered, TopicServiceRemoved})

	return c.readLoop(conn)
}

// authenticate performs the feed's credential handshake: wait for
// auth_required, send the token, wait for auth_ok. The whole exchange
// must complete within the configured auth timeout.
func (c *Client) authenticate(conn *websocket.Conn) error {
	c.setState(StateAwaitingAuth)

	if err := conn.SetReadDeadline(time.Now().Add(c.authTimeout)); err != nil {
		return fmt.Errorf("%w: setting handshake deadline: %w", ErrConnectionFailed, err)
	}

	var challenge serverMessage
	if err := conn.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("%w: waiting for auth challenge: %w", ErrAuthFailed, err)
	}
	if challenge.Type != msgTypeAuthRequired {
		return fmt.Errorf("%w: expected %s, got %q", ErrProtocolViolation, msgTypeAuthRequired, challenge.Type)
	}

	c.setState(StateAuthenticating)
	if err := conn.WriteJSON(authMessage{Type: msgTypeAuth, AccessToken: c.token}); err != nil {
		return fmt.Errorf("%w: sending credentials: %w", ErrAuthFailed, err)
	}

	var reply serverMessage
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("%w: waiting for auth result: %w", ErrAuthFailed, err)
	}
	switch reply.Type {
	case msgTypeAuthOK:
	case msgTypeAuthInvalid:
		return fmt.Errorf("%w: %s", ErrAuthFailed, reply.Message)
	default:
		return fmt.Errorf("%w: expected %s, got %q", ErrProtocolViolation, msgTypeAuthOK, reply.Type)
	}

	// Streaming reads have no deadline; disconnects surface as read errors.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("%w: clearing handshake deadline: %w", ErrConnectionFailed, err)
	}
	return nil
}

// subscribe registers the event topics, one subscription per topic with a
// fresh message ID. The subscription set is rebuilt on every connection.
func (c *Client) subscribe(conn *websocket.Conn) error {
	c.setState(StateSubscribing)

	topics := []string{TopicStateChanged, TopicServiceRegistered, TopicServiceRemoved}
	subs := make(map[int]string, len(topics))
	for _, topic := range topics {
		id := c.nextMessageID()
		msg := subscribeMessage{ID: id, Type: msgTypeSubscribeEvents, EventType: topic}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		subs[id] = topic
	}

	c.mu.Lock()
	c.subscriptions = subs
	c.mu.Unlock()
	return nil
}

// readLoop consumes feed messages until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: reading feed: %w", ErrConnectionFailed, err)
		}
		c.handleMessage(data)
	}
}

// nextMessageID returns a fresh feed message ID. IDs increment for the
// lifetime of the client, never per connection, so late results from a
// dead connection can never collide with new subscriptions.
func (c *Client) nextMessageID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// Status is a point-in-time snapshot of the feed connection.
type Status struct {
	Connected         bool   `json:"connected"`
	State             string `json:"state"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	Subscriptions     int    `json:"subscriptions"`
	LastError         string `json:"last_error,omitempty"`
}

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		Connected:         c.state == StateStreaming,
		State:             c.state.String(),
		ReconnectAttempts: c.attempts,
		Subscriptions:     len(c.subscriptions),
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}

// setState transitions the connection state.
func (c *Client) setState(state ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// markStreaming enters the streaming state and resets the consecutive
// failure counter.
func (c *Client) markStreaming() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateStreaming
	c.attempts = 0
	c.lastErr = nil
}

// recordFailure counts a failed connection attempt and returns the new
// consecutive failure count.
func (c *Client) recordFailure(err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	c.lastErr = err
	return c.attempts
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) getMetrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

func (c *Client) stateChangeCallback() func(StateChange) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onStateChange
}
