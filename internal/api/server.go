// Package api provides the HTTP REST surface of the bridge.
//
// It exposes cached hub reads (states, services, config), write
// passthrough (set state, call service), state history, cache
// administration, and health/metrics endpoints.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/habridge/internal/cache"
	"github.com/nerrad567/habridge/internal/eventstream"
	"github.com/nerrad567/habridge/internal/history"
	"github.com/nerrad567/habridge/internal/hub"
	"github.com/nerrad567/habridge/internal/infrastructure/config"
	"github.com/nerrad567/habridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HubClient is the upstream hub surface the handlers need.
// Satisfied by *hub.Client.
type HubClient interface {
	FetchAllStates(ctx context.Context) ([]hub.EntityState, error)
	FetchState(ctx context.Context, entityID string) (*hub.EntityState, error)
	SetState(ctx context.Context, entityID, state string, attributes map[string]any) (*hub.EntityState, error)
	CallService(ctx context.Context, domain, service string, data map[string]any) ([]hub.EntityState, error)
	FetchServices(ctx context.Context) (hub.ServiceCatalog, error)
	FetchConfig(ctx context.Context) (*hub.Info, error)
	CheckConnection(ctx context.Context) bool
}

// FeedStatus reports the event feed connection state for health payloads.
// Satisfied by *eventstream.Client.
type FeedStatus interface {
	Status() eventstream.Status
}

// Metrics receives request and cache observability signals.
// Satisfied by *metrics.Collector.
type Metrics interface {
	RecordRequest(method, path string, status int, duration time.Duration)
	RecordRateLimitHit()
	RecordCacheHit(cacheNamespace string)
	RecordCacheMiss(cacheNamespace string)
	RecordHubError(operation string)
}

// noopMetrics discards all signals; used when no collector is wired.
type noopMetrics struct{}

func (noopMetrics) RecordRequest(string, string, int, time.Duration) {}
func (noopMetrics) RecordRateLimitHit()                              {}
func (noopMetrics) RecordCacheHit(string)                            {}
func (noopMetrics) RecordCacheMiss(string)                           {}
func (noopMetrics) RecordHubError(string)                            {}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Cache    *cache.Store
	Hub      HubClient

	// Optional.
	Feed           FeedStatus
	History        *history.Repository
	Metrics        Metrics
	MetricsHandler http.Handler
	Version        string
}

// Server is the bridge's HTTP API server.
//
// It is created with New() and started with Start(); the listener runs
// in a background goroutine until Close().
type Server struct {
	cfg            config.APIConfig
	secCfg         config.SecurityConfig
	logger         *logging.Logger
	store          *cache.Store
	hub            HubClient
	feed           FeedStatus
	history        *history.Repository
	metrics        Metrics
	metricsHandler http.Handler
	limiter        *rateLimiter
	version        string
	server         *http.Server
}

// New creates an API server with the given dependencies.
//
// Parameters:
//   - deps: Required dependencies (config, logger, cache, hub client)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub client is required")
	}

	recorder := deps.Metrics
	if recorder == nil {
		recorder = noopMetrics{}
	}

	s := &Server{
		cfg:            deps.Config,
		secCfg:         deps.Security,
		logger:         deps.Logger,
		store:          deps.Cache,
		hub:            deps.Hub,
		feed:           deps.Feed,
		history:        deps.History,
		metrics:        recorder,
		metricsHandler: deps.MetricsHandler,
		version:        deps.Version,
	}

	if deps.Security.RateLimit.Enabled {
		s.limiter = newRateLimiter(deps.Security.RateLimit)
	}

	return s, nil
}

// Start begins listening for HTTP connections in a background goroutine.
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
