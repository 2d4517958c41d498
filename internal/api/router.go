package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus exposition (no auth, scraped from inside the network)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	// Health check (no auth required). Mounted at the root for load
	// balancer probes and under the API prefix for clients.
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Token issuing (authenticated by API key in the request itself)
		r.Post("/auth/token", s.handleIssueToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.rateLimitMiddleware)

			r.Route("/states", func(r chi.Router) {
				r.Get("/", s.handleListStates)
				r.Get("/{entityID}", s.handleGetState)
				r.Post("/{entityID}", s.handleSetState)
				r.Get("/{entityID}/history", s.handleGetHistory)
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", s.handleListServices)
				r.Post("/{domain}/{service}", s.handleCallService)
			})

			r.Get("/config", s.handleGetConfig)

			r.Route("/cache", func(r chi.Router) {
				r.Get("/stats", s.handleCacheStats)
				r.Delete("/{namespace}", s.handleCacheClear)
			})
		})
	})

	return r
}
