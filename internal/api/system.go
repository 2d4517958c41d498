package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/habridge/internal/cache"
)

// hubCheckTimeout bounds the upstream reachability probe in the health
// handler so a dead hub cannot stall health checks.
const hubCheckTimeout = 3 * time.Second

// healthResponse is the response body for GET /health.
type healthResponse struct {
	Status  string               `json:"status"`
	Version string               `json:"version"`
	Hub     hubHealth            `json:"hub"`
	Feed    any                  `json:"feed,omitempty"`
	Cache   map[string]cacheInfo `json:"cache"`
}

type hubHealth struct {
	Reachable bool `json:"reachable"`
}

type cacheInfo struct {
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// handleHealth reports bridge, hub and feed health. The bridge degrades
// rather than fails: an unreachable hub or down feed reports "degraded"
// with HTTP 200 so load balancers keep routing to cached reads.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hubCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		Version: s.version,
		Hub:     hubHealth{Reachable: s.hub.CheckConnection(ctx)},
		Cache:   make(map[string]cacheInfo),
	}

	for name, stats := range s.store.Stats() {
		resp.Cache[name] = cacheInfo{
			Size:      stats.Size,
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Evictions: stats.Evictions,
		}
	}

	if s.feed != nil {
		status := s.feed.Status()
		resp.Feed = status
		if !status.Connected {
			resp.Status = "degraded"
		}
	}
	if !resp.Hub.Reachable {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCacheStats exposes per-namespace cache statistics.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

// handleCacheClear flushes one cache namespace, or every namespace when
// the path parameter is "all".
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	namespaces := []string{chi.URLParam(r, "namespace")}
	if namespaces[0] == "all" {
		namespaces = []string{cache.NamespaceStates, cache.NamespaceServices, cache.NamespaceConfig}
	}

	cleared := make([]string, 0, len(namespaces))
	for _, namespace := range namespaces {
		if err := s.store.Clear(namespace); err != nil {
			writeBadRequest(w, "unknown namespace: "+namespace)
			return
		}
		cleared = append(cleared, namespace)
	}

	s.logger.Info("cache cleared via api",
		"namespaces", cleared,
		"caller", r.Context().Value(ctxKeyCaller),
	)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

// handleGetHistory returns recorded state changes for an entity.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "history is not enabled")
		return
	}

	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeBadRequest(w, "entity id is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), entityID, limit)
	if err != nil {
		writeInternalError(w, "querying history failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
