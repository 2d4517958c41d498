package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/habridge/internal/cache"
	"github.com/nerrad567/habridge/internal/hub"
)

// cacheHeader reports whether a response was served from cache.
const cacheHeader = "X-Cache"

// handleListStates returns the state of every entity, served from the
// all-states snapshot when cached.
func (s *Server) handleListStates(w http.ResponseWriter, r *http.Request) {
	if cached, ok, _ := s.store.Get(cache.NamespaceStates, hub.AllStatesKey); ok {
		s.metrics.RecordCacheHit(cache.NamespaceStates)
		if states, valid := cached.([]hub.EntityState); valid {
			w.Header().Set(cacheHeader, "HIT")
			writeJSON(w, http.StatusOK, states)
			return
		}
	}
	s.metrics.RecordCacheMiss(cache.NamespaceStates)

	states, err := s.hub.FetchAllStates(r.Context())
	if err != nil {
		s.metrics.RecordHubError("fetch_all_states")
		writeUpstreamError(w, "fetching states from hub failed")
		return
	}

	s.cacheAllStates(states)
	w.Header().Set(cacheHeader, "MISS")
	writeJSON(w, http.StatusOK, states)
}

// cacheAllStates stores the aggregate snapshot and each individual
// entity, so subsequent per-entity reads also hit.
func (s *Server) cacheAllStates(states []hub.EntityState) {
	if err := s.store.Set(cache.NamespaceStates, hub.AllStatesKey, states); err != nil {
		s.logger.Warn("caching all-states snapshot failed", "error", err)
	}
	for i := range states {
		state := states[i]
		if state.EntityID == "" {
			continue
		}
		if err := s.store.Set(cache.NamespaceStates, hub.StateKey(state.EntityID), &state); err != nil {
			s.logger.Debug("caching entity state failed", "entity_id", state.EntityID, "error", err)
		}
	}
}

// handleGetState returns one entity's state, read through the cache.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeBadRequest(w, "entity id is required")
		return
	}

	if cached, ok, _ := s.store.Get(cache.NamespaceStates, hub.StateKey(entityID)); ok {
		s.metrics.RecordCacheHit(cache.NamespaceStates)
		if state, valid := cached.(*hub.EntityState); valid {
			w.Header().Set(cacheHeader, "HIT")
			writeJSON(w, http.StatusOK, state)
			return
		}
	}
	s.metrics.RecordCacheMiss(cache.NamespaceStates)

	state, err := s.hub.FetchState(r.Context(), entityID)
	if err != nil {
		if errors.Is(err, hub.ErrEntityNotFound) {
			writeNotFound(w, "entity not found: "+entityID)
			return
		}
		s.metrics.RecordHubError("fetch_state")
		writeUpstreamError(w, "fetching state from hub failed")
		return
	}

	if err := s.store.Set(cache.NamespaceStates, hub.StateKey(entityID), state); err != nil {
		s.logger.Warn("caching entity state failed", "entity_id", entityID, "error", err)
	}
	w.Header().Set(cacheHeader, "MISS")
	writeJSON(w, http.StatusOK, state)
}

// setStateRequest is the request body for POST /states/{entityID}.
type setStateRequest struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// handleSetState writes an entity state to the hub and refreshes the
// cache with the stored record. The all-states snapshot is invalidated
// since it no longer reflects the hub.
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		writeBadRequest(w, "entity id is required")
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.State == "" {
		writeBadRequest(w, "state is required")
		return
	}

	stored, err := s.hub.SetState(r.Context(), entityID, req.State, req.Attributes)
	if err != nil {
		s.metrics.RecordHubError("set_state")
		writeUpstreamError(w, "setting state on hub failed")
		return
	}

	if err := s.store.Set(cache.NamespaceStates, hub.StateKey(entityID), stored); err != nil {
		s.logger.Warn("caching written state failed", "entity_id", entityID, "error", err)
	}
	if err := s.store.Delete(cache.NamespaceStates, hub.AllStatesKey); err != nil {
		s.logger.Warn("invalidating all-states snapshot failed", "error", err)
	}

	writeJSON(w, http.StatusOK, stored)
}

// handleCallService invokes a hub service and folds the reported state
// changes back into the cache.
func (s *Server) handleCallService(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	service := chi.URLParam(r, "service")
	if domain == "" || service == "" {
		writeBadRequest(w, "domain and service are required")
		return
	}

	var data map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	changed, err := s.hub.CallService(r.Context(), domain, service, data)
	if err != nil {
		s.metrics.RecordHubError("call_service")
		writeUpstreamError(w, "calling service on hub failed")
		return
	}

	// The call may have changed any number of entities; refresh the ones
	// the hub reported and drop the stale snapshot.
	for i := range changed {
		state := changed[i]
		if state.EntityID == "" {
			continue
		}
		if err := s.store.Set(cache.NamespaceStates, hub.StateKey(state.EntityID), &state); err != nil {
			s.logger.Debug("caching changed state failed", "entity_id", state.EntityID, "error", err)
		}
	}
	if err := s.store.Delete(cache.NamespaceStates, hub.AllStatesKey); err != nil {
		s.logger.Warn("invalidating all-states snapshot failed", "error", err)
	}

	writeJSON(w, http.StatusOK, changed)
}

// handleListServices returns the hub's service catalog, cached.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	if cached, ok, _ := s.store.Get(cache.NamespaceServices, hub.ServicesKey); ok {
		s.metrics.RecordCacheHit(cache.NamespaceServices)
		if catalog, valid := cached.(hub.ServiceCatalog); valid {
			w.Header().Set(cacheHeader, "HIT")
			writeJSON(w, http.StatusOK, catalog)
			return
		}
	}
	s.metrics.RecordCacheMiss(cache.NamespaceServices)

	catalog, err := s.hub.FetchServices(r.Context())
	if err != nil {
		s.metrics.RecordHubError("fetch_services")
		writeUpstreamError(w, "fetching services from hub failed")
		return
	}

	if err := s.store.Set(cache.NamespaceServices, hub.ServicesKey, catalog); err != nil {
		s.logger.Warn("caching service catalog failed", "error", err)
	}
	w.Header().Set(cacheHeader, "MISS")
	writeJSON(w, http.StatusOK, catalog)
}

// handleGetConfig returns the hub configuration snapshot, cached.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if cached, ok, _ := s.store.Get(cache.NamespaceConfig, hub.ConfigKey); ok {
		s.metrics.RecordCacheHit(cache.NamespaceConfig)
		if info, valid := cached.(*hub.Info); valid {
			w.Header().Set(cacheHeader, "HIT")
			writeJSON(w, http.StatusOK, info)
			return
		}
	}
	s.metrics.RecordCacheMiss(cache.NamespaceConfig)

	info, err := s.hub.FetchConfig(r.Context())
	if err != nil {
		s.metrics.RecordHubError("fetch_config")
		writeUpstreamError(w, "fetching config from hub failed")
		return
	}

	if err := s.store.Set(cache.NamespaceConfig, hub.ConfigKey, info); err != nil {
		s.logger.Warn("caching hub config failed", "error", err)
	}
	w.Header().Set(cacheHeader, "MISS")
	writeJSON(w, http.StatusOK, info)
}
