package eventstream

import (
	"encoding/json"
	"strings"

	"github.com/nerrad567/habridge/internal/cache"
	"github.com/nerrad567/habridge/internal/hub"
)

// Cache actions taken in response to a processed event. Recorded in logs
// and metrics for every state-changed event.
const (
	ActionUpdate     = "update"
	ActionInvalidate = "invalidate"
	ActionDiscard    = "discard"
)

// handleMessage dispatches one raw feed message. Malformed or unknown
// messages are logged and dropped; they never tear the connection down.
func (c *Client) handleMessage(data []byte) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.getLogger().Warn("discarding malformed feed message", "error", err)
		return
	}

	switch msg.Type {
	case msgTypeEvent:
		c.handleEvent(msg.Event)
	case msgTypeResult:
		c.handleResult(msg)
	case msgTypePong:
		// Keepalive reply, nothing to do.
	default:
		c.getLogger().Debug("ignoring feed message", "type", msg.Type)
	}
}

// handleResult logs the outcome of a request we sent, matching the reply
// ID back to the subscription it acknowledges.
func (c *Client) handleResult(msg serverMessage) {
	c.mu.RLock()
	topic := c.subscriptions[msg.ID]
	c.mu.RUnlock()

	if msg.Success != nil && !*msg.Success {
		c.getLogger().Warn("feed rejected request",
			"id", msg.ID, "topic", topic, "error", string(msg.Error))
		return
	}
	c.getLogger().Debug("feed acknowledged request", "id", msg.ID, "topic", topic)
}

// handleEvent routes an event to its topic handler.
func (c *Client) handleEvent(event *eventPayload) {
	if event == nil {
		c.getLogger().Warn("discarding event message without payload")
		return
	}

	switch event.EventType {
	case TopicStateChanged:
		c.handleStateChanged(event.Data)
	case TopicServiceRegistered, TopicServiceRemoved:
		c.handleServiceEvent(event.EventType, event.Data)
	default:
		c.getLogger().Debug("ignoring event", "event_type", event.EventType)
	}
}

// handleStateChanged applies one entity state change to the cache.
//
// Aggregate entries covering the entity (the all-states snapshot and any
// domain group results) are always invalidated, since recomputing them
// from a single event is not possible. The per-entity entry is either
// overwritten in place (update mode) or invalidated; a failed overwrite
// falls back to invalidation so the cache never serves a stale entry
// after an event was seen.
func (c *Client) handleStateChanged(data eventData) {
	if data.EntityID == "" || data.NewState == nil {
		c.getLogger().Debug("discarding incomplete state_changed event", "entity_id", data.EntityID)
		return
	}

	entityID := data.EntityID
	if !c.filter.ShouldProcess(entityID) {
		c.getLogger().Debug("state change filtered",
			"entity_id", entityID, "action", ActionDiscard)
		c.getMetrics().CacheAction(ActionDiscard)
		return
	}

	domain := hub.Domain(entityID)
	c.invalidateAggregates(domain)

	action := ActionInvalidate
	if c.updateFromEvents {
		if err := c.cache.Set(cache.NamespaceStates, hub.StateKey(entityID), data.NewState); err != nil {
			c.getLogger().Warn("cache update failed, invalidating instead",
				"entity_id", entityID, "error", err)
			c.deleteEntity(entityID)
		} else {
			action = ActionUpdate
		}
	} else {
		c.deleteEntity(entityID)
	}

	c.getLogger().Info("state change applied",
		"entity_id", entityID,
		"old_state", oldStateValue(data.OldState),
		"new_state", data.NewState.State,
		"action", action)
	c.getMetrics().CacheAction(action)

	if fn := c.stateChangeCallback(); fn != nil {
		fn(StateChange{EntityID: entityID, OldState: data.OldState, NewState: data.NewState})
	}
}

// invalidateAggregates drops every cached result that could contain the
// changed entity: the all-states snapshot and the entity's domain groups.
func (c *Client) invalidateAggregates(domain string) {
	if err := c.cache.Delete(cache.NamespaceStates, hub.AllStatesKey); err != nil {
		c.getLogger().Warn("invalidating all-states snapshot failed", "error", err)
	}

	prefix := hub.GroupKeyPrefix(domain)
	if _, err := c.cache.DeleteMatching(cache.NamespaceStates, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	}); err != nil {
		c.getLogger().Warn("invalidating domain groups failed", "domain", domain, "error", err)
	}
}

// deleteEntity invalidates the per-entity cache entry.
func (c *Client) deleteEntity(entityID string) {
	if err := c.cache.Delete(cache.NamespaceStates, hub.StateKey(entityID)); err != nil {
		c.getLogger().Warn("invalidating entity failed", "entity_id", entityID, "error", err)
	}
}

// handleServiceEvent clears the cached service catalog. Registrations and
// removals both change the catalog shape, so the whole namespace goes and
// the next read refetches it.
func (c *Client) handleServiceEvent(eventType string, data eventData) {
	if err := c.cache.Clear(cache.NamespaceServices); err != nil {
		c.getLogger().Warn("clearing service catalog failed", "error", err)
		return
	}

	c.getLogger().Info("service catalog invalidated",
		"event_type", eventType, "domain", data.Domain, "service", data.Service)
	c.getMetrics().CacheAction(ActionInvalidate)
}

// oldStateValue extracts the previous state value for logging, tolerating
// events that carry no old record (entity just appeared).
func oldStateValue(old *hub.EntityState) string {
	if old == nil {
		return ""
	}
	return old.State
}
