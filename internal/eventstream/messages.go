package eventstream

import (
	"encoding/json"

	"github.com/nerrad567/habridge/internal/hub"
)

// Event topics the synchronizer subscribes to on every connection.
const (
	TopicStateChanged      = "state_changed"
	TopicServiceRegistered = "service_registered"
	TopicServiceRemoved    = "service_removed"
)

// Wire message types used by the hub's WebSocket protocol.
const (
	msgTypeAuthRequired    = "auth_required"
	msgTypeAuth            = "auth"
	msgTypeAuthOK          = "auth_ok"
	msgTypeAuthInvalid     = "auth_invalid"
	msgTypeSubscribeEvents = "subscribe_events"
	msgTypeResult          = "result"
	msgTypeEvent           = "event"
	msgTypePong            = "pong"
)

// serverMessage is the envelope for every inbound feed message.
// Only the fields relevant to the message type are populated.
type serverMessage struct {
	Type    string          `json:"type"`
	ID      int             `json:"id,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Event   *eventPayload   `json:"event,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// eventPayload is the body of an "event" message.
type eventPayload struct {
	EventType string    `json:"event_type"`
	Data      eventData `json:"data"`
}

// eventData carries the topic-specific event payload. For state_changed
// events the new and old records use the same EntityState shape as the
// REST read path, so they can overwrite cache entries transparently.
type eventData struct {
	EntityID string           `json:"entity_id,omitempty"`
	NewState *hub.EntityState `json:"new_state,omitempty"`
	OldState *hub.EntityState `json:"old_state,omitempty"`

	// Domain and Service are set on service_registered / service_removed.
	Domain  string `json:"domain,omitempty"`
	Service string `json:"service,omitempty"`
}

// authMessage is the client's reply to auth_required.
type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

// subscribeMessage registers interest in one event topic.
type subscribeMessage struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type"`
}
