package wsserver

import (
	"encoding/json"
	"fmt"
)

// Event types streamed to the frontend.
const (
	EventSessionChanged = "session-changed"
	EventTabsChanged    = "tabs-changed"
	EventLayoutChanged  = "layout-changed"
)

// Event is one workspace notification frame. SessionID is set for
// session-scoped events and empty for workspace-wide ones; Payload carries
// the event body as pre-encoded JSON.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes payload and wraps it in an Event.
func NewEvent(eventType string, sessionID string, payload any) (Event, error) {
	if eventType == "" {
		return Event{}, fmt.Errorf("wsserver: event type is required")
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("wsserver: encode payload: %w", err)
		}
		raw = data
	}
	return Event{Type: eventType, SessionID: sessionID, Payload: raw}, nil
}

// subscribeAction and unsubscribeAction are the valid subscribeMsg actions.
const (
	subscribeAction   = "subscribe"
	unsubscribeAction = "unsubscribe"
)

// subscribeMsg is the JSON payload for client subscription requests.
// An empty SessionIDs list with subscribeAction subscribes to every session
// (the workspace view needs the full stream; per-session detail views narrow
// it down).
type subscribeMsg struct {
	Action     string   `json:"action"`
	SessionIDs []string `json:"sessionIds"`
}

// errorMsg is the JSON payload for server error notifications.
type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
