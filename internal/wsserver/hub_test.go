package wsserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(HubOptions{})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := hub.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return hub
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", hub.URL(), err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, sessionIDs ...string) {
	t.Helper()
	msg := subscribeMsg{Action: subscribeAction, SessionIDs: sessionIDs}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}

// broadcastUntilReceived resends event until the client observes a frame or
// the deadline passes. The subscribe message is processed asynchronously by
// the hub's read loop, so a single broadcast can race ahead of it.
func broadcastUntilReceived(t *testing.T, hub *Hub, conn *websocket.Conn, event Event) Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	received := make(chan Event, 1)
	go func() {
		var got Event
		for {
			if err := conn.ReadJSON(&got); err != nil {
				return
			}
			received <- got
			return
		}
	}()
	for time.Now().Before(deadline) {
		hub.Broadcast(event)
		select {
		case got := <-received:
			return got
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatal("timed out waiting for broadcast event")
	return Event{}
}

func TestBroadcastDeliversSubscribedSessionEvent(t *testing.T) {
	hub := startTestHub(t)
	conn := dialTestHub(t, hub)
	subscribe(t, conn, "s1")

	event, err := NewEvent(EventSessionChanged, "s1", map[string]string{"status": "running"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	got := broadcastUntilReceived(t, hub, conn, event)

	if got.Type != EventSessionChanged || got.SessionID != "s1" {
		t.Fatalf("event = %+v", got)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["status"] != "running" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestBroadcastFiltersUnsubscribedSession(t *testing.T) {
	hub := startTestHub(t)
	conn := dialTestHub(t, hub)
	subscribe(t, conn, "s1")
	// Wait for the subscription to land: a subscribed event must arrive even
	// after unsubscribed ones were dropped.
	subscribedEvent, _ := NewEvent(EventSessionChanged, "s1", nil)
	otherEvent, _ := NewEvent(EventSessionChanged, "other", nil)

	hub.Broadcast(otherEvent)
	got := broadcastUntilReceived(t, hub, conn, subscribedEvent)
	if got.SessionID != "s1" {
		t.Fatalf("got event for %q, want the filtered stream to skip %q", got.SessionID, otherEvent.SessionID)
	}
}

func TestBroadcastWorkspaceEventsAlwaysPass(t *testing.T) {
	hub := startTestHub(t)
	conn := dialTestHub(t, hub)

	event, _ := NewEvent(EventTabsChanged, "", []string{"tab-0", "tab-1"})
	got := broadcastUntilReceived(t, hub, conn, event)
	if got.Type != EventTabsChanged {
		t.Fatalf("event = %+v, want tabs-changed", got)
	}
}

func TestBroadcastWithoutClientIsNoOp(t *testing.T) {
	hub := startTestHub(t)
	event, _ := NewEvent(EventLayoutChanged, "", nil)
	// Must not panic or block.
	hub.Broadcast(event)
	if hub.HasActiveConnection() {
		t.Fatal("no client should be connected")
	}
}

func TestNewConnectionReplacesOld(t *testing.T) {
	hub := startTestHub(t)
	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)

	// The first connection is closed by the hub; reads eventually fail.
	first.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("expected the replaced connection to be closed")
	}

	event, _ := NewEvent(EventTabsChanged, "", nil)
	got := broadcastUntilReceived(t, hub, second, event)
	if got.Type != EventTabsChanged {
		t.Fatalf("event = %+v", got)
	}
}

func TestNewEventRequiresType(t *testing.T) {
	if _, err := NewEvent("", "s1", nil); err == nil {
		t.Fatal("expected error for empty event type")
	}
}
