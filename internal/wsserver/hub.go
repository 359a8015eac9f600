// Package wsserver streams workspace events (session changes, tab and layout
// dirtiness) from the Go backend to the frontend WebView over a localhost
// WebSocket.
package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeDeadline bounds a single WebSocket write. Generous for localhost; a
// WebView frozen longer than this is treated as a dead client.
const writeDeadline = 5 * time.Second

// readDeadline is the maximum time without read activity (including pongs)
// before the connection is considered dead: ~3 missed pings.
const readDeadline = 90 * time.Second

// pingInterval is the keepalive ping cadence.
const pingInterval = 30 * time.Second

// maxReadMessageSize limits incoming messages. Subscribe payloads are tiny;
// anything bigger is malformed.
const maxReadMessageSize = 32 * 1024

// wsUpgrader is shared across upgrades; the Upgrader is stateless.
var wsUpgrader = websocket.Upgrader{
	// The server binds to 127.0.0.1 only, so the origin check is moot for a
	// desktop app; kept permissive for WebView compatibility.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 8 * 1024,
}

// HubOptions configures the event server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for an OS-assigned port.
	Addr string
}

// Hub manages a single WebSocket connection for streaming workspace events.
//
// Single-connection model: the desktop app has exactly one WebView client,
// and a new connection replaces the old one so page reloads recover cleanly.
//
// Lock ordering (never acquire in reverse): writeMu -> mu.
// mu protects connection state and the subscription set; writeMu serializes
// WriteMessage calls (gorilla/websocket is not write-concurrency-safe).
type Hub struct {
	opts HubOptions

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool // session id -> subscribed
	allStream  bool            // subscribed to every session

	writeMu sync.Mutex

	listener net.Listener
	server   *http.Server
	url      string // "ws://127.0.0.1:<port>/ws", set after Start

	closeOnce sync.Once
}

// NewHub creates a Hub with the given options. Start must be called before
// events flow.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:       opts,
		subscribed: make(map[string]bool),
	}
}

// Start begins listening and serving WebSocket connections. ctx becomes the
// base context of request handlers; the server itself is stopped via Stop.
// Start must be called exactly once, before any concurrent access.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln
	port := ln.Addr().(*net.TCPAddr).Port
	h.url = fmt.Sprintf("ws://127.0.0.1:%d/ws", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[WS] event server started", "url", h.url)
	return nil
}

// Stop shuts down the server and closes the active connection. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.subscribed = make(map[string]bool)
		h.allStream = false
		h.mu.Unlock()

		if conn != nil {
			if err := conn.Close(); err != nil {
				slog.Debug("[WS] connection close during stop", "error", err)
			}
		}
		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		slog.Info("[WS] event server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL for the frontend, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a client is currently connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	active := h.conn != nil
	h.mu.RUnlock()
	return active
}

// Broadcast sends an event to the connected client. Session-scoped events
// are filtered by the client's subscription set unless it opted into the
// full stream; workspace-wide events (empty SessionID) always pass.
//
// No client, no subscription, or a closed connection are all silent no-ops:
// event delivery is best effort and the in-memory workspace stays
// authoritative regardless.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	conn := h.conn
	wanted := h.allStream || event.SessionID == "" || h.subscribed[event.SessionID]
	h.mu.RUnlock()

	if conn == nil || !wanted {
		return
	}

	frame, err := json.Marshal(event)
	if err != nil {
		slog.Warn("[WS] failed to encode event", "type", event.Type, "error", err)
		return
	}

	h.writeMu.Lock()
	if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
		h.writeMu.Unlock()
		return
	}
	writeErr := conn.WriteMessage(websocket.TextMessage, frame)
	h.clearWriteDeadline(conn)
	h.writeMu.Unlock()

	if writeErr != nil {
		slog.Warn("[WS] write failed, closing connection", "type", event.Type, "error", writeErr)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error in Broadcast")
	}
}

// handleWS upgrades the request and installs the connection as the current
// client, replacing any previous one (page reload).
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)

	h.mu.Lock()
	previous := h.conn
	h.conn = conn
	h.subscribed = make(map[string]bool)
	h.allStream = false
	h.mu.Unlock()

	if previous != nil {
		h.closeConn(previous, "replaced by new connection")
	}

	go h.pingLoop(conn)
	h.readLoop(conn)
}

// readLoop consumes subscribe/unsubscribe messages until the connection
// dies, then clears it if it is still current.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		if h.clearIfCurrent(conn) {
			slog.Debug("[WS] client disconnected")
		}
		h.closeConn(conn, "read loop exit")
	}()

	resetDeadline := func() {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			slog.Debug("[WS] SetReadDeadline failed", "error", err)
		}
	}
	conn.SetPongHandler(func(string) error {
		resetDeadline()
		return nil
	})
	resetDeadline()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		resetDeadline()

		var msg subscribeMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, fmt.Sprintf("malformed subscribe message: %v", err))
			continue
		}
		switch msg.Action {
		case subscribeAction:
			h.mu.Lock()
			if len(msg.SessionIDs) == 0 {
				h.allStream = true
			}
			for _, id := range msg.SessionIDs {
				h.subscribed[id] = true
			}
			h.mu.Unlock()
		case unsubscribeAction:
			h.mu.Lock()
			if len(msg.SessionIDs) == 0 {
				h.allStream = false
				h.subscribed = make(map[string]bool)
			}
			for _, id := range msg.SessionIDs {
				delete(h.subscribed, id)
			}
			h.mu.Unlock()
		default:
			h.sendError(conn, fmt.Sprintf("unknown action %q", msg.Action))
		}
	}
}

// pingLoop sends keepalive pings until the connection is no longer current
// or a write fails.
func (h *Hub) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		current := h.conn == conn
		h.mu.RUnlock()
		if !current {
			return
		}

		h.writeMu.Lock()
		if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
			h.writeMu.Unlock()
			return
		}
		err := conn.WriteMessage(websocket.PingMessage, nil)
		h.clearWriteDeadline(conn)
		h.writeMu.Unlock()

		if err != nil {
			h.clearIfCurrent(conn)
			h.closeConn(conn, "ping failure")
			return
		}
	}
}

func (h *Hub) sendError(conn *websocket.Conn, message string) {
	frame, err := json.Marshal(errorMsg{Type: "error", Message: message})
	if err != nil {
		return
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		slog.Debug("[WS] error notification write failed", "error", err)
	}
	h.clearWriteDeadline(conn)
}

// clearIfCurrent clears connection state only if conn is still current.
// Caller must not hold h.mu.
func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	isCurrent := h.conn == conn
	if isCurrent {
		h.conn = nil
		h.subscribed = make(map[string]bool)
		h.allStream = false
	}
	h.mu.Unlock()
	return isCurrent
}

// closeConn closes a connection; double-close is expected during replacement
// and logged at Debug only.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[WS] connection close", "reason", reason, "error", err)
	}
}

// setWriteDeadlineOrClose arms a write deadline; a failure means the
// connection is unusable and it is torn down.
func (h *Hub) setWriteDeadlineOrClose(conn *websocket.Conn, d time.Duration) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		slog.Warn("[WS] SetWriteDeadline failed, closing connection", "error", err)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "SetWriteDeadline failure")
		return false
	}
	return true
}

// clearWriteDeadline resets the deadline after a successful write; failure is
// non-fatal because the next write arms a fresh one.
func (h *Hub) clearWriteDeadline(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("[WS] clearWriteDeadline failed", "error", err)
	}
}
