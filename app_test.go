package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"deskmux/internal/config"
	"deskmux/internal/store"
	"deskmux/internal/workspace"
)

// fakeBackend is an in-memory sessionBackend.
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]workspace.Session
	nextID   int
	openErr  error
	closed   []string
	notifyCh chan workspace.Session
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: map[string]workspace.Session{},
		notifyCh: make(chan workspace.Session, 16),
	}
}

func (b *fakeBackend) Open(title string) (workspace.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return workspace.Session{}, b.openErr
	}
	b.nextID++
	session := workspace.Session{
		ID:     fmt.Sprintf("sess-%d", b.nextID),
		Title:  title,
		Status: workspace.StatusRunning,
	}
	b.sessions[session.ID] = session
	return session, nil
}

func (b *fakeBackend) Get(id string) (workspace.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[id]
	return session, ok
}

func (b *fakeBackend) List() []workspace.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]workspace.Session, 0, len(b.sessions))
	for _, session := range b.sessions {
		out = append(out, session)
	}
	return out
}

func (b *fakeBackend) Write(id string, data []byte) error { return nil }

func (b *fakeBackend) Resize(id string, cols int, rows int) error { return nil }

func (b *fakeBackend) SetLabel(id string, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[id]
	if !ok {
		return fmt.Errorf("unknown session %s", id)
	}
	session.CustomLabel = label
	b.sessions[id] = session
	return nil
}

func (b *fakeBackend) Close(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, id)
	delete(b.sessions, id)
	return nil
}

func (b *fakeBackend) Notifications() <-chan workspace.Session { return b.notifyCh }

func (b *fakeBackend) Shutdown() {}

func (b *fakeBackend) closedSessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.closed...)
}

// capturedEvent is one runtime event observed by the test emitter.
type capturedEvent struct {
	name    string
	payload any
}

type eventLog struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (l *eventLog) add(name string, payload any) {
	l.mu.Lock()
	l.events = append(l.events, capturedEvent{name: name, payload: payload})
	l.mu.Unlock()
}

func (l *eventLog) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, event := range l.events {
		if event.name == name {
			n++
		}
	}
	return n
}

// newTestApp builds an app with a fake backend, captured events, no store
// and no WebSocket hub.
func newTestApp(t *testing.T) (*App, *fakeBackend, *eventLog) {
	t.Helper()
	events := &eventLog{}
	orig := runtimeEventsEmitFn
	runtimeEventsEmitFn = func(ctx context.Context, name string, payload ...any) {
		var p any
		if len(payload) > 0 {
			p = payload[0]
		}
		events.add(name, p)
	}
	t.Cleanup(func() { runtimeEventsEmitFn = orig })

	fb := newFakeBackend()
	app := NewApp()
	app.backend = fb
	app.cfg = config.DefaultConfig()
	app.setRuntimeContext(context.Background())
	return app, fb, events
}

// withTestStore attaches a real on-disk store to the app.
func withTestStore(t *testing.T, app *App) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "deskmux.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	app.store = st
	return st
}
