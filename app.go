package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"deskmux/internal/config"
	"deskmux/internal/focus"
	"deskmux/internal/sessionlog"
	"deskmux/internal/store"
	"deskmux/internal/workspace"
	"deskmux/internal/wsserver"
)

// sessionBackend is what the app needs from the session process manager.
// Satisfied by *backend.Manager; tests substitute a fake.
type sessionBackend interface {
	Open(title string) (workspace.Session, error)
	Get(id string) (workspace.Session, bool)
	List() []workspace.Session
	Write(id string, data []byte) error
	Resize(id string, cols int, rows int) error
	SetLabel(id string, label string) error
	Close(id string) error
	Notifications() <-chan workspace.Session
	Shutdown()
}

// App is the Wails-bound application service.
type App struct {
	// Runtime context lifecycle.
	ctx   context.Context
	ctxMu sync.RWMutex

	// Configuration state.
	// Lock ordering (outer -> inner): cfgSaveMu -> cfgMu.
	cfgMu      sync.RWMutex
	cfgSaveMu  sync.Mutex
	cfg        config.Config
	configPath string

	// Workspace state: the tab list and its layouts. workspaceMu serializes
	// every mutation so layout identity semantics stay simple.
	//
	// Lock ordering (outer -> inner): workspaceMu -> saveMu.
	// focusMu is independent; never hold it while acquiring workspaceMu.
	workspaceMu sync.Mutex
	tabs        []*workspace.Tab
	activeTabID string

	// Focus state reported by the frontend plus saved focus snapshots,
	// keyed by the token handed to the frontend.
	focusMu        sync.Mutex
	focusedPaneID  string
	focusSnapshots map[string]*focus.Snapshot

	// Backend services. Set once during startup, before any reader goroutine;
	// safe without a mutex afterwards.
	store    *store.Store
	backend  sessionBackend
	hub      *wsserver.Hub
	recorder *sessionlog.Recorder

	// Debounced persistence.
	saveMu      sync.Mutex
	saveTimer   *time.Timer
	savePending bool

	// Session log emission throttle.
	logEmitMu   sync.Mutex
	logLastEmit time.Time

	shutOnce sync.Once
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// NewApp creates the app service.
func NewApp() *App {
	return &App{
		focusSnapshots: map[string]*focus.Snapshot{},
		recorder:       sessionlog.NewRecorder(0),
	}
}

// GetWebSocketURL returns the event stream endpoint for the frontend, or ""
// when the WebSocket server is unavailable.
func (a *App) GetWebSocketURL() string {
	if a.hub == nil {
		slog.Debug("[WS] hub is nil, WebSocket URL unavailable")
		return ""
	}
	return a.hub.URL()
}

func (a *App) setRuntimeContext(ctx context.Context) {
	a.ctxMu.Lock()
	a.ctx = ctx
	a.ctxMu.Unlock()
}

func (a *App) runtimeContext() context.Context {
	a.ctxMu.RLock()
	defer a.ctxMu.RUnlock()
	return a.ctx
}

func (a *App) currentConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}
