package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"deskmux/internal/backend"
	"deskmux/internal/config"
	"deskmux/internal/sessionlog"
	"deskmux/internal/store"
	"deskmux/internal/workspace"
	"deskmux/internal/wsserver"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// runtimeEventsEmitFn is a test seam over the Wails event emitter.
var runtimeEventsEmitFn = runtime.EventsEmit

const dbFileName = "deskmux.db"

// startup wires the services together. Failures here are logged and degrade
// the relevant feature instead of aborting the app: a desktop session manager
// with a broken store is still more useful than no window at all.
func (a *App) startup(ctx context.Context) {
	a.setRuntimeContext(ctx)

	a.configPath = config.DefaultPath()
	cfg, warnings, err := config.EnsureFile(a.configPath)
	if err != nil {
		slog.Warn("[CONFIG] falling back to defaults", "path", a.configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	for _, warning := range warnings {
		slog.Warn("[CONFIG] "+warning, "path", a.configPath)
	}
	a.cfgMu.Lock()
	a.cfg = cfg
	a.cfgMu.Unlock()

	a.installLogCapture()

	dbPath := filepath.Join(filepath.Dir(a.configPath), dbFileName)
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		slog.Error("[STORE] open failed, tab persistence disabled", "path", dbPath, "error", err)
	} else {
		a.store = st
		a.tabs = a.loadPersistedTabs()
	}
	if len(a.tabs) > 0 {
		a.activeTabID = a.tabs[0].ID
	}

	a.hub = wsserver.NewHub(wsserver.HubOptions{
		Addr: fmt.Sprintf("127.0.0.1:%d", cfg.WebSocketPort),
	})
	if err := a.hub.Start(ctx); err != nil {
		slog.Error("[WS] event server failed to start", "error", err)
		a.hub = nil
	}

	a.backend = backend.NewManager(backend.Options{
		Shell: cfg.Shell,
		Dir:   cfg.DefaultSessionDir,
		Env:   cfg.SessionEnv,
	})

	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel

	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		a.pumpSessionNotifications(bgCtx)
	}()

	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		a.watchConfig(bgCtx)
	}()

	slog.Info("[APP] startup complete", "tabs", len(a.tabs), "config", a.configPath)
}

// shutdown stops background work, flushes the pending save and releases the
// store. Invoked by Wails exactly once.
func (a *App) shutdown(ctx context.Context) {
	a.shutOnce.Do(func() {
		if a.bgCancel != nil {
			a.bgCancel()
		}
		if a.backend != nil {
			a.backend.Shutdown()
		}
		a.bgWG.Wait()

		a.flushPendingSave()

		if a.hub != nil {
			if err := a.hub.Stop(); err != nil {
				slog.Warn("[WS] stop failed", "error", err)
			}
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				slog.Warn("[STORE] close failed", "error", err)
			}
		}
		slog.Info("[APP] shutdown complete")
	})
}

// installLogCapture tees warn/error records into the in-memory session log
// and notifies the frontend, throttled to avoid Wails IPC saturation.
func (a *App) installLogCapture() {
	a.recorder.SetNotify(func(entry sessionlog.Entry) {
		a.logEmitMu.Lock()
		due := time.Since(a.logLastEmit) >= time.Second
		if due {
			a.logLastEmit = time.Now()
		}
		a.logEmitMu.Unlock()
		if due {
			a.emitRuntimeEvent("app:session-log-updated", entry.Seq)
		}
	})

	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(sessionlog.NewHandler(base, slog.LevelWarn, a.recorder)))
}

// loadPersistedTabs rebuilds the tab list from the store, skipping records
// that no longer decode. A half-restored workspace beats an empty one.
func (a *App) loadPersistedTabs() []*workspace.Tab {
	records, err := a.store.LoadTabs(context.Background())
	if err != nil {
		slog.Error("[STORE] load tabs failed", "error", err)
		return nil
	}
	tabs := make([]*workspace.Tab, 0, len(records))
	for _, rec := range records {
		tab, err := workspace.TabFromRecord(rec)
		if err != nil {
			slog.Warn("[STORE] skipping unreadable tab record", "tabId", rec.ID, "error", err)
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

// pumpSessionNotifications feeds backend session updates into the workspace
// reconciler until shutdown.
func (a *App) pumpSessionNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-a.backend.Notifications():
			a.applySessionUpdate(snapshot)
		}
	}
}

// watchConfig hot-reloads the config file. Reload replaces only the mutable
// knobs; services keep the settings they were built with.
func (a *App) watchConfig(ctx context.Context) {
	err := config.Watch(ctx, a.configPath, func(cfg config.Config, warnings []string) {
		for _, warning := range warnings {
			slog.Warn("[CONFIG] "+warning, "path", a.configPath)
		}
		a.cfgMu.Lock()
		a.cfg = cfg
		a.cfgMu.Unlock()
		a.emitRuntimeEvent("config:changed", cfg)
		slog.Info("[CONFIG] reloaded", "path", a.configPath)
	})
	if err != nil && ctx.Err() == nil {
		slog.Warn("[CONFIG] watcher stopped", "error", err)
	}
}
