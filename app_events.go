package main

import (
	"context"
	"log/slog"
	"time"

	"deskmux/internal/workspace"
	"deskmux/internal/wsserver"
)

// saveTimeout bounds a single background persistence attempt.
const saveTimeout = 10 * time.Second

// emitRuntimeEvent emits a Wails runtime event when the app context exists.
// Best effort: before startup or in headless tests events are dropped.
func (a *App) emitRuntimeEvent(name string, payload any) {
	ctx := a.runtimeContext()
	if ctx == nil {
		slog.Debug("[EVENT] runtime event dropped because app context is nil", "event", name)
		return
	}
	runtimeEventsEmitFn(ctx, name, payload)
}

// broadcastEvent mirrors an event onto the WebSocket stream.
func (a *App) broadcastEvent(eventType string, sessionID string, payload any) {
	if a.hub == nil {
		return
	}
	event, err := wsserver.NewEvent(eventType, sessionID, payload)
	if err != nil {
		slog.Warn("[EVENT] failed to build stream event", "type", eventType, "error", err)
		return
	}
	a.hub.Broadcast(event)
}

// emitTabsChanged announces a tab list change on both channels and schedules
// persistence. Caller holds workspaceMu.
func (a *App) emitTabsChanged() {
	summaries := a.tabSummariesLocked()
	a.emitRuntimeEvent("workspace:tabs-changed", summaries)
	a.broadcastEvent(wsserver.EventTabsChanged, "", summaries)
	a.scheduleSaveLocked()
}

// emitLayoutChanged announces a layout change within one tab. Caller holds
// workspaceMu.
func (a *App) emitLayoutChanged(tabID string) {
	a.emitRuntimeEvent("workspace:layout-changed", tabID)
	a.broadcastEvent(wsserver.EventLayoutChanged, "", tabID)
	a.scheduleSaveLocked()
}

// applySessionUpdate reconciles a backend session snapshot into the
// workspace. Updates for sessions without a pane are dropped.
func (a *App) applySessionUpdate(snapshot workspace.Session) {
	a.workspaceMu.Lock()
	next, result := workspace.RefreshSession(a.tabs, snapshot)
	if result == nil {
		a.workspaceMu.Unlock()
		slog.Debug("[SYNC] dropped update for session without a pane", "sessionId", snapshot.ID)
		return
	}
	a.tabs = next
	// Announce the merged snapshot, not the raw update: partial updates only
	// carry the fields that changed.
	merged := snapshot
	if pane := a.findPaneLocked(result.PaneID); pane != nil && pane.Session != nil {
		merged = pane.Session.Clone()
	}
	a.scheduleSaveLocked()
	a.workspaceMu.Unlock()

	a.emitRuntimeEvent("session:changed", merged)
	a.broadcastEvent(wsserver.EventSessionChanged, merged.ID, merged)
}

// scheduleSaveLocked arms (or re-arms) the debounced persistence timer.
// Caller holds workspaceMu; persistence itself runs without it.
//
// Persistence is fire-and-forget: the in-memory workspace is authoritative
// and a failed save never rolls it back.
func (a *App) scheduleSaveLocked() {
	if a.store == nil {
		return
	}
	debounce := a.currentConfig().AutosaveDebounce()

	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.savePending = true
	if a.saveTimer != nil {
		a.saveTimer.Reset(debounce)
		return
	}
	a.saveTimer = time.AfterFunc(debounce, a.saveNow)
}

// saveNow persists the current tab list.
func (a *App) saveNow() {
	a.workspaceMu.Lock()
	records := make([]workspace.TabRecord, len(a.tabs))
	for i, tab := range a.tabs {
		records[i] = tab.Record()
	}
	a.workspaceMu.Unlock()

	a.saveMu.Lock()
	a.savePending = false
	a.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.store.SaveTabs(ctx, records); err != nil {
		slog.Error("[STORE] save tabs failed", "error", err)
	}
}

// flushPendingSave runs a scheduled save immediately. Used during shutdown.
func (a *App) flushPendingSave() {
	if a.store == nil {
		return
	}
	a.saveMu.Lock()
	pending := a.savePending
	if a.saveTimer != nil {
		a.saveTimer.Stop()
	}
	a.saveMu.Unlock()
	if pending {
		a.saveNow()
	}
}
