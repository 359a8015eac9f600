package main

import (
	"fmt"
	"log/slog"

	"deskmux/internal/workspace"
)

// TabSummary is the lightweight tab descriptor sent with tab list events.
type TabSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ActivePaneID string `json:"activePaneId"`
	PaneCount    int    `json:"paneCount"`
}

// TabSnapshot carries a full tab including its layout tree.
type TabSnapshot struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ActivePaneID string             `json:"activePaneId"`
	Layout       *workspace.NodeDTO `json:"layout"`
}

// WorkspaceSnapshot is the full workspace state for the frontend.
type WorkspaceSnapshot struct {
	Tabs          []TabSnapshot `json:"tabs"`
	ActiveTabID   string        `json:"activeTabId"`
	FocusedPaneID string        `json:"focusedPaneId"`
}

// OpenSession starts a new backend session and opens it in a new tab.
func (a *App) OpenSession(title string) (TabSnapshot, error) {
	cfg := a.currentConfig()

	a.workspaceMu.Lock()
	atCap := cfg.MaxTabs > 0 && len(a.tabs) >= cfg.MaxTabs
	a.workspaceMu.Unlock()
	if atCap {
		return TabSnapshot{}, fmt.Errorf("tab limit of %d reached", cfg.MaxTabs)
	}

	snapshot, err := a.backend.Open(title)
	if err != nil {
		return TabSnapshot{}, fmt.Errorf("open session: %w", err)
	}
	return a.openSessionTab(snapshot)
}

// ShowSession brings the tab holding sessionID to the front, opening a new
// tab only when no pane shows it yet.
func (a *App) ShowSession(sessionID string) (TabSnapshot, error) {
	snapshot, ok := a.backend.Get(sessionID)
	if !ok {
		// The backend may have restarted; fall back to the persisted copy a
		// pane still carries.
		a.workspaceMu.Lock()
		_, paneID, found := workspace.FindSessionPane(a.tabs, sessionID)
		if found {
			if pane := a.findPaneLocked(paneID); pane != nil && pane.Session != nil {
				snapshot = pane.Session.Clone()
				ok = true
			}
		}
		a.workspaceMu.Unlock()
	}
	if !ok {
		return TabSnapshot{}, fmt.Errorf("show session %s: unknown session", sessionID)
	}
	return a.openSessionTab(snapshot)
}

// openSessionTab reveals or creates the tab for a session snapshot.
func (a *App) openSessionTab(snapshot workspace.Session) (TabSnapshot, error) {
	a.workspaceMu.Lock()
	next, result := workspace.OpenSession(a.tabs, snapshot)
	a.tabs = next
	a.activeTabID = result.TabID
	idx := a.tabIndexLocked(result.TabID)
	tabSnap := a.tabSnapshotLocked(idx)
	if result.Created {
		a.emitTabsChanged()
	} else {
		a.emitLayoutChanged(result.TabID)
	}
	a.workspaceMu.Unlock()

	a.focusMu.Lock()
	a.focusedPaneID = result.PaneID
	a.focusMu.Unlock()

	slog.Info("[WS] session opened", "sessionId", snapshot.ID, "tabId", result.TabID, "created", result.Created)
	return tabSnap, nil
}

// OpenSessionsTiled starts one backend session per title and arranges them in
// a single new tab using the configured default preset.
func (a *App) OpenSessionsTiled(tabName string, titles []string) (TabSnapshot, error) {
	if len(titles) == 0 {
		return TabSnapshot{}, fmt.Errorf("open sessions tiled: no titles given")
	}
	cfg := a.currentConfig()
	a.workspaceMu.Lock()
	atCap := cfg.MaxTabs > 0 && len(a.tabs) >= cfg.MaxTabs
	a.workspaceMu.Unlock()
	if atCap {
		return TabSnapshot{}, fmt.Errorf("tab limit of %d reached", cfg.MaxTabs)
	}

	sessions := make([]workspace.Session, 0, len(titles))
	for _, title := range titles {
		snapshot, err := a.backend.Open(title)
		if err != nil {
			// Roll back the sessions already started for this tab.
			for _, started := range sessions {
				if closeErr := a.backend.Close(started.ID); closeErr != nil {
					slog.Warn("[WS] rollback close failed", "sessionId", started.ID, "error", closeErr)
				}
			}
			return TabSnapshot{}, fmt.Errorf("open session %q: %w", title, err)
		}
		sessions = append(sessions, snapshot)
	}

	preset := workspace.LayoutPreset(cfg.DefaultPreset)
	tab := workspace.NewPresetTab(tabName, preset, sessions)

	a.workspaceMu.Lock()
	a.tabs = append(a.tabs, tab)
	a.activeTabID = tab.ID
	tabSnap := a.tabSnapshotLocked(len(a.tabs) - 1)
	a.emitTabsChanged()
	a.workspaceMu.Unlock()

	a.focusMu.Lock()
	a.focusedPaneID = tab.ActivePaneID
	a.focusMu.Unlock()

	slog.Info("[WS] preset tab opened", "tabId", tab.ID, "sessions", len(sessions), "preset", preset)
	return tabSnap, nil
}

// CloseTab removes a tab and closes its backend sessions, unless another tab
// still shows them.
func (a *App) CloseTab(tabID string) error {
	a.workspaceMu.Lock()
	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		a.workspaceMu.Unlock()
		return fmt.Errorf("close tab %s: unknown tab", tabID)
	}
	closing := a.tabs[idx]
	a.tabs = workspace.CloseTab(a.tabs, tabID)
	if a.activeTabID == tabID {
		a.activeTabID = ""
		if len(a.tabs) > 0 {
			next := min(idx, len(a.tabs)-1)
			a.activeTabID = a.tabs[next].ID
		}
	}

	var orphaned []string
	for _, pane := range workspace.PaneList(closing.Layout) {
		if pane.SessionID == "" {
			continue
		}
		if _, _, stillShown := workspace.FindSessionPane(a.tabs, pane.SessionID); !stillShown {
			orphaned = append(orphaned, pane.SessionID)
		}
	}
	a.emitTabsChanged()
	a.workspaceMu.Unlock()

	for _, sessionID := range orphaned {
		if err := a.backend.Close(sessionID); err != nil {
			slog.Warn("[WS] close session after tab close failed", "sessionId", sessionID, "error", err)
		}
	}
	return nil
}

// ReorderTabs moves the dragged tab to targetIndex, keeping the relative
// order of every other tab.
func (a *App) ReorderTabs(draggedTabID string, targetIndex int) error {
	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	next := workspace.ReorderTabs(a.tabs, draggedTabID, targetIndex)
	if tabSliceUnchanged(a.tabs, next) {
		return nil
	}
	a.tabs = next
	a.emitTabsChanged()
	return nil
}

// RenameTab sets a tab's display name. An empty name is accepted and leaves
// the current name in place.
func (a *App) RenameTab(tabID string, name string) error {
	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	if a.tabIndexLocked(tabID) < 0 {
		return fmt.Errorf("rename tab %s: unknown tab", tabID)
	}
	next := workspace.RenameTab(a.tabs, tabID, name)
	if tabSliceUnchanged(a.tabs, next) {
		return nil
	}
	a.tabs = next
	a.emitTabsChanged()
	return nil
}

// SelectTab makes tabID the active tab.
func (a *App) SelectTab(tabID string) error {
	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	if a.tabIndexLocked(tabID) < 0 {
		return fmt.Errorf("select tab %s: unknown tab", tabID)
	}
	if a.activeTabID == tabID {
		return nil
	}
	a.activeTabID = tabID
	a.emitTabsChanged()
	return nil
}

// GetWorkspaceSnapshot returns the whole workspace for the frontend.
func (a *App) GetWorkspaceSnapshot() WorkspaceSnapshot {
	a.focusMu.Lock()
	focused := a.focusedPaneID
	a.focusMu.Unlock()

	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	out := WorkspaceSnapshot{
		Tabs:          make([]TabSnapshot, len(a.tabs)),
		ActiveTabID:   a.activeTabID,
		FocusedPaneID: focused,
	}
	for i := range a.tabs {
		out.Tabs[i] = a.tabSnapshotLocked(i)
	}
	return out
}

// tabIndexLocked finds a tab position by id. Caller holds workspaceMu.
func (a *App) tabIndexLocked(tabID string) int {
	for i, tab := range a.tabs {
		if tab.ID == tabID {
			return i
		}
	}
	return -1
}

// findPaneLocked searches every tab for a pane. Caller holds workspaceMu.
func (a *App) findPaneLocked(paneID string) *workspace.Pane {
	for _, tab := range a.tabs {
		if pane := workspace.FindPane(tab.Layout, paneID); pane != nil {
			return pane
		}
	}
	return nil
}

// tabSnapshotLocked builds the DTO for the tab at idx. Caller holds
// workspaceMu.
func (a *App) tabSnapshotLocked(idx int) TabSnapshot {
	tab := a.tabs[idx]
	return TabSnapshot{
		ID:           tab.ID,
		Name:         tab.Name,
		ActivePaneID: tab.ActivePaneID,
		Layout:       workspace.EncodeNode(tab.Layout),
	}
}

// tabSummariesLocked builds the event payload for tab list changes. Caller
// holds workspaceMu.
func (a *App) tabSummariesLocked() []TabSummary {
	out := make([]TabSummary, len(a.tabs))
	for i, tab := range a.tabs {
		out[i] = TabSummary{
			ID:           tab.ID,
			Name:         tab.Name,
			ActivePaneID: tab.ActivePaneID,
			PaneCount:    len(workspace.PaneList(tab.Layout)),
		}
	}
	return out
}

// tabSliceUnchanged reports whether an operation returned the input slice,
// the no-change signal of the workspace package.
func tabSliceUnchanged(before, after []*workspace.Tab) bool {
	if len(before) != len(after) {
		return false
	}
	if len(before) == 0 {
		return true
	}
	return &before[0] == &after[0]
}
