package main

import (
	"fmt"
	"log/slog"

	"deskmux/internal/workspace"
)

// SplitPane starts a new backend session and places it next to paneID.
// direction is "horizontal" or "vertical". Returns the new pane's id.
func (a *App) SplitPane(tabID string, paneID string, direction string, title string) (string, error) {
	dir := workspace.SplitDirection(direction)
	if !dir.Valid() {
		return "", fmt.Errorf("split pane: invalid direction %q", direction)
	}

	a.workspaceMu.Lock()
	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		a.workspaceMu.Unlock()
		return "", fmt.Errorf("split pane: unknown tab %s", tabID)
	}
	if workspace.FindPane(a.tabs[idx].Layout, paneID) == nil {
		a.workspaceMu.Unlock()
		return "", fmt.Errorf("split pane: pane %s not in tab %s", paneID, tabID)
	}
	a.workspaceMu.Unlock()

	snapshot, err := a.backend.Open(title)
	if err != nil {
		return "", fmt.Errorf("split pane: %w", err)
	}

	a.workspaceMu.Lock()
	// Re-check under the lock; the tab may have closed while the session
	// started. The orphaned session is cleaned up below.
	idx = a.tabIndexLocked(tabID)
	if idx < 0 || workspace.FindPane(a.tabs[idx].Layout, paneID) == nil {
		a.workspaceMu.Unlock()
		if closeErr := a.backend.Close(snapshot.ID); closeErr != nil {
			slog.Warn("[WS] orphaned split session close failed", "sessionId", snapshot.ID, "error", closeErr)
		}
		return "", fmt.Errorf("split pane: pane %s disappeared", paneID)
	}

	tab := a.tabs[idx]
	nextLayout := workspace.SplitPane(tab.Layout, paneID, dir, snapshot)
	var newPaneID string
	for _, pane := range workspace.PaneList(nextLayout) {
		if pane.SessionID == snapshot.ID {
			newPaneID = pane.ID
			break
		}
	}
	updated := *tab
	updated.Layout = nextLayout
	updated.ActivePaneID = newPaneID
	a.tabs = append(a.tabs[:idx:idx], append([]*workspace.Tab{&updated}, a.tabs[idx+1:]...)...)
	a.emitLayoutChanged(tabID)
	a.workspaceMu.Unlock()

	a.focusMu.Lock()
	a.focusedPaneID = newPaneID
	a.focusMu.Unlock()

	slog.Info("[WS] pane split", "tabId", tabID, "paneId", paneID, "newPaneId", newPaneID, "direction", dir)
	return newPaneID, nil
}

// ClosePane removes a pane; the sibling absorbs its space. Closing the last
// pane of a tab closes the tab.
func (a *App) ClosePane(tabID string, paneID string) error {
	a.workspaceMu.Lock()
	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		a.workspaceMu.Unlock()
		return fmt.Errorf("close pane: unknown tab %s", tabID)
	}
	tab := a.tabs[idx]
	pane := workspace.FindPane(tab.Layout, paneID)
	if pane == nil {
		a.workspaceMu.Unlock()
		return fmt.Errorf("close pane: pane %s not in tab %s", paneID, tabID)
	}
	sessionID := pane.SessionID

	nextLayout := workspace.RemovePane(tab.Layout, paneID)
	if nextLayout == nil {
		// Last pane: the tab goes with it.
		a.workspaceMu.Unlock()
		return a.CloseTab(tabID)
	}
	updated := *tab
	updated.Layout = nextLayout
	if updated.ActivePaneID == paneID {
		if panes := workspace.PaneList(nextLayout); len(panes) > 0 {
			updated.ActivePaneID = panes[0].ID
		}
	}
	a.tabs = append(a.tabs[:idx:idx], append([]*workspace.Tab{&updated}, a.tabs[idx+1:]...)...)
	stillShown := false
	if sessionID != "" {
		_, _, stillShown = workspace.FindSessionPane(a.tabs, sessionID)
	}
	a.emitLayoutChanged(tabID)
	a.workspaceMu.Unlock()

	if sessionID != "" && !stillShown {
		if err := a.backend.Close(sessionID); err != nil {
			slog.Warn("[WS] close session after pane close failed", "sessionId", sessionID, "error", err)
		}
	}
	return nil
}

// FocusPane makes paneID the active pane of its tab and the focused pane of
// the workspace.
func (a *App) FocusPane(tabID string, paneID string) error {
	a.workspaceMu.Lock()
	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		a.workspaceMu.Unlock()
		return fmt.Errorf("focus pane: unknown tab %s", tabID)
	}
	if workspace.FindPane(a.tabs[idx].Layout, paneID) == nil {
		a.workspaceMu.Unlock()
		return fmt.Errorf("focus pane: pane %s not in tab %s", paneID, tabID)
	}
	next := workspace.SetActivePane(a.tabs, tabID, paneID)
	if !tabSliceUnchanged(a.tabs, next) {
		a.tabs = next
		a.emitLayoutChanged(tabID)
	}
	a.activeTabID = tabID
	a.workspaceMu.Unlock()

	a.focusMu.Lock()
	a.focusedPaneID = paneID
	a.focusMu.Unlock()
	return nil
}

// CyclePaneFocus moves the tab's active pane forward in layout order.
func (a *App) CyclePaneFocus(tabID string) (string, error) {
	a.workspaceMu.Lock()
	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		a.workspaceMu.Unlock()
		return "", fmt.Errorf("cycle pane focus: unknown tab %s", tabID)
	}
	next := workspace.ActivateNextPane(a.tabs, tabID)
	if !tabSliceUnchanged(a.tabs, next) {
		a.tabs = next
		a.emitLayoutChanged(tabID)
	}
	active := next[a.tabIndexLocked(tabID)].ActivePaneID
	a.workspaceMu.Unlock()

	a.focusMu.Lock()
	a.focusedPaneID = active
	a.focusMu.Unlock()
	return active, nil
}

// SwapPanes exchanges the sessions shown by two panes of one tab.
func (a *App) SwapPanes(tabID string, firstPaneID string, secondPaneID string) error {
	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	idx := a.tabIndexLocked(tabID)
	if idx < 0 {
		return fmt.Errorf("swap panes: unknown tab %s", tabID)
	}
	tab := a.tabs[idx]
	nextLayout := workspace.SwapPanes(tab.Layout, firstPaneID, secondPaneID)
	if nextLayout == tab.Layout {
		return fmt.Errorf("swap panes: %s and %s not both in tab %s", firstPaneID, secondPaneID, tabID)
	}
	updated := *tab
	updated.Layout = nextLayout
	a.tabs = append(a.tabs[:idx:idx], append([]*workspace.Tab{&updated}, a.tabs[idx+1:]...)...)
	a.emitLayoutChanged(tabID)
	return nil
}

// SendInput writes keystrokes to a session's terminal.
func (a *App) SendInput(sessionID string, data string) error {
	return a.backend.Write(sessionID, []byte(data))
}

// ResizePane resizes a session's terminal to match its pane.
func (a *App) ResizePane(sessionID string, cols int, rows int) error {
	return a.backend.Resize(sessionID, cols, rows)
}
