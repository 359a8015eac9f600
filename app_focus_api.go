package main

import (
	"fmt"

	"deskmux/internal/focus"

	"github.com/google/uuid"
)

// panesSurface adapts the app's frontend-reported focus state to the
// focus.Surface capability. Focus requests are forwarded to the WebView as
// events; the optimistic local update keeps order-independent restores
// working even before the frontend confirms.
type panesSurface struct {
	app *App
}

func (s panesSurface) Focused() (string, bool) {
	s.app.focusMu.Lock()
	defer s.app.focusMu.Unlock()
	return s.app.focusedPaneID, s.app.focusedPaneID != ""
}

func (s panesSurface) Attached(paneID string) bool {
	s.app.workspaceMu.Lock()
	defer s.app.workspaceMu.Unlock()
	return s.app.findPaneLocked(paneID) != nil
}

func (s panesSurface) Focus(paneID string) bool {
	if !s.Attached(paneID) {
		return false
	}
	s.app.focusMu.Lock()
	s.app.focusedPaneID = paneID
	s.app.focusMu.Unlock()
	s.app.emitRuntimeEvent("workspace:focus-pane", paneID)
	return true
}

func (s panesSurface) Blur() {
	s.app.focusMu.Lock()
	s.app.focusedPaneID = ""
	s.app.focusMu.Unlock()
	s.app.emitRuntimeEvent("workspace:blur-pane", nil)
}

// ReportPaneFocus records the pane the frontend says now holds focus.
func (a *App) ReportPaneFocus(paneID string) {
	a.focusMu.Lock()
	a.focusedPaneID = paneID
	a.focusMu.Unlock()
}

// ReportPaneBlur records that no pane holds focus.
func (a *App) ReportPaneBlur() {
	a.focusMu.Lock()
	a.focusedPaneID = ""
	a.focusMu.Unlock()
}

// SaveFocus captures the current focus for a later RestoreFocus. fallbackPaneID
// names the pane an overlay is about to raise; it becomes the restore target
// when the originally focused pane is gone by restore time. Returns a token.
func (a *App) SaveFocus(fallbackPaneID string) string {
	snapshot := focus.Save(panesSurface{app: a}, fallbackPaneID)
	token := uuid.NewString()

	a.focusMu.Lock()
	a.focusSnapshots[token] = snapshot
	a.focusMu.Unlock()
	return token
}

// RestoreFocus re-applies the focus captured under token. Safe to call more
// than once; only the first call moves focus. The token is consumed.
func (a *App) RestoreFocus(token string) error {
	a.focusMu.Lock()
	snapshot, ok := a.focusSnapshots[token]
	delete(a.focusSnapshots, token)
	a.focusMu.Unlock()

	if !ok {
		return fmt.Errorf("restore focus: unknown token %s", token)
	}
	snapshot.Restore()
	return nil
}
