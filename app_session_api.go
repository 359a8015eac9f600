package main

import (
	"fmt"
	"log/slog"
	"sort"

	"deskmux/internal/workspace"
)

// SessionInfo pairs a session snapshot with where it is shown, if anywhere.
type SessionInfo struct {
	Session workspace.Session `json:"session"`
	TabID   string            `json:"tabId,omitempty"`
	PaneID  string            `json:"paneId,omitempty"`
}

// ListSessions returns every backend session, sorted by display name, with
// the tab and pane currently showing it.
func (a *App) ListSessions() []SessionInfo {
	sessions := a.backend.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].DisplayName() < sessions[j].DisplayName()
	})

	a.workspaceMu.Lock()
	defer a.workspaceMu.Unlock()

	out := make([]SessionInfo, len(sessions))
	for i, session := range sessions {
		info := SessionInfo{Session: session}
		if tabID, paneID, ok := workspace.FindSessionPane(a.tabs, session.ID); ok {
			info.TabID = tabID
			info.PaneID = paneID
		}
		out[i] = info
	}
	return out
}

// SetSessionLabel stores a user-assigned label on a session. The label
// reaches panes through the regular reconciliation stream.
func (a *App) SetSessionLabel(sessionID string, label string) error {
	if err := a.backend.SetLabel(sessionID, label); err != nil {
		return fmt.Errorf("set session label: %w", err)
	}
	return nil
}

// CloseSession terminates a backend session. Panes showing it keep their
// last snapshot until its exited status arrives.
func (a *App) CloseSession(sessionID string) error {
	if err := a.backend.Close(sessionID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	slog.Info("[WS] session close requested", "sessionId", sessionID)
	return nil
}
