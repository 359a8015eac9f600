package main

import (
	"testing"

	"deskmux/internal/workspace"
)

func TestSplitPaneAddsSibling(t *testing.T) {
	app, _, events := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	before := events.count("workspace:layout-changed")

	newPaneID, err := app.SplitPane(tab.ID, tab.ActivePaneID, "horizontal", "logs")
	if err != nil {
		t.Fatalf("SplitPane: %v", err)
	}
	if newPaneID == "" || newPaneID == tab.ActivePaneID {
		t.Fatalf("new pane id = %q", newPaneID)
	}

	snapshot := app.GetWorkspaceSnapshot()
	full := snapshot.Tabs[0]
	if got := countPaneDTOs(full.Layout); got != 2 {
		t.Fatalf("panes = %d, want 2", got)
	}
	if full.ActivePaneID != newPaneID {
		t.Fatalf("active pane = %s, want the new pane %s", full.ActivePaneID, newPaneID)
	}
	if snapshot.FocusedPaneID != newPaneID {
		t.Fatalf("focused pane = %s, want %s", snapshot.FocusedPaneID, newPaneID)
	}
	if events.count("workspace:layout-changed") != before+1 {
		t.Fatal("split must emit one layout change")
	}

	if _, err := app.SplitPane(tab.ID, "ghost", "horizontal", "x"); err == nil {
		t.Fatal("expected error for unknown pane")
	}
	if _, err := app.SplitPane(tab.ID, newPaneID, "diagonal", "x"); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestClosePaneCollapsesIntoSibling(t *testing.T) {
	app, fb, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	originalPaneID := tab.ActivePaneID
	newPaneID, err := app.SplitPane(tab.ID, originalPaneID, "vertical", "logs")
	if err != nil {
		t.Fatalf("SplitPane: %v", err)
	}
	snapshot := app.GetWorkspaceSnapshot()
	closedSessionID := findPaneSessionID(snapshot.Tabs[0], newPaneID)

	if err := app.ClosePane(tab.ID, newPaneID); err != nil {
		t.Fatalf("ClosePane: %v", err)
	}
	snapshot = app.GetWorkspaceSnapshot()
	full := snapshot.Tabs[0]
	if got := countPaneDTOs(full.Layout); got != 1 {
		t.Fatalf("panes = %d, want 1", got)
	}
	if full.Layout.ID != originalPaneID {
		t.Fatalf("surviving pane = %s, want %s", full.Layout.ID, originalPaneID)
	}
	if full.ActivePaneID != originalPaneID {
		t.Fatalf("active pane = %s, want %s", full.ActivePaneID, originalPaneID)
	}

	closed := fb.closedSessions()
	if len(closed) != 1 || closed[0] != closedSessionID {
		t.Fatalf("closed sessions = %v, want [%s]", closed, closedSessionID)
	}
}

func TestClosingLastPaneClosesTab(t *testing.T) {
	app, fb, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	sessionID := tab.Layout.SessionID

	if err := app.ClosePane(tab.ID, tab.ActivePaneID); err != nil {
		t.Fatalf("ClosePane: %v", err)
	}
	if got := app.GetWorkspaceSnapshot(); len(got.Tabs) != 0 {
		t.Fatalf("tabs = %d, want 0", len(got.Tabs))
	}
	closed := fb.closedSessions()
	if len(closed) != 1 || closed[0] != sessionID {
		t.Fatalf("closed sessions = %v, want [%s]", closed, sessionID)
	}
}

func TestFocusAndCyclePane(t *testing.T) {
	app, _, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	first := tab.ActivePaneID
	second, err := app.SplitPane(tab.ID, first, "horizontal", "logs")
	if err != nil {
		t.Fatalf("SplitPane: %v", err)
	}

	if err := app.FocusPane(tab.ID, first); err != nil {
		t.Fatalf("FocusPane: %v", err)
	}
	snapshot := app.GetWorkspaceSnapshot()
	if snapshot.FocusedPaneID != first || snapshot.Tabs[0].ActivePaneID != first {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	next, err := app.CyclePaneFocus(tab.ID)
	if err != nil {
		t.Fatalf("CyclePaneFocus: %v", err)
	}
	if next != second {
		t.Fatalf("cycled to %s, want %s", next, second)
	}
	// Cycling wraps.
	next, err = app.CyclePaneFocus(tab.ID)
	if err != nil {
		t.Fatalf("CyclePaneFocus: %v", err)
	}
	if next != first {
		t.Fatalf("cycled to %s, want wrap to %s", next, first)
	}

	if err := app.FocusPane(tab.ID, "ghost"); err == nil {
		t.Fatal("expected error for unknown pane")
	}
}

func TestSwapPanes(t *testing.T) {
	app, _, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	first := tab.ActivePaneID
	second, err := app.SplitPane(tab.ID, first, "horizontal", "logs")
	if err != nil {
		t.Fatalf("SplitPane: %v", err)
	}
	before := app.GetWorkspaceSnapshot().Tabs[0]
	firstSession := findPaneSessionID(before, first)
	secondSession := findPaneSessionID(before, second)

	if err := app.SwapPanes(tab.ID, first, second); err != nil {
		t.Fatalf("SwapPanes: %v", err)
	}
	after := app.GetWorkspaceSnapshot().Tabs[0]
	if got := findPaneSessionID(after, first); got != secondSession {
		t.Fatalf("pane %s shows %s, want %s", first, got, secondSession)
	}
	if got := findPaneSessionID(after, second); got != firstSession {
		t.Fatalf("pane %s shows %s, want %s", second, got, firstSession)
	}

	if err := app.SwapPanes(tab.ID, first, "ghost"); err == nil {
		t.Fatal("expected error when one pane is missing")
	}
}

// findPaneSessionID walks a tab snapshot for the session shown by paneID.
func findPaneSessionID(tab TabSnapshot, paneID string) string {
	var walk func(dto *workspace.NodeDTO) string
	walk = func(dto *workspace.NodeDTO) string {
		if dto == nil {
			return ""
		}
		if dto.ID == paneID {
			return dto.SessionID
		}
		for _, child := range dto.Children {
			if got := walk(child); got != "" {
				return got
			}
		}
		return ""
	}
	return walk(tab.Layout)
}
