package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Tab is one workspace tab: a layout tree plus bookkeeping.
// Tabs follow the same immutability contract as layout trees: operations on a
// tab sequence return new slices/new *Tab values and leave untouched tabs
// with their original identity, so the rendering layer can diff by reference.
type Tab struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Layout       Node      `json:"-"`
	ActivePaneID string    `json:"activePaneId"`
	OpenedAt     time.Time `json:"openedAt"`
}

// NewTab creates a tab holding a single pane bound to session.
func NewTab(session Session) *Tab {
	pane := NewPaneLayout(session)
	return &Tab{
		ID:           uuid.NewString(),
		Name:         session.DisplayName(),
		Layout:       pane,
		ActivePaneID: pane.ID,
		OpenedAt:     time.Now(),
	}
}

// NewPresetTab creates a tab with one pane per session arranged by preset.
// Returns nil for an empty session list.
func NewPresetTab(name string, preset LayoutPreset, sessions []Session) *Tab {
	layout := BuildPresetLayout(preset, sessions)
	if layout == nil {
		return nil
	}
	panes := PaneList(layout)
	if name == "" && len(sessions) > 0 {
		name = sessions[0].DisplayName()
	}
	return &Tab{
		ID:           uuid.NewString(),
		Name:         name,
		Layout:       layout,
		ActivePaneID: panes[0].ID,
		OpenedAt:     time.Now(),
	}
}

// ReorderTabs moves the tab with draggedTabID to targetIndex, preserving the
// relative order of every other tab. targetIndex addresses the sequence after
// the dragged tab is removed and is clamped into range. Returns tabs itself
// when draggedTabID is absent or already at targetIndex.
func ReorderTabs(tabs []*Tab, draggedTabID string, targetIndex int) []*Tab {
	from := tabIndex(tabs, draggedTabID)
	if from < 0 {
		return tabs
	}
	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(tabs)-1 {
		targetIndex = len(tabs) - 1
	}
	if from == targetIndex {
		return tabs
	}
	out := make([]*Tab, 0, len(tabs))
	out = append(out, tabs[:from]...)
	out = append(out, tabs[from+1:]...)
	dragged := tabs[from]
	out = append(out[:targetIndex], append([]*Tab{dragged}, out[targetIndex:]...)...)
	return out
}

// OpenSession opens session in the workspace with dedup: if any tab already
// holds a pane bound to session.ID, that pane's snapshot is refreshed in
// place (first matching tab in sequence order wins) and no tab is created.
// Otherwise a fresh single-pane tab is appended at the end, with Created set
// on the result.
func OpenSession(tabs []*Tab, session Session) ([]*Tab, RefreshResult) {
	if next, result := RefreshSession(tabs, session); result != nil {
		return next, *result
	}
	tab := NewTab(session)
	out := make([]*Tab, 0, len(tabs)+1)
	out = append(out, tabs...)
	out = append(out, tab)
	return out, RefreshResult{TabID: tab.ID, PaneID: tab.ActivePaneID, Created: true}
}

// CloseTab removes the tab with tabID. Closing a tab has no effect on any
// other tab. Returns tabs itself when tabID is absent.
func CloseTab(tabs []*Tab, tabID string) []*Tab {
	idx := tabIndex(tabs, tabID)
	if idx < 0 {
		return tabs
	}
	out := make([]*Tab, 0, len(tabs)-1)
	out = append(out, tabs[:idx]...)
	out = append(out, tabs[idx+1:]...)
	return out
}

// RenameTab sets the display name of the tab with tabID. An empty name is
// accepted but changes nothing (the rename wizard allows advancing with empty
// input; empty input is simply not persisted). Returns tabs itself when
// nothing changes.
func RenameTab(tabs []*Tab, tabID string, name string) []*Tab {
	if name == "" {
		return tabs
	}
	idx := tabIndex(tabs, tabID)
	if idx < 0 || tabs[idx].Name == name {
		return tabs
	}
	renamed := *tabs[idx]
	renamed.Name = name
	return replaceTab(tabs, idx, &renamed)
}

// SetActivePane points the tab's active pane at paneID. Returns tabs itself
// when tabID is absent, paneID is not in the tab's layout, or the pane is
// already active.
func SetActivePane(tabs []*Tab, tabID string, paneID string) []*Tab {
	idx := tabIndex(tabs, tabID)
	if idx < 0 || tabs[idx].ActivePaneID == paneID {
		return tabs
	}
	if FindPane(tabs[idx].Layout, paneID) == nil {
		return tabs
	}
	updated := *tabs[idx]
	updated.ActivePaneID = paneID
	return replaceTab(tabs, idx, &updated)
}

// ActivateNextPane cycles the tab's active pane forward in pre-order,
// wrapping at the end. Returns tabs itself for single-pane tabs or when
// tabID is absent.
func ActivateNextPane(tabs []*Tab, tabID string) []*Tab {
	idx := tabIndex(tabs, tabID)
	if idx < 0 {
		return tabs
	}
	panes := PaneList(tabs[idx].Layout)
	if len(panes) < 2 {
		return tabs
	}
	next := panes[0].ID
	for i, pane := range panes {
		if pane.ID == tabs[idx].ActivePaneID {
			next = panes[(i+1)%len(panes)].ID
			break
		}
	}
	return SetActivePane(tabs, tabID, next)
}

func tabIndex(tabs []*Tab, tabID string) int {
	for i, tab := range tabs {
		if tab.ID == tabID {
			return i
		}
	}
	return -1
}

func replaceTab(tabs []*Tab, idx int, tab *Tab) []*Tab {
	out := make([]*Tab, len(tabs))
	copy(out, tabs)
	out[idx] = tab
	return out
}
