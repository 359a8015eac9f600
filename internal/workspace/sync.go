package workspace

// RefreshResult identifies the pane whose snapshot a refresh replaced.
type RefreshResult struct {
	TabID   string
	PaneID  string
	Created bool
}

// RefreshSession reconciles an updated session snapshot into the workspace:
// it locates the first pane (tabs scanned in order, panes in pre-order) bound
// to incoming.ID and replaces that pane's snapshot with the existing snapshot
// merged with incoming. Only fields present in incoming are authoritative.
//
// The containing tab is shallow-copied with the new layout; every other tab,
// and every pane other than the matched one, keeps its object identity. When
// no pane holds the session the event is dropped: tabs is returned unchanged
// with a nil result. That is the expected outcome for background sessions
// not opened in this window.
func RefreshSession(tabs []*Tab, incoming Session) ([]*Tab, *RefreshResult) {
	for idx, tab := range tabs {
		for _, pane := range PaneList(tab.Layout) {
			if pane.SessionID != incoming.ID {
				continue
			}
			merged := incoming
			if pane.Session != nil {
				merged = pane.Session.Merge(incoming)
			}
			layout := UpdatePaneSession(tab.Layout, pane.ID, merged)
			if layout == tab.Layout {
				// Pane was found by session id, so the id lookup cannot miss.
				return tabs, nil
			}
			updated := *tab
			updated.Layout = layout
			return replaceTab(tabs, idx, &updated), &RefreshResult{TabID: tab.ID, PaneID: pane.ID}
		}
	}
	return tabs, nil
}

// FindSessionPane returns the first tab/pane holding sessionID, in the same
// scan order as RefreshSession. Returns ("", "", false) when not open.
func FindSessionPane(tabs []*Tab, sessionID string) (tabID string, paneID string, ok bool) {
	for _, tab := range tabs {
		for _, pane := range PaneList(tab.Layout) {
			if pane.SessionID == sessionID {
				return tab.ID, pane.ID, true
			}
		}
	}
	return "", "", false
}
