package workspace

import (
	"testing"
)

func testSession(id string, status Status) Session {
	return Session{ID: id, Title: "session " + id, Status: status}
}

// splitLayoutFixture builds pane-left|pane-right and returns the tree plus
// both leaves.
func splitLayoutFixture(t *testing.T) (*Split, *Pane, *Pane) {
	t.Helper()
	left := NewPaneLayout(testSession("session-left", StatusIdle))
	right := NewPaneLayout(testSession("session-right", StatusIdle))
	root := &Split{
		Direction: SplitHorizontal,
		Ratio:     0.5,
		Children:  [2]Node{left, right},
	}
	return root, left, right
}

func TestNewPaneLayoutBindsSessionCopy(t *testing.T) {
	session := testSession("s1", StatusRunning)
	session.Extra = map[string]string{"cwd": "/tmp"}

	pane := NewPaneLayout(session)
	if pane.ID == "" {
		t.Fatal("expected fresh pane id")
	}
	if pane.SessionID != "s1" {
		t.Fatalf("SessionID = %q, want s1", pane.SessionID)
	}
	if pane.Session == nil || pane.Session.ID != "s1" {
		t.Fatalf("pane session = %+v, want bound snapshot", pane.Session)
	}

	// The pane holds a copy: mutating the caller's map must not leak in.
	session.Extra["cwd"] = "/elsewhere"
	if pane.Session.Extra["cwd"] != "/tmp" {
		t.Fatalf("pane snapshot shares Extra map with caller")
	}
}

func TestPaneListPreOrderAndRestartable(t *testing.T) {
	root, left, right := splitLayoutFixture(t)
	inner := SplitPane(root, right.ID, SplitVertical, testSession("s3", StatusIdle))

	first := PaneList(inner)
	second := PaneList(inner)

	if len(first) != 3 {
		t.Fatalf("pane count = %d, want 3", len(first))
	}
	if first[0] != left {
		t.Fatalf("pre-order: first pane = %s, want left pane %s", first[0].ID, left.ID)
	}
	if first[1] != right {
		t.Fatalf("pre-order: second pane = %s, want right pane %s", first[1].ID, right.ID)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("traversal not restartable: run differs at %d", i)
		}
	}
}

func TestUpdatePaneSessionSharesSiblings(t *testing.T) {
	root, left, right := splitLayoutFixture(t)

	updated := UpdatePaneSession(root, right.ID, testSession("session-right", StatusRunning))

	if updated == Node(root) {
		t.Fatal("expected a new root after update")
	}
	split, ok := updated.(*Split)
	if !ok {
		t.Fatalf("root = %T, want *Split", updated)
	}
	if split.Children[0] != Node(left) {
		t.Fatal("untouched sibling lost identity")
	}
	newRight, ok := split.Children[1].(*Pane)
	if !ok || newRight == right {
		t.Fatal("target pane should be a fresh node")
	}
	if newRight.ID != right.ID {
		t.Fatalf("pane id changed: %s -> %s", right.ID, newRight.ID)
	}
	if newRight.Session.Status != StatusRunning {
		t.Fatalf("session status = %s, want running", newRight.Session.Status)
	}
	// Original tree untouched.
	if right.Session.Status != StatusIdle {
		t.Fatalf("input tree mutated: status = %s", right.Session.Status)
	}
}

func TestUpdatePaneSessionMissIsIdentity(t *testing.T) {
	root, _, _ := splitLayoutFixture(t)
	if got := UpdatePaneSession(root, "no-such-pane", testSession("x", StatusIdle)); got != Node(root) {
		t.Fatal("miss must return the original root reference")
	}
	if got := UpdatePaneSession(nil, "any", testSession("x", StatusIdle)); got != nil {
		t.Fatal("empty root must stay empty")
	}
}

func TestSplitPane(t *testing.T) {
	pane := NewPaneLayout(testSession("s1", StatusIdle))

	root := SplitPane(pane, pane.ID, SplitVertical, testSession("s2", StatusIdle))
	split, ok := root.(*Split)
	if !ok {
		t.Fatalf("root = %T, want *Split", root)
	}
	if split.Ratio != 0.5 {
		t.Fatalf("ratio = %v, want 0.5", split.Ratio)
	}
	if split.Direction != SplitVertical {
		t.Fatalf("direction = %s, want vertical", split.Direction)
	}
	if split.Children[0] != Node(pane) {
		t.Fatal("first child must be the original pane unchanged")
	}
	fresh, ok := split.Children[1].(*Pane)
	if !ok || fresh.SessionID != "s2" {
		t.Fatalf("second child = %+v, want fresh pane bound to s2", split.Children[1])
	}

	if got := SplitPane(pane, "absent", SplitVertical, testSession("s3", StatusIdle)); got != Node(pane) {
		t.Fatal("miss must return the original root reference")
	}
}

func TestRemovePaneCollapsesIntoSurvivingSibling(t *testing.T) {
	root, left, right := splitLayoutFixture(t)
	// Split the right pane once more so the surviving subtree is non-trivial.
	grown := SplitPane(root, right.ID, SplitVertical, testSession("s3", StatusIdle))
	rightSubtree := grown.(*Split).Children[1]

	collapsed := RemovePane(grown, left.ID)
	if collapsed != rightSubtree {
		t.Fatal("collapse must yield the surviving sibling subtree by identity")
	}

	// Removing both remaining panes empties the layout.
	remaining := PaneList(collapsed)
	step := RemovePane(collapsed, remaining[0].ID)
	if step != Node(remaining[1]) {
		t.Fatal("second collapse must yield the last pane")
	}
	if got := RemovePane(step, remaining[1].ID); got != nil {
		t.Fatalf("removing the last pane = %v, want empty root", got)
	}
}

func TestRemovePaneMissIsIdentity(t *testing.T) {
	root, _, _ := splitLayoutFixture(t)
	if got := RemovePane(root, "absent"); got != Node(root) {
		t.Fatal("miss must return the original root reference")
	}
	if got := RemovePane(nil, "absent"); got != nil {
		t.Fatal("empty root stays empty")
	}
}

func TestSwapPanes(t *testing.T) {
	root, left, right := splitLayoutFixture(t)

	swapped := SwapPanes(root, left.ID, right.ID)
	if swapped == Node(root) {
		t.Fatal("expected a new root after swap")
	}
	panes := PaneList(swapped)
	if panes[0] != right || panes[1] != left {
		t.Fatal("swap must exchange leaf positions keeping identity")
	}

	if got := SwapPanes(root, left.ID, "absent"); got != Node(root) {
		t.Fatal("swap with missing pane must be identity")
	}
	if got := SwapPanes(root, left.ID, left.ID); got != Node(root) {
		t.Fatal("self swap must be identity")
	}
}

func TestBuildPresetLayout(t *testing.T) {
	sessions := []Session{
		testSession("a", StatusIdle),
		testSession("b", StatusIdle),
		testSession("c", StatusIdle),
	}

	tests := []struct {
		name   string
		preset LayoutPreset
		count  int
	}{
		{name: "even horizontal", preset: PresetEvenHorizontal, count: 3},
		{name: "even vertical", preset: PresetEvenVertical, count: 3},
		{name: "main vertical", preset: PresetMainVertical, count: 3},
		{name: "main horizontal", preset: PresetMainHorizontal, count: 3},
		{name: "tiled", preset: PresetTiled, count: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := BuildPresetLayout(tt.preset, sessions)
			panes := PaneList(root)
			if len(panes) != tt.count {
				t.Fatalf("pane count = %d, want %d", len(panes), tt.count)
			}
			for i, pane := range panes {
				if pane.SessionID != sessions[i].ID {
					t.Fatalf("pane %d bound to %s, want %s (order preserved)", i, pane.SessionID, sessions[i].ID)
				}
			}
		})
	}

	if got := BuildPresetLayout(PresetTiled, nil); got != nil {
		t.Fatal("empty session list must produce an empty layout")
	}
	single := BuildPresetLayout(PresetEvenHorizontal, sessions[:1])
	if _, ok := single.(*Pane); !ok {
		t.Fatalf("single session layout = %T, want bare pane", single)
	}
}

func TestMainSplitRatio(t *testing.T) {
	sessions := []Session{
		testSession("a", StatusIdle),
		testSession("b", StatusIdle),
		testSession("c", StatusIdle),
	}
	root := BuildPresetLayout(PresetMainVertical, sessions)
	split, ok := root.(*Split)
	if !ok {
		t.Fatalf("root = %T, want *Split", root)
	}
	if split.Ratio != 0.6 {
		t.Fatalf("main ratio = %v, want 0.6", split.Ratio)
	}
	if _, ok := split.Children[0].(*Pane); !ok {
		t.Fatal("main area must hold the first pane")
	}
}
