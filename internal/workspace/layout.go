package workspace

import "github.com/google/uuid"

// SplitDirection is the pane split axis.
type SplitDirection string

const (
	SplitHorizontal SplitDirection = "horizontal"
	SplitVertical   SplitDirection = "vertical"
)

// Valid reports whether d is a known split direction.
func (d SplitDirection) Valid() bool {
	return d == SplitHorizontal || d == SplitVertical
}

// Node is one node of a tab's layout tree: either a *Pane leaf or a *Split
// internal node. A nil Node is the empty layout (tab with no panes left).
//
// Layout trees are immutable. Every mutating operation returns a new tree
// that shares all untouched subtrees with the input by reference, so callers
// can use reference inequality as the "did anything change" signal instead of
// deep comparison. An operation whose target pane id is not found returns the
// input root unchanged.
type Node interface {
	node()
}

// Pane is a leaf bound to at most one backend session.
// If SessionID is non-empty, Session is the snapshot copy for that id.
type Pane struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionId,omitempty"`
	Session   *Session `json:"session,omitempty"`
}

func (*Pane) node() {}

// Split divides space between exactly two children along one axis.
// Ratio is the relative size of Children[0], strictly inside (0,1).
type Split struct {
	Direction SplitDirection `json:"direction"`
	Ratio     float64        `json:"ratio"`
	Children  [2]Node        `json:"children"`
}

func (*Split) node() {}

// NewPaneLayout builds a single-pane layout bound to a copy of session.
func NewPaneLayout(session Session) *Pane {
	s := session.Clone()
	return &Pane{
		ID:        uuid.NewString(),
		SessionID: s.ID,
		Session:   &s,
	}
}

// PaneList returns every pane reachable from root in pre-order
// (Children[0] before Children[1]). The traversal never mutates the tree and
// yields identical sequences on repeated calls over the same root.
func PaneList(root Node) []*Pane {
	var panes []*Pane
	var walk func(Node)
	walk = func(n Node) {
		switch node := n.(type) {
		case *Pane:
			panes = append(panes, node)
		case *Split:
			walk(node.Children[0])
			walk(node.Children[1])
		}
	}
	walk(root)
	return panes
}

// FindPane returns the pane with the given id, or nil.
func FindPane(root Node, paneID string) *Pane {
	for _, pane := range PaneList(root) {
		if pane.ID == paneID {
			return pane
		}
	}
	return nil
}

// UpdatePaneSession returns a tree equal to root except that the pane with
// paneID holds a copy of session (SessionID synced to session.ID). Ancestors
// on the path to the pane are shallow-copied; siblings keep their identity.
// Returns root itself when paneID is absent.
func UpdatePaneSession(root Node, paneID string, session Session) Node {
	switch node := root.(type) {
	case *Pane:
		if node.ID != paneID {
			return node
		}
		s := session.Clone()
		return &Pane{ID: node.ID, SessionID: s.ID, Session: &s}
	case *Split:
		if next := UpdatePaneSession(node.Children[0], paneID, session); next != node.Children[0] {
			out := *node
			out.Children[0] = next
			return &out
		}
		if next := UpdatePaneSession(node.Children[1], paneID, session); next != node.Children[1] {
			out := *node
			out.Children[1] = next
			return &out
		}
		return node
	}
	return root
}

// SplitPane replaces the pane with paneID by a half-ratio split whose first
// child is the original pane (same reference) and second child a fresh pane
// bound to newSession. Returns root itself when paneID is absent.
func SplitPane(root Node, paneID string, direction SplitDirection, newSession Session) Node {
	switch node := root.(type) {
	case *Pane:
		if node.ID != paneID {
			return node
		}
		return &Split{
			Direction: direction,
			Ratio:     0.5,
			Children:  [2]Node{node, NewPaneLayout(newSession)},
		}
	case *Split:
		if next := SplitPane(node.Children[0], paneID, direction, newSession); next != node.Children[0] {
			out := *node
			out.Children[0] = next
			return &out
		}
		if next := SplitPane(node.Children[1], paneID, direction, newSession); next != node.Children[1] {
			out := *node
			out.Children[1] = next
			return &out
		}
		return node
	}
	return root
}

// RemovePane removes the pane with paneID. A split losing one child collapses
// into the surviving sibling, which keeps its own identity and subtree.
// Removing the last pane yields a nil root. Returns root itself when paneID
// is absent.
func RemovePane(root Node, paneID string) Node {
	switch node := root.(type) {
	case *Pane:
		if node.ID == paneID {
			return nil
		}
		return node
	case *Split:
		if next := RemovePane(node.Children[0], paneID); next != node.Children[0] {
			if next == nil {
				return node.Children[1]
			}
			out := *node
			out.Children[0] = next
			return &out
		}
		if next := RemovePane(node.Children[1], paneID); next != node.Children[1] {
			if next == nil {
				return node.Children[0]
			}
			out := *node
			out.Children[1] = next
			return &out
		}
		return node
	}
	return root
}

// SwapPanes exchanges the positions of two panes. Both leaves keep their full
// identity (id, session); only their places in the tree change. Returns root
// itself when either id is absent or the ids are equal.
func SwapPanes(root Node, firstID string, secondID string) Node {
	if firstID == secondID {
		return root
	}
	first := FindPane(root, firstID)
	second := FindPane(root, secondID)
	if first == nil || second == nil {
		return root
	}
	var rebuild func(Node) Node
	rebuild = func(n Node) Node {
		switch node := n.(type) {
		case *Pane:
			switch node {
			case first:
				return second
			case second:
				return first
			}
			return node
		case *Split:
			left := rebuild(node.Children[0])
			right := rebuild(node.Children[1])
			if left == node.Children[0] && right == node.Children[1] {
				return node
			}
			out := *node
			out.Children = [2]Node{left, right}
			return &out
		}
		return n
	}
	return rebuild(root)
}
