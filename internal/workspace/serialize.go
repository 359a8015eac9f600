package workspace

import (
	"encoding/json"
	"fmt"
	"time"
)

// Node DTO discriminator values.
const (
	nodeTypePane  = "pane"
	nodeTypeSplit = "split"
)

// NodeDTO is the serialized form of a layout node, discriminated by Type.
// It is a plain structural mapping of the in-memory tree; no identity or
// sharing survives a round trip.
type NodeDTO struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Session   *Session       `json:"session,omitempty"`
	Direction SplitDirection `json:"direction,omitempty"`
	Ratio     float64        `json:"ratio,omitempty"`
	Children  []*NodeDTO     `json:"children,omitempty"`
}

// TabRecord is the serialized form of a tab as stored by the persistence
// adapter.
type TabRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Layout       *NodeDTO  `json:"layout"`
	ActivePaneID string    `json:"activePaneId"`
	OpenedAt     time.Time `json:"openedAt"`
}

// EncodeNode maps a layout tree to its DTO. Nil in, nil out.
func EncodeNode(root Node) *NodeDTO {
	switch node := root.(type) {
	case *Pane:
		var session *Session
		if node.Session != nil {
			s := node.Session.Clone()
			session = &s
		}
		return &NodeDTO{
			Type:      nodeTypePane,
			ID:        node.ID,
			SessionID: node.SessionID,
			Session:   session,
		}
	case *Split:
		return &NodeDTO{
			Type:      nodeTypeSplit,
			Direction: node.Direction,
			Ratio:     node.Ratio,
			Children: []*NodeDTO{
				EncodeNode(node.Children[0]),
				EncodeNode(node.Children[1]),
			},
		}
	}
	return nil
}

// DecodeNode rebuilds a layout tree from its DTO. Splits must carry exactly
// two non-nil children, a direction, and a ratio inside (0,1); panes must
// carry an id. Malformed input is rejected rather than repaired because the
// store is written exclusively by EncodeNode.
func DecodeNode(dto *NodeDTO) (Node, error) {
	if dto == nil {
		return nil, nil
	}
	switch dto.Type {
	case nodeTypePane:
		if dto.ID == "" {
			return nil, fmt.Errorf("pane node missing id")
		}
		var session *Session
		if dto.Session != nil {
			s := dto.Session.Clone()
			session = &s
		}
		return &Pane{ID: dto.ID, SessionID: dto.SessionID, Session: session}, nil
	case nodeTypeSplit:
		if !dto.Direction.Valid() {
			return nil, fmt.Errorf("split node has invalid direction %q", dto.Direction)
		}
		if dto.Ratio <= 0 || dto.Ratio >= 1 {
			return nil, fmt.Errorf("split node has ratio %v outside (0,1)", dto.Ratio)
		}
		if len(dto.Children) != 2 || dto.Children[0] == nil || dto.Children[1] == nil {
			return nil, fmt.Errorf("split node needs exactly two children, got %d", len(dto.Children))
		}
		first, err := DecodeNode(dto.Children[0])
		if err != nil {
			return nil, err
		}
		second, err := DecodeNode(dto.Children[1])
		if err != nil {
			return nil, err
		}
		return &Split{Direction: dto.Direction, Ratio: dto.Ratio, Children: [2]Node{first, second}}, nil
	}
	return nil, fmt.Errorf("unknown layout node type %q", dto.Type)
}

// Record maps the tab to its serialized form.
func (t *Tab) Record() TabRecord {
	return TabRecord{
		ID:           t.ID,
		Name:         t.Name,
		Layout:       EncodeNode(t.Layout),
		ActivePaneID: t.ActivePaneID,
		OpenedAt:     t.OpenedAt,
	}
}

// TabFromRecord rebuilds a tab from its serialized form. A stale
// ActivePaneID (pane no longer present in the layout) degrades to the first
// pane instead of failing the whole load.
func TabFromRecord(rec TabRecord) (*Tab, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("tab record missing id")
	}
	layout, err := DecodeNode(rec.Layout)
	if err != nil {
		return nil, fmt.Errorf("tab %s: %w", rec.ID, err)
	}
	tab := &Tab{
		ID:           rec.ID,
		Name:         rec.Name,
		Layout:       layout,
		ActivePaneID: rec.ActivePaneID,
		OpenedAt:     rec.OpenedAt,
	}
	if FindPane(layout, tab.ActivePaneID) == nil {
		tab.ActivePaneID = ""
		if panes := PaneList(layout); len(panes) > 0 {
			tab.ActivePaneID = panes[0].ID
		}
	}
	return tab, nil
}

// MarshalLayoutJSON serializes a layout tree for storage.
func MarshalLayoutJSON(root Node) ([]byte, error) {
	return json.Marshal(EncodeNode(root))
}

// UnmarshalLayoutJSON deserializes a layout tree from storage.
func UnmarshalLayoutJSON(data []byte) (Node, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var dto *NodeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	return DecodeNode(dto)
}
