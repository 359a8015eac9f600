package workspace

import "maps"

// Status is the normalized session runtime state shown in the workspace.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusError   Status = "error"
	StatusExited  Status = "exited"
	StatusUnknown Status = "unknown"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusError, StatusExited, StatusUnknown:
		return true
	}
	return false
}

// Session is a point-in-time copy of backend session state as held by a pane.
// The backend owns the canonical record; panes hold copies and are refreshed
// explicitly via RefreshSession.
//
// ID and Status form the required core. The remaining string fields are
// optional: an empty value in an incoming snapshot means "not present" and
// never clobbers an existing value (see Merge). Extra carries
// backend-specific fields the workspace does not interpret.
type Session struct {
	ID             string            `json:"id"`
	Title          string            `json:"title,omitempty"`
	Status         Status            `json:"status,omitempty"`
	CustomLabel    string            `json:"customLabel,omitempty"`
	RemoteTmuxName string            `json:"remoteTmuxName,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy. Panes must never share Extra maps across trees.
func (s Session) Clone() Session {
	out := s
	if s.Extra != nil {
		out.Extra = maps.Clone(s.Extra)
	}
	return out
}

// Merge overlays the fields present in incoming onto base and returns the
// result. Only non-zero incoming fields are authoritative; Extra keys are
// merged per key. Neither input is mutated.
func (s Session) Merge(incoming Session) Session {
	out := s.Clone()
	if incoming.ID != "" {
		out.ID = incoming.ID
	}
	if incoming.Title != "" {
		out.Title = incoming.Title
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.CustomLabel != "" {
		out.CustomLabel = incoming.CustomLabel
	}
	if incoming.RemoteTmuxName != "" {
		out.RemoteTmuxName = incoming.RemoteTmuxName
	}
	if len(incoming.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(incoming.Extra))
		}
		maps.Copy(out.Extra, incoming.Extra)
	}
	return out
}

// DisplayName returns the label shown on tabs: custom label wins over title,
// title wins over the raw session id.
func (s Session) DisplayName() string {
	if s.CustomLabel != "" {
		return s.CustomLabel
	}
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}
