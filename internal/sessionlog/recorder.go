// Package sessionlog captures warn/error slog records into a bounded
// in-memory ring so the frontend can show recent problems without tailing a
// file.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

const defaultCapacity = 256

// Entry is one captured log record.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
}

// Recorder stores the most recent captured entries. Safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	filled  bool
	seq     uint64
	onEntry func(Entry)
}

// NewRecorder creates a recorder holding up to capacity entries.
// capacity <= 0 selects the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{entries: make([]Entry, capacity)}
}

// SetNotify registers a callback invoked after each appended entry, outside
// the recorder lock. Used by the app to emit a throttled UI refresh event.
func (r *Recorder) SetNotify(fn func(Entry)) {
	r.mu.Lock()
	r.onEntry = fn
	r.mu.Unlock()
}

// Append stores an entry, assigning it the next sequence number.
func (r *Recorder) Append(ts time.Time, level slog.Level, msg string, source string) {
	r.mu.Lock()
	r.seq++
	entry := Entry{
		Seq:     r.seq,
		Time:    ts,
		Level:   level.String(),
		Message: msg,
		Source:  source,
	}
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.filled = true
	}
	notify := r.onEntry
	r.mu.Unlock()

	if notify != nil {
		notify(entry)
	}
}

// Entries returns captured entries oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.filled {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// Handler wraps a base slog.Handler and tees records at or above minLevel
// into a Recorder. All records still reach the base handler; only the
// capture is gated by level.
type Handler struct {
	base     slog.Handler
	recorder *Recorder
	minLevel slog.Level
	source   string // accumulated dot-separated slog group name
}

// NewHandler creates a capture handler over base.
func NewHandler(base slog.Handler, minLevel slog.Level, recorder *Recorder) *Handler {
	return &Handler{base: base, recorder: recorder, minLevel: minLevel}
}

// Enabled defers to the base handler; the capture threshold never hides
// records from the base output.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards to the base handler and captures qualifying records. The
// capture runs even when the base handler fails: visibility of problems in
// the UI must not depend on the base sink.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.recorder != nil && record.Level >= h.minLevel {
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Stderr, not slog: a recursive Handler invocation here
					// would loop.
					fmt.Fprintf(os.Stderr, "[session-log] capture panicked: %v\n%s\n", r, debug.Stack())
				}
			}()
			h.recorder.Append(record.Time, record.Level, record.Message, h.source)
		}()
	}
	return err
}

// WithAttrs applies attrs to the base handler, keeping capture state.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{
		base:     h.base.WithAttrs(attrs),
		recorder: h.recorder,
		minLevel: h.minLevel,
		source:   h.source,
	}
}

// WithGroup accumulates the group name into the captured Source.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	source := name
	if h.source != "" {
		source = h.source + "." + name
	}
	return &Handler{
		base:     h.base.WithGroup(name),
		recorder: h.recorder,
		minLevel: h.minLevel,
		source:   source,
	}
}
