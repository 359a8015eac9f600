// Package focus provides save/restore of UI input focus across overlay
// lifecycles (modals, wizards).
//
// The single globally focused element is ambient mutable state owned by the
// UI layer. It is never touched directly: all reads and writes go through a
// Surface capability, which keeps the guard testable by substitution and
// keeps the ambient state behind one function boundary.
package focus

// Surface is the capability over the UI focus state. Implementations report
// which element currently holds focus, whether an element is still attached
// to the document, and perform focus/blur.
type Surface interface {
	// Focused returns the id of the element holding input focus, if any.
	Focused() (string, bool)
	// Attached reports whether the element still exists in the document.
	Attached(id string) bool
	// Focus gives id input focus. Returns false if the element cannot take
	// focus (e.g. it was detached between the Attached check and the call).
	Focus(id string) bool
	// Blur clears input focus entirely.
	Blur()
}

// Snapshot is one captured focus state. Snapshots are independent: nesting
// overlays (save A, save B, restore B, restore A) restores correctly in any
// order because each snapshot is immutable once taken.
type Snapshot struct {
	surface  Surface
	captured string
	hasFocus bool
	fallback string
	restored bool
}

// Save captures whichever element currently holds focus (possibly none) and
// returns the snapshot to restore it later. fallback, when non-empty, is
// focused instead if the captured element has been detached by restore time.
func Save(surface Surface, fallback string) *Snapshot {
	captured, ok := surface.Focused()
	return &Snapshot{
		surface:  surface,
		captured: captured,
		hasFocus: ok,
		fallback: fallback,
	}
}

// Restore puts focus back to the captured element. If that element is gone,
// the fallback is focused; if the fallback is gone too (or none was given),
// focus is cleared so no just-removed overlay traps it. Calling Restore more
// than once is harmless; only the first call has an observable effect.
func (s *Snapshot) Restore() {
	if s == nil || s.restored {
		return
	}
	s.restored = true

	if s.hasFocus && s.captured != "" && s.surface.Attached(s.captured) {
		if s.surface.Focus(s.captured) {
			return
		}
	}
	if s.fallback != "" && s.surface.Attached(s.fallback) {
		if s.surface.Focus(s.fallback) {
			return
		}
	}
	s.surface.Blur()
}

// Restored reports whether Restore has already run.
func (s *Snapshot) Restored() bool {
	return s != nil && s.restored
}
