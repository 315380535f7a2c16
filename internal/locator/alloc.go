// Package locator maps claim-relative issuance indices to absolute token
// identifiers and builds the externally visible locator strings.
//
// The engine does not own the collection's identifier space — other issuance
// can interleave with its own. Each claim therefore keeps a small ordered
// list of breakpoints recording where its issuance runs start in absolute
// identifier space, and index resolution binary-searches that list instead
// of assuming a contiguous range.
package locator

import (
	"sort"
)

// Breakpoint marks the start of a contiguous issuance run: the claim's
// RelStart'th unit (0-based) received absolute identifier AbsStart, and
// subsequent units in the run follow sequentially.
type Breakpoint struct {
	AbsStart uint64 `json:"abs_start"`
	RelStart uint32 `json:"rel_start"`
}

// Window is the per-claim breakpoint list. The zero value is ready to use.
// Breakpoints are ordered ascending in both AbsStart and RelStart because
// the underlying collection counter only moves forward.
type Window struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// Record notes that a run of units starting at claim-relative index relStart
// was issued starting at absolute identifier absStart. A new breakpoint is
// appended only when the absolute counter advanced past the end of the
// previous run, i.e. unrelated issuance interleaved.
func (w *Window) Record(absStart uint64, relStart uint32) {
	if len(w.Breakpoints) == 0 {
		w.Breakpoints = append(w.Breakpoints, Breakpoint{AbsStart: absStart, RelStart: relStart})
		return
	}
	last := w.Breakpoints[len(w.Breakpoints)-1]
	expected := last.AbsStart + uint64(relStart-last.RelStart)
	if absStart != expected {
		w.Breakpoints = append(w.Breakpoints, Breakpoint{AbsStart: absStart, RelStart: relStart})
	}
}

// Resolve maps a claim-relative index (0-based) to its absolute identifier.
// The second return is false when the window has no breakpoint covering rel.
func (w *Window) Resolve(rel uint32) (uint64, bool) {
	// Greatest breakpoint with RelStart <= rel.
	i := sort.Search(len(w.Breakpoints), func(i int) bool {
		return w.Breakpoints[i].RelStart > rel
	})
	if i == 0 {
		return 0, false
	}
	bp := w.Breakpoints[i-1]
	return bp.AbsStart + uint64(rel-bp.RelStart), true
}

// RelativeOf is the inverse of Resolve: it maps an absolute identifier back
// to the claim-relative index, given the claim's current issued count.
// Returns false when abs was not issued through this claim.
func (w *Window) RelativeOf(abs uint64, issued uint32) (uint32, bool) {
	i := sort.Search(len(w.Breakpoints), func(i int) bool {
		return w.Breakpoints[i].AbsStart > abs
	})
	if i == 0 {
		return 0, false
	}
	bp := w.Breakpoints[i-1]

	// The run ends where the next breakpoint starts, or at the claim's
	// issued count for the final run.
	end := issued
	if i < len(w.Breakpoints) {
		end = w.Breakpoints[i].RelStart
	}
	runLen := uint64(end - bp.RelStart)
	offset := abs - bp.AbsStart
	if offset >= runLen {
		return 0, false
	}
	return bp.RelStart + uint32(offset), true
}
