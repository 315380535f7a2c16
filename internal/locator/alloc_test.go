package locator

import "testing"

func TestRecordContiguousRuns(t *testing.T) {
	var w Window
	w.Record(100, 0) // Units 0-2 at 100-102.
	w.Record(103, 3) // Contiguous continuation.
	w.Record(104, 4) // Still contiguous.

	if len(w.Breakpoints) != 1 {
		t.Fatalf("contiguous issuance should keep one breakpoint, got %d", len(w.Breakpoints))
	}
}

func TestRecordGap(t *testing.T) {
	var w Window
	w.Record(100, 0) // Units 0-1 at 100-101.
	w.Record(110, 2) // Unrelated issuance consumed 102-109.

	if len(w.Breakpoints) != 2 {
		t.Fatalf("gap should open a new breakpoint, got %d", len(w.Breakpoints))
	}
	if w.Breakpoints[1].AbsStart != 110 || w.Breakpoints[1].RelStart != 2 {
		t.Errorf("second breakpoint = %+v, want {110 2}", w.Breakpoints[1])
	}
}

func TestResolve(t *testing.T) {
	var w Window
	w.Record(100, 0)
	w.Record(110, 2)

	tests := []struct {
		rel  uint32
		abs  uint64
		ok   bool
		name string
	}{
		{0, 100, true, "first run start"},
		{1, 101, true, "first run second"},
		{2, 110, true, "second run start"},
		{5, 113, true, "second run interior"},
	}
	for _, tt := range tests {
		abs, ok := w.Resolve(tt.rel)
		if ok != tt.ok || abs != tt.abs {
			t.Errorf("%s: Resolve(%d) = %d, %v; want %d, %v", tt.name, tt.rel, abs, ok, tt.abs, tt.ok)
		}
	}
}

func TestResolveEmptyWindow(t *testing.T) {
	var w Window
	if _, ok := w.Resolve(0); ok {
		t.Error("empty window should not resolve anything")
	}
}

func TestRelativeOf(t *testing.T) {
	var w Window
	w.Record(100, 0) // rel 0,1 -> abs 100,101
	w.Record(110, 2) // rel 2,3 -> abs 110,111 (issued = 4)

	tests := []struct {
		abs    uint64
		issued uint32
		rel    uint32
		ok     bool
	}{
		{100, 4, 0, true},
		{101, 4, 1, true},
		{110, 4, 2, true},
		{111, 4, 3, true},
		{102, 4, 0, false}, // Gap: issued by someone else.
		{109, 4, 0, false},
		{112, 4, 0, false}, // Beyond issued count.
		{99, 4, 0, false},  // Before the first run.
	}
	for _, tt := range tests {
		rel, ok := w.RelativeOf(tt.abs, tt.issued)
		if ok != tt.ok || (ok && rel != tt.rel) {
			t.Errorf("RelativeOf(%d, %d) = %d, %v; want %d, %v", tt.abs, tt.issued, rel, ok, tt.rel, tt.ok)
		}
	}
}

func TestResolveRelativeOfRoundTrip(t *testing.T) {
	var w Window
	w.Record(1, 0)
	w.Record(50, 3)
	w.Record(200, 7)
	const issued = 10

	for rel := uint32(0); rel < issued; rel++ {
		abs, ok := w.Resolve(rel)
		if !ok {
			t.Fatalf("Resolve(%d) failed", rel)
		}
		back, ok := w.RelativeOf(abs, issued)
		if !ok || back != rel {
			t.Errorf("round trip rel %d -> abs %d -> rel %d, ok=%v", rel, abs, back, ok)
		}
	}
}
