package trace

import (
	"math"
	"path/filepath"
	"testing"
)

// TestMemorySinkAppend verifies entries are recorded in order
func TestMemorySinkAppend(t *testing.T) {
	sink := &MemorySink{}
	for i := 0; i < 3; i++ {
		err := sink.Append(Entry{
			Iteration:   i + 1,
			Radius:      5e-6,
			SphereIndex: 1.36,
		})
		if err != nil {
			t.Fatalf("Failed to append entry: %v", err)
		}
	}
	if sink.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", sink.Len())
	}
	entries := sink.Entries()
	for i, e := range entries {
		if e.Iteration != i+1 {
			t.Errorf("Expected iteration %d at position %d, got %d", i+1, i, e.Iteration)
		}
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Failed to close sink: %v", err)
	}
}

// TestMemorySinkCopiesPhase verifies that mutating the caller's phase
// buffer after Append does not alter the recorded entry
func TestMemorySinkCopiesPhase(t *testing.T) {
	sink := &MemorySink{}
	pha := []float64{1, 2, 3, 4}
	if err := sink.Append(Entry{Iteration: 1, Phase: pha, Nx: 2, Ny: 2}); err != nil {
		t.Fatalf("Failed to append entry: %v", err)
	}
	pha[0] = -99
	got := sink.Entries()[0].Phase
	if got[0] != 1 {
		t.Errorf("Expected recorded phase 1, got %v", got[0])
	}
}

// TestSQLiteSinkRoundTrip verifies that entries written to the database
// read back identically, including the phase image blob
func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("Failed to open sink: %v", err)
	}

	want := []Entry{
		{
			Iteration:   1,
			Radius:      4.8e-6,
			SphereIndex: 1.358,
			PhaOffset:   0.02,
			CenterX:     31.5,
			CenterY:     32.25,
			Phase:       []float64{0, 0.5, -1.25, 3},
			Nx:          2,
			Ny:          2,
		},
		{
			Iteration:   2,
			Radius:      5e-6,
			SphereIndex: 1.36,
			PhaOffset:   -0.01,
			CenterX:     32,
			CenterY:     32,
		},
	}
	for _, e := range want {
		if err := sink.Append(e); err != nil {
			t.Fatalf("Failed to append entry %d: %v", e.Iteration, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Failed to close sink: %v", err)
	}

	// reopen to prove the entries survived the close
	sink, err = NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("Failed to reopen sink: %v", err)
	}
	defer sink.Close()
	got, err := sink.Entries()
	if err != nil {
		t.Fatalf("Failed to read trace back: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.Iteration != w.Iteration {
			t.Errorf("Expected iteration %d, got %d", w.Iteration, g.Iteration)
		}
		if g.Radius != w.Radius || g.SphereIndex != w.SphereIndex {
			t.Errorf("Entry %d: expected radius %v index %v, got %v %v",
				i, w.Radius, w.SphereIndex, g.Radius, g.SphereIndex)
		}
		if g.PhaOffset != w.PhaOffset {
			t.Errorf("Entry %d: expected offset %v, got %v", i, w.PhaOffset, g.PhaOffset)
		}
		if g.CenterX != w.CenterX || g.CenterY != w.CenterY {
			t.Errorf("Entry %d: expected center (%v, %v), got (%v, %v)",
				i, w.CenterX, w.CenterY, g.CenterX, g.CenterY)
		}
		if len(g.Phase) != len(w.Phase) {
			t.Fatalf("Entry %d: expected %d phase values, got %d", i, len(w.Phase), len(g.Phase))
		}
		for j := range w.Phase {
			if math.Abs(g.Phase[j]-w.Phase[j]) != 0 {
				t.Errorf("Entry %d phase[%d]: expected %v, got %v", i, j, w.Phase[j], g.Phase[j])
			}
		}
	}
}
