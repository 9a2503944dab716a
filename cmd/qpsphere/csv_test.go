package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestPhaseCSVRoundTrip verifies that a saved phase image loads back
// with identical shape and values
func TestPhaseCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phase.csv")
	want := []float64{0, 0.5, -1.25, 3e-3, 42, -0.001}
	if err := savePhaseCSV(path, want, 2, 3); err != nil {
		t.Fatalf("Failed to save phase image: %v", err)
	}

	got, nx, ny, err := loadPhaseCSV(path)
	if err != nil {
		t.Fatalf("Failed to load phase image: %v", err)
	}
	if nx != 2 || ny != 3 {
		t.Fatalf("Expected shape 2x3, got %dx%d", nx, ny)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v at index %d, got %v", want[i], i, got[i])
		}
	}
}

// TestLoadPhaseCSVRaggedRows verifies the error for inconsistent rows
func TestLoadPhaseCSVRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	if err := os.WriteFile(path, []byte("1,2,3\n4,5\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, _, _, err := loadPhaseCSV(path); err == nil {
		t.Error("Expected error for ragged rows")
	}
}

// TestLoadPhaseCSVBadValue verifies the error for non-numeric cells
func TestLoadPhaseCSVBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("1,2\n3,abc\n"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, _, _, err := loadPhaseCSV(path); err == nil {
		t.Error("Expected error for non-numeric cell")
	}
}

// TestSaveMaskCSV verifies the 0/1 encoding of boolean masks
func TestSaveMaskCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.csv")
	mask := []bool{true, false, false, true}
	if err := saveMaskCSV(path, mask, 2, 2); err != nil {
		t.Fatalf("Failed to save mask: %v", err)
	}
	got, nx, ny, err := loadPhaseCSV(path)
	if err != nil {
		t.Fatalf("Failed to load mask: %v", err)
	}
	if nx != 2 || ny != 2 {
		t.Fatalf("Expected shape 2x2, got %dx%d", nx, ny)
	}
	want := []float64{1, 0, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v at index %d, got %v", want[i], i, got[i])
		}
	}
}

// TestRootCmdSubcommands verifies the command tree wiring
func TestRootCmdSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"analyze", "simulate", "fetch-bhfield", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}
}
