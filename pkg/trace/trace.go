// Package trace records the intermediate states of an iterative sphere
// fit. Each fit iteration appends an entry with the current parameters
// and the residual phase image, which can be kept in memory for tests
// or persisted to an SQLite file for later inspection.
package trace

import "sync"

// Entry is one recorded fit iteration.
type Entry struct {
	// Iteration counts from 1.
	Iteration int
	// Radius is the current sphere radius in meters.
	Radius float64
	// SphereIndex is the current refractive index of the sphere.
	SphereIndex float64
	// PhaOffset is the current phase background offset.
	PhaOffset float64
	// CenterX and CenterY are the current center in pixel coordinates.
	CenterX float64
	CenterY float64
	// Phase is the row-major residual phase image, may be nil when the
	// producer does not record images.
	Phase []float64
	// Nx and Ny are the dimensions of Phase.
	Nx, Ny int
}

// Sink consumes fit iteration records.
type Sink interface {
	// Append records one iteration. Implementations must not retain
	// the entry's Phase slice beyond the call.
	Append(e Entry) error
	// Close releases any resources held by the sink.
	Close() error
}

// MemorySink keeps all entries in memory. The zero value is ready to
// use and safe for concurrent appends.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// Append stores a copy of the entry.
func (s *MemorySink) Append(e Entry) error {
	if e.Phase != nil {
		pha := make([]float64, len(e.Phase))
		copy(pha, e.Phase)
		e.Phase = pha
	}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory sink.
func (s *MemorySink) Close() error {
	return nil
}

// Entries returns the recorded entries in append order.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
