package models

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/RI-imaging/qpsphere/pkg/models/bhfield"
)

// backgroundSolver stands in for the BHFIELD binary and returns the
// undisturbed plane-wave background for every sample, i.e. the field
// with the sphere removed
type backgroundSolver struct {
	calls []bhfield.Request
}

func (s *backgroundSolver) Solve(req bhfield.Request) ([]complex128, error) {
	s.calls = append(s.calls, req)
	n := req.GridX * req.GridY
	propdLamd := req.RadiusUm * 1e-6 / (req.WavelengthNm * 1e-9)
	bg := cmplx.Exp(complex(0, 2*math.Pi*propdLamd*req.MediumIndex))
	field := make([]complex128, n)
	for i := range field {
		field[i] = bg
	}
	return field, nil
}

// failingSolver always reports a solver failure
type failingSolver struct{ err error }

func (s failingSolver) Solve(bhfield.Request) ([]complex128, error) {
	return nil, s.err
}

// TestMieBackgroundField verifies that a sphere-free field yields a
// flat phase image of unit amplitude
func TestMieBackgroundField(t *testing.T) {
	solver := &backgroundSolver{}
	qpi, err := SimulateWith(Mie, testParams(), Options{Solver: solver})
	if err != nil {
		t.Fatalf("Failed to simulate mie field: %v", err)
	}
	if len(solver.calls) != 1 {
		t.Fatalf("Expected one solver call, got %d", len(solver.calls))
	}
	for i, v := range qpi.Pha {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("Expected zero phase at %d, got %v", i, v)
		}
	}
	for i, v := range qpi.Amp {
		if math.Abs(v-1) > 1e-9 {
			t.Fatalf("Expected unit amplitude at %d, got %v", i, v)
		}
	}
	if qpi.Sim == nil || qpi.Sim.Model != Mie.String() {
		t.Error("Expected mie simulation metadata on result")
	}
}

// TestMieAvgBackgroundField verifies the polarization-averaged model
// on a sphere-free field: two orthogonal radial cuts are requested and
// the resulting image is flat
func TestMieAvgBackgroundField(t *testing.T) {
	solver := &backgroundSolver{}
	qpi, err := SimulateWith(MieAvg, testParams(), Options{Solver: solver})
	if err != nil {
		t.Fatalf("Failed to simulate mie-avg field: %v", err)
	}
	if len(solver.calls) != 2 {
		t.Fatalf("Expected two solver calls, got %d", len(solver.calls))
	}
	if solver.calls[0].GridY != 1 || solver.calls[1].GridX != 1 {
		t.Errorf("Expected orthogonal radial cuts, got grids %dx%d and %dx%d",
			solver.calls[0].GridX, solver.calls[0].GridY,
			solver.calls[1].GridX, solver.calls[1].GridY)
	}
	for i, v := range qpi.Pha {
		if math.Abs(v) > 1e-6 {
			t.Fatalf("Expected zero phase at %d, got %v", i, v)
		}
	}
	if qpi.Sim == nil || qpi.Sim.Model != MieAvg.String() {
		t.Error("Expected mie-avg simulation metadata on result")
	}
}

// TestMieSolverErrorPropagates verifies that solver failures surface
// wrapped and inspectable
func TestMieSolverErrorPropagates(t *testing.T) {
	cause := &bhfield.NotAvailableError{}
	for _, kind := range []Kind{Mie, MieAvg} {
		_, err := SimulateWith(kind, testParams(), Options{Solver: failingSolver{err: cause}})
		if err == nil {
			t.Fatalf("Expected %s to fail with a broken solver", kind)
		}
		var na *bhfield.NotAvailableError
		if !errors.As(err, &na) {
			t.Errorf("Expected NotAvailableError from %s, got %v", kind, err)
		}
	}
}

// TestMieRejectsShortField verifies the sample-count check on the
// solver output
func TestMieRejectsShortField(t *testing.T) {
	if _, err := SimulateWith(Mie, testParams(), Options{Solver: shortSolver{}}); err == nil {
		t.Error("Expected error for truncated solver output")
	}
}

type shortSolver struct{}

func (shortSolver) Solve(bhfield.Request) ([]complex128, error) {
	return make([]complex128, 3), nil
}
