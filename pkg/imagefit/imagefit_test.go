package imagefit

import (
	"math"
	"testing"

	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
	"github.com/RI-imaging/qpsphere/pkg/trace"
)

// testMeta returns imaging metadata for a cell-sized sphere
func testMeta() qpimage.Meta {
	return qpimage.Meta{PixelSize: 2e-7, Wavelength: 550e-9, MediumIndex: 1.335}
}

// countingSimulator wraps the projection model and counts evaluations
type countingSimulator struct {
	calls int
}

func (c *countingSimulator) simulate(p models.Params) (*qpimage.QPImage, error) {
	c.calls++
	return models.Simulate(models.Projection, p)
}

// projectionImage simulates a projection phase image for use as a fit
// target
func projectionImage(t *testing.T, radius, index float64, nx, ny int) *qpimage.QPImage {
	t.Helper()
	meta := testMeta()
	qpi, err := models.Simulate(models.Projection, models.Params{
		Radius:      radius,
		SphereIndex: index,
		MediumIndex: meta.MediumIndex,
		Wavelength:  meta.Wavelength,
		PixelSize:   meta.PixelSize,
		GridX:       nx,
		GridY:       ny,
		CenterX:     float64(nx) / 2,
		CenterY:     float64(ny) / 2,
	})
	if err != nil {
		t.Fatalf("Failed to simulate fit target: %v", err)
	}
	return qpi
}

// TestMatchPhaseIterationCapExact verifies that the iteration cap is
// exact: with the minimum iteration count forcing the loop to keep
// going, exactly max_iter iterations run, never one more
func TestMatchPhaseIterationCapExact(t *testing.T) {
	qpi := projectionImage(t, 5e-6, 1.36, 32, 32)
	for _, limit := range []int{1, 5, 50} {
		sim := &countingSimulator{}
		sink := &trace.MemorySink{}
		opts := DefaultOptions()
		opts.MaxIter = limit
		opts.MinIter = limit + 10
		opts.Simulator = sim.simulate
		opts.Trace = sink

		res, err := MatchPhase(qpi, models.Projection, 1.35, 4.5e-6, opts)
		if err != nil {
			t.Fatalf("max_iter=%d: fit failed: %v", limit, err)
		}
		if res.Iterations != limit {
			t.Errorf("max_iter=%d: expected exactly %d iterations, got %d",
				limit, limit, res.Iterations)
		}
		if sink.Len() != limit {
			t.Errorf("max_iter=%d: expected %d trace entries, got %d",
				limit, limit, sink.Len())
		}
		if res.Converged {
			t.Errorf("max_iter=%d: expected non-converged result", limit)
		}
		if sim.calls == 0 {
			t.Errorf("max_iter=%d: expected model evaluations", limit)
		}
		// each iteration recomputes at most eight border simulations;
		// one more full evaluation produces the result image
		if sim.calls > 8*limit+1 {
			t.Errorf("max_iter=%d: expected bounded model evaluations, got %d",
				limit, sim.calls)
		}
	}
}

// TestMatchPhaseCapNotExceeded verifies the cap holds under default
// stopping criteria as well
func TestMatchPhaseCapNotExceeded(t *testing.T) {
	qpi := projectionImage(t, 5e-6, 1.36, 32, 32)
	for _, limit := range []int{1, 5} {
		opts := DefaultOptions()
		opts.MaxIter = limit
		opts.MinIter = 1
		res, err := MatchPhase(qpi, models.Projection, 1.355, 4.8e-6, opts)
		if err != nil {
			t.Fatalf("max_iter=%d: fit failed: %v", limit, err)
		}
		if res.Iterations > limit {
			t.Errorf("max_iter=%d: limit exceeded with %d iterations", limit, res.Iterations)
		}
	}
}

// TestMatchPhaseRecoversParameters verifies convergence to the
// generating parameters when the model matches the data exactly
func TestMatchPhaseRecoversParameters(t *testing.T) {
	radius := 5e-6
	index := 1.36
	qpi := projectionImage(t, radius, index, 64, 64)

	opts := DefaultOptions()
	res, err := MatchPhase(qpi, models.Projection, 1.358, 4.8e-6, opts)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !res.Converged {
		t.Fatalf("Expected convergence, got: %s", res.Message)
	}
	if math.Abs(res.Index-index) > 1e-3 {
		t.Errorf("Expected index %f, got %f", index, res.Index)
	}
	if math.Abs(res.Radius-radius)/radius > 0.01 {
		t.Errorf("Expected radius %e within 1%%, got %e", radius, res.Radius)
	}
	if math.Abs(res.CenterX-32) > 1 || math.Abs(res.CenterY-32) > 1 {
		t.Errorf("Expected center near (32, 32), got (%f, %f)", res.CenterX, res.CenterY)
	}
	if res.Sim == nil {
		t.Error("Expected final model image in result")
	}
}

// TestMatchPhaseFixedParameters verifies that frozen parameters keep
// their initial values
func TestMatchPhaseFixedParameters(t *testing.T) {
	qpi := projectionImage(t, 5e-6, 1.36, 32, 32)
	opts := DefaultOptions()
	opts.MaxIter = 5
	opts.MinIter = 1
	opts.Fix = Fix{Radius: true, Center: true}
	res, err := MatchPhase(qpi, models.Projection, 1.35, 4.5e-6, opts)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if res.Radius != 4.5e-6 {
		t.Errorf("Expected fixed radius 4.5e-6, got %e", res.Radius)
	}
	if res.CenterX != 16 || res.CenterY != 16 {
		t.Errorf("Expected fixed center (16, 16), got (%f, %f)", res.CenterX, res.CenterY)
	}
}

// TestMatchPhaseRequiresMetadata verifies that missing imaging
// metadata is rejected up front
func TestMatchPhaseRequiresMetadata(t *testing.T) {
	qpi, err := qpimage.NewFromPhase(make([]float64, 16), 4, 4, qpimage.Meta{})
	if err != nil {
		t.Fatalf("Failed to create phase image: %v", err)
	}
	if _, err := MatchPhase(qpi, models.Projection, 1.36, 5e-6, DefaultOptions()); err == nil {
		t.Error("Expected error for missing metadata")
	}
}

// TestInterpolatorRangeChecks verifies that out-of-range parameters and
// simultaneous changes of index and radius are rejected
func TestInterpolatorRangeChecks(t *testing.T) {
	meta := testMeta()
	p := models.Params{
		Radius:      5e-6,
		SphereIndex: 1.36,
		MediumIndex: meta.MediumIndex,
		Wavelength:  meta.Wavelength,
		PixelSize:   meta.PixelSize,
		GridX:       16,
		GridY:       16,
		CenterX:     8,
		CenterY:     8,
	}
	sim := func(p models.Params) (*qpimage.QPImage, error) {
		return models.Simulate(models.Projection, p)
	}
	ip := NewInterpolator(sim, p, 0, 0.1, 0.05)

	if _, err := ip.PhaseAt(1.37, 5e-6, 0, 0); err == nil {
		t.Error("Expected error for index outside the search interval")
	}
	if _, err := ip.PhaseAt(1.361, 5.1e-6, 0, 0); err == nil {
		t.Error("Expected error for changing index and radius at once")
	}
	if _, err := ip.PhaseAt(1.36, 5e-6, 0, 0); err != nil {
		t.Errorf("Expected current parameters to be valid: %v", err)
	}
}

// TestInterpolatorMatchesModelAtBorders verifies that interpolation at
// an interval border reproduces the full model evaluation
func TestInterpolatorMatchesModelAtBorders(t *testing.T) {
	meta := testMeta()
	p := models.Params{
		Radius:      5e-6,
		SphereIndex: 1.36,
		MediumIndex: meta.MediumIndex,
		Wavelength:  meta.Wavelength,
		PixelSize:   meta.PixelSize,
		GridX:       16,
		GridY:       16,
		CenterX:     8,
		CenterY:     8,
	}
	sim := func(p models.Params) (*qpimage.QPImage, error) {
		return models.Simulate(models.Projection, p)
	}
	ip := NewInterpolator(sim, p, 0, 0.1, 0.05)

	nHi := ip.SphereIndex + ip.Dn
	got, err := ip.PhaseAt(nHi, ip.Radius, 0, 0)
	if err != nil {
		t.Fatalf("Failed to interpolate: %v", err)
	}
	pHi := p
	pHi.SphereIndex = nHi
	want, err := sim(pHi)
	if err != nil {
		t.Fatalf("Failed to simulate: %v", err)
	}
	for i := range got {
		if math.Abs(got[i]-want.Pha[i]) > 1e-12 {
			t.Fatalf("Interpolation deviates from model at %d: %g vs %g",
				i, got[i], want.Pha[i])
		}
	}
}
