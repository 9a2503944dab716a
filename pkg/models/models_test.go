package models

import (
	"errors"
	"math"
	"testing"
)

// testParams returns sphere parameters well inside the validated
// regime of all analytic models
func testParams() Params {
	return Params{
		Radius:      5e-6,
		SphereIndex: 1.360,
		MediumIndex: 1.335,
		Wavelength:  550e-9,
		PixelSize:   2e-7,
		GridX:       32,
		GridY:       32,
		CenterX:     16,
		CenterY:     16,
	}
}

// TestParseKind verifies that every canonical model name round-trips
func TestParseKind(t *testing.T) {
	for _, kind := range []Kind{Projection, Rytov, RytovSC, Mie, MieAvg} {
		got, err := ParseKind(kind.String())
		if err != nil {
			t.Errorf("Failed to parse %q: %v", kind.String(), err)
		}
		if got != kind {
			t.Errorf("Expected %v, got %v", kind, got)
		}
	}
	if _, err := ParseKind("born"); err == nil {
		t.Error("Expected error for unknown model name")
	}
}

// TestProjectionCenterPhase verifies the closed-form phase at the
// sphere center: (n - nmed) * 4*pi*R / lambda
func TestProjectionCenterPhase(t *testing.T) {
	p := testParams()
	qpi, err := Simulate(Projection, p)
	if err != nil {
		t.Fatalf("Failed to simulate projection: %v", err)
	}
	want := (p.SphereIndex - p.MediumIndex) * 4 * math.Pi * p.Radius / p.Wavelength
	got := qpi.At(16, 16)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected center phase %f, got %f", want, got)
	}
	// pixels outside the sphere carry zero phase
	if qpi.At(0, 0) != 0 {
		t.Errorf("Expected zero phase outside the sphere, got %f", qpi.At(0, 0))
	}
}

// TestSimulateFiniteAndSign verifies that the analytic models produce
// finite output whose total phase sign follows the index contrast
func TestSimulateFiniteAndSign(t *testing.T) {
	for _, kind := range []Kind{Projection, Rytov, RytovSC} {
		for _, contrast := range []float64{0.025, -0.015} {
			p := testParams()
			p.SphereIndex = p.MediumIndex + contrast
			qpi, err := Simulate(kind, p)
			if kind == RytovSC && contrast < 0 {
				// the correction is only defined above the medium index
				if err == nil {
					t.Errorf("%s: expected error for negative contrast", kind)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s: failed to simulate: %v", kind, err)
			}
			if !qpi.Finite() {
				t.Errorf("%s: non-finite phase image", kind)
			}
			total := qpi.TotalPhase()
			if contrast > 0 && total <= 0 {
				t.Errorf("%s: expected positive total phase for positive contrast, got %f", kind, total)
			}
			if contrast < 0 && total >= 0 {
				t.Errorf("%s: expected negative total phase for negative contrast, got %f", kind, total)
			}
		}
	}
}

// TestSimulateIdempotent verifies that repeated evaluation with
// identical parameters yields bit-identical output
func TestSimulateIdempotent(t *testing.T) {
	p := testParams()
	for _, kind := range []Kind{Projection, Rytov} {
		a, err := Simulate(kind, p)
		if err != nil {
			t.Fatalf("%s: failed to simulate: %v", kind, err)
		}
		b, err := Simulate(kind, p)
		if err != nil {
			t.Fatalf("%s: failed to simulate: %v", kind, err)
		}
		for i := range a.Pha {
			if a.Pha[i] != b.Pha[i] {
				t.Fatalf("%s: output differs at %d: %g vs %g", kind, i, a.Pha[i], b.Pha[i])
			}
		}
	}
}

// TestSimulateRejectsBadParams verifies parameter validation
func TestSimulateRejectsBadParams(t *testing.T) {
	p := testParams()
	p.Radius = -1e-6
	if _, err := Simulate(Projection, p); err == nil {
		t.Error("Expected error for negative radius")
	}
	p = testParams()
	p.GridX = 0
	if _, err := Simulate(Projection, p); err == nil {
		t.Error("Expected error for empty grid")
	}
}

// TestRytovSCUnsupportedSampling verifies that a radius sampling
// without correction coefficients is rejected with the dedicated error
func TestRytovSCUnsupportedSampling(t *testing.T) {
	_, err := SimulateWith(RytovSC, testParams(), Options{RadiusSampling: 13})
	var upe *UnsupportedParametersError
	if !errors.As(err, &upe) {
		t.Fatalf("Expected UnsupportedParametersError, got %v", err)
	}
	if upe.Model != RytovSC {
		t.Errorf("Expected model rytov-sc in error, got %v", upe.Model)
	}
}

// TestCorrectInputRejectsLowIndex verifies that an index at or below
// the medium index is rejected
func TestCorrectInputRejectsLowIndex(t *testing.T) {
	_, _, err := DefaultCorrections.CorrectInput(5e-6, 1.335, 1.335, DefaultRadiusSampling)
	var upe *UnsupportedParametersError
	if !errors.As(err, &upe) {
		t.Fatalf("Expected UnsupportedParametersError, got %v", err)
	}
}

// TestCorrectInputNegativeRadius verifies that an extreme index
// contrast driving the radius polynomial negative surfaces as a
// NegativeRadiusError instead of being clamped
func TestCorrectInputNegativeRadius(t *testing.T) {
	_, _, err := DefaultCorrections.CorrectInput(5e-6, 3.0, 1.333, DefaultRadiusSampling)
	var nre *NegativeRadiusError
	if !errors.As(err, &nre) {
		t.Fatalf("Expected NegativeRadiusError, got %v", err)
	}
	if nre.Radius >= 0 {
		t.Errorf("Expected reported radius to be negative, got %g", nre.Radius)
	}
}

// TestCorrectionRoundTrip verifies that CorrectInput inverts
// CorrectOutput in the moderate contrast regime
func TestCorrectionRoundTrip(t *testing.T) {
	radius, index, medium := 5e-6, 1.360, 1.335
	rsc, nsc, err := DefaultCorrections.CorrectOutput(radius, index, medium, DefaultRadiusSampling)
	if err != nil {
		t.Fatalf("Failed to correct output: %v", err)
	}
	rBack, nBack, err := DefaultCorrections.CorrectInput(rsc, nsc, medium, DefaultRadiusSampling)
	if err != nil {
		t.Fatalf("Failed to correct input: %v", err)
	}
	if math.Abs(rBack-radius)/radius > 1e-9 {
		t.Errorf("Radius round trip: expected %g, got %g", radius, rBack)
	}
	if math.Abs(nBack-index) > 1e-9 {
		t.Errorf("Index round trip: expected %g, got %g", index, nBack)
	}
}

// TestRytovSCKeepsRequestedMetadata verifies that the simulation
// metadata reports the requested parameters, not the back-corrected
// ones used internally
func TestRytovSCKeepsRequestedMetadata(t *testing.T) {
	p := testParams()
	qpi, err := Simulate(RytovSC, p)
	if err != nil {
		t.Fatalf("Failed to simulate rytov-sc: %v", err)
	}
	if qpi.Sim == nil {
		t.Fatal("Expected simulation metadata")
	}
	if qpi.Sim.Radius != p.Radius {
		t.Errorf("Expected metadata radius %g, got %g", p.Radius, qpi.Sim.Radius)
	}
	if qpi.Sim.Index != p.SphereIndex {
		t.Errorf("Expected metadata index %g, got %g", p.SphereIndex, qpi.Sim.Index)
	}
	if qpi.Sim.Model != "rytov-sc" {
		t.Errorf("Expected model name rytov-sc, got %q", qpi.Sim.Model)
	}
}

// TestRytovMatchesProjectionCenter verifies that for a weakly
// scattering sphere the Rytov phase at the sphere center agrees with
// the projection value to within a few percent
func TestRytovMatchesProjectionCenter(t *testing.T) {
	p := testParams()
	p.SphereIndex = p.MediumIndex + 0.005
	proj, err := Simulate(Projection, p)
	if err != nil {
		t.Fatalf("Failed to simulate projection: %v", err)
	}
	ryt, err := Simulate(Rytov, p)
	if err != nil {
		t.Fatalf("Failed to simulate rytov: %v", err)
	}
	pc := proj.At(16, 16)
	rc := ryt.At(16, 16)
	if math.Abs(rc-pc)/pc > 0.1 {
		t.Errorf("Rytov center phase %f deviates from projection %f by more than 10%%", rc, pc)
	}
}
