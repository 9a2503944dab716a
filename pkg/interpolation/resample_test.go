package interpolation

import (
	"math"
	"testing"
)

// TestGrid2DAtNodes verifies that sampling at grid nodes reproduces the
// stored values exactly
func TestGrid2DAtNodes(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 2}
	data := []float64{1, 2, 3, 4, 5, 6}
	g, err := NewGrid2D(data, xs, ys, -1)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	for i, x := range xs {
		for j, y := range ys {
			got := g.At(x, y)
			want := data[i*len(ys)+j]
			if got != want {
				t.Errorf("At(%f, %f): expected %f, got %f", x, y, want, got)
			}
		}
	}
}

// TestGrid2DBilinear verifies interpolation between nodes of a linear
// function, which bilinear interpolation must reproduce exactly
func TestGrid2DBilinear(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{0, 1, 2, 3}
	f := func(x, y float64) float64 { return 2*x - 3*y + 1 }
	data := make([]float64, 16)
	for i, x := range xs {
		for j, y := range ys {
			data[i*4+j] = f(x, y)
		}
	}
	g, err := NewGrid2D(data, xs, ys, 0)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	for _, pt := range [][2]float64{{0.5, 0.5}, {1.25, 2.75}, {2.9, 0.1}} {
		got := g.At(pt[0], pt[1])
		want := f(pt[0], pt[1])
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("At(%f, %f): expected %f, got %f", pt[0], pt[1], want, got)
		}
	}
}

// TestGrid2DFill verifies that coordinates outside the axes return the
// fill value
func TestGrid2DFill(t *testing.T) {
	g, err := NewGrid2D([]float64{1, 2, 3, 4}, []float64{0, 1}, []float64{0, 1}, -7)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	if got := g.At(-0.1, 0.5); got != -7 {
		t.Errorf("Expected fill value -7, got %f", got)
	}
	if got := g.At(0.5, 1.5); got != -7 {
		t.Errorf("Expected fill value -7, got %f", got)
	}
}

// TestNewGrid2DValidation verifies that bad axes are rejected
func TestNewGrid2DValidation(t *testing.T) {
	if _, err := NewGrid2D(make([]float64, 3), []float64{0, 1}, []float64{0, 1}, 0); err == nil {
		t.Error("Expected error for mismatched data length")
	}
	if _, err := NewGrid2D(make([]float64, 4), []float64{1, 0}, []float64{0, 1}, 0); err == nil {
		t.Error("Expected error for non-increasing x axis")
	}
}

// TestShift2DIntegerShift verifies that integer shifts move pixels
// exactly
func TestShift2DIntegerShift(t *testing.T) {
	data := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	out := Shift2D(data, 3, 3, 1, 0, 0)
	// out(x, y) = in(x+1, y): first output row holds the second input row
	if out[0] != 4 || out[1] != 5 || out[2] != 6 {
		t.Errorf("Expected shifted row [4 5 6], got %v", out[0:3])
	}
	// the last row falls outside and is filled
	if out[6] != 0 || out[7] != 0 || out[8] != 0 {
		t.Errorf("Expected filled row [0 0 0], got %v", out[6:9])
	}
}

// TestShift2DSubPixel verifies sub-pixel interpolation of a linear ramp
func TestShift2DSubPixel(t *testing.T) {
	nx, ny := 5, 5
	data := make([]float64, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			data[x*ny+y] = float64(x)
		}
	}
	out := Shift2D(data, nx, ny, 0.5, 0, 0)
	// interior pixels see the ramp advanced by half a pixel
	if math.Abs(out[1*ny+2]-1.5) > 1e-12 {
		t.Errorf("Expected 1.5 at interior pixel, got %f", out[1*ny+2])
	}
}

// TestLinear1D verifies interpolation and fill behavior of the 1D
// profile interpolator
func TestLinear1D(t *testing.T) {
	l := &Linear1D{Xs: []float64{0, 1, 3}, Vs: []float64{0, 2, 6}, Fill: -1}
	if got := l.At(0.5); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected 1 at 0.5, got %f", got)
	}
	if got := l.At(2); math.Abs(got-4) > 1e-12 {
		t.Errorf("Expected 4 at 2, got %f", got)
	}
	if got := l.At(-0.5); got != -1 {
		t.Errorf("Expected fill value at -0.5, got %f", got)
	}
	if got := l.At(3.5); got != -1 {
		t.Errorf("Expected fill value at 3.5, got %f", got)
	}
}
