// Package qpimage provides the quantitative phase image container used
// throughout qpsphere. A QPImage holds a 2D phase map (and optionally an
// amplitude map) as a flat row-major float64 array together with the
// scalar acquisition metadata required by the scattering models and fit
// engines: pixel size, vacuum wavelength, and medium refractive index.
//
// Images simulated by the scattering models additionally carry the
// simulation parameters (center, radius, refractive index, model name)
// so that downstream consumers such as the background-mask helpers can
// recover them without re-fitting.
package qpimage

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Meta holds the scalar acquisition metadata attached to a QPImage.
type Meta struct {
	// PixelSize is the lateral extent of one detector pixel [m].
	PixelSize float64

	// Wavelength is the vacuum wavelength of the imaging light [m].
	Wavelength float64

	// MediumIndex is the refractive index of the immersion medium.
	MediumIndex float64
}

// SimInfo records the parameters a scattering model was evaluated with.
// It is only present on simulated images.
type SimInfo struct {
	// Model is the name of the scattering model ("projection", ...).
	Model string

	// Radius is the sphere radius used in the simulation [m].
	Radius float64

	// Index is the sphere refractive index used in the simulation.
	Index float64

	// CenterX and CenterY give the sphere center in array
	// index coordinates [px].
	CenterX float64
	CenterY float64
}

// QPImage is a quantitative phase image. Phase (and Amp, when present)
// are stored row-major with the first array dimension along x, so the
// value at grid point (x, y) lives at index x*Ny + y.
//
// A QPImage is treated as immutable once created; the fit engines only
// ever read from it.
type QPImage struct {
	// Nx and Ny are the grid dimensions in pixels.
	Nx, Ny int

	// Pha is the background-corrected phase [rad], length Nx*Ny.
	Pha []float64

	// Amp is the normalized amplitude, length Nx*Ny. A nil Amp
	// means unity amplitude everywhere.
	Amp []float64

	// Meta is the scalar acquisition metadata.
	Meta Meta

	// Sim is non-nil for model-simulated images.
	Sim *SimInfo
}

// NewFromPhase creates a phase-only image from a flat row-major array.
func NewFromPhase(pha []float64, nx, ny int, meta Meta) (*QPImage, error) {
	if len(pha) != nx*ny {
		return nil, fmt.Errorf("phase data has %d values, expected %dx%d=%d",
			len(pha), nx, ny, nx*ny)
	}
	return &QPImage{Nx: nx, Ny: ny, Pha: pha, Meta: meta}, nil
}

// NewFromField creates an image from a complex field. The amplitude is
// the field modulus and the phase is the unwrapped field argument.
func NewFromField(field []complex128, nx, ny int, meta Meta) (*QPImage, error) {
	if len(field) != nx*ny {
		return nil, fmt.Errorf("field data has %d values, expected %dx%d=%d",
			len(field), nx, ny, nx*ny)
	}
	pha := make([]float64, len(field))
	amp := make([]float64, len(field))
	for i, f := range field {
		pha[i] = cmplx.Phase(f)
		amp[i] = cmplx.Abs(f)
	}
	Unwrap2D(pha, nx, ny)
	return &QPImage{Nx: nx, Ny: ny, Pha: pha, Amp: amp, Meta: meta}, nil
}

// At returns the phase value at grid point (x, y).
func (q *QPImage) At(x, y int) float64 {
	return q.Pha[x*q.Ny+y]
}

// AmpAt returns the amplitude at grid point (x, y); unity if no
// amplitude data is present.
func (q *QPImage) AmpAt(x, y int) float64 {
	if q.Amp == nil {
		return 1
	}
	return q.Amp[x*q.Ny+y]
}

// TotalPhase returns the sum over all phase values. Its sign matches
// the sign of the refractive index difference between object and
// medium for well-behaved data.
func (q *QPImage) TotalPhase() float64 {
	var s float64
	for _, v := range q.Pha {
		s += v
	}
	return s
}

// Finite reports whether all phase and amplitude values are finite.
func (q *QPImage) Finite() bool {
	for _, v := range q.Pha {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range q.Amp {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the image.
func (q *QPImage) Clone() *QPImage {
	c := &QPImage{Nx: q.Nx, Ny: q.Ny, Meta: q.Meta}
	c.Pha = append([]float64(nil), q.Pha...)
	if q.Amp != nil {
		c.Amp = append([]float64(nil), q.Amp...)
	}
	if q.Sim != nil {
		s := *q.Sim
		c.Sim = &s
	}
	return c
}
