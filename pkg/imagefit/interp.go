// Package imagefit fits a light-scattering model to a measured phase
// image. The fit alternates one-dimensional searches over radius,
// refractive index and lateral position on interpolated model images,
// shrinking the search intervals as the optimum settles. Only the nine
// border images of the current search rectangle are computed with the
// full model; everything in between is linear interpolation, which
// keeps the number of expensive model evaluations small.
package imagefit

import (
	"fmt"
	"math"

	"github.com/RI-imaging/qpsphere/pkg/interpolation"
	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// Simulator produces a model phase image for the given sphere
// parameters. The default implementation calls models.Simulate;
// tests substitute a cheap closed-form model and count invocations.
type Simulator func(p models.Params) (*qpimage.QPImage, error)

// Interpolator caches model phase images at the borders of the current
// search intervals for refractive index and radius, and produces phase
// images at intermediate parameters by linear interpolation between the
// cached images. Lateral sub-pixel shifts are applied by resampling the
// interpolated image.
type Interpolator struct {
	sim    Simulator
	params models.Params

	// Radius is the current sphere radius in meters.
	Radius float64
	// SphereIndex is the current refractive index of the sphere.
	SphereIndex float64
	// PhaOffset is added to every returned phase image.
	PhaOffset float64
	// PosX and PosY are the current center position in pixels.
	PosX, PosY float64
	// Dn is half the current search interval for the refractive index.
	Dn float64
	// Dr is half the current search interval for the radius in meters.
	Dr float64

	nBorder   [3][3]float64
	rBorder   [3][3]float64
	borderPha map[[2]int][]float64
}

// NewInterpolator prepares interpolation around the parameters in p.
// nrel sets the half-width of the refractive index interval relative to
// the index contrast |n - nmed|; rrel sets the half-width of the radius
// interval relative to the radius.
func NewInterpolator(sim Simulator, p models.Params, phaOffset, nrel, rrel float64) *Interpolator {
	return &Interpolator{
		sim:         sim,
		params:      p,
		Radius:      p.Radius,
		SphereIndex: p.SphereIndex,
		PhaOffset:   phaOffset,
		PosX:        p.CenterX,
		PosY:        p.CenterY,
		Dn:          math.Abs((p.SphereIndex - p.MediumIndex) * nrel),
		Dr:          p.Radius * rrel,
		borderPha:   make(map[[2]int][]float64),
	}
}

// RangeN returns the current refractive index search interval.
func (ip *Interpolator) RangeN() (lo, hi float64) {
	return ip.SphereIndex - ip.Dn, ip.SphereIndex + ip.Dn
}

// RangeR returns the current radius search interval in meters.
func (ip *Interpolator) RangeR() (lo, hi float64) {
	return ip.Radius - ip.Dr, ip.Radius + ip.Dr
}

// borderPhase returns the model phase at one of the nine border points
// of the search rectangle; idn and idr select -1 (lower), 0 (center) or
// 1 (upper) for index and radius. Images are recomputed only when the
// corresponding parameter moved since the last call.
func (ip *Interpolator) borderPhase(idn, idr int) ([]float64, error) {
	if idn < -1 || idn > 1 || idr < -1 || idr > 1 {
		return nil, fmt.Errorf("failed to interpolate: border index (%d, %d) out of range", idn, idr)
	}
	n := ip.SphereIndex + ip.Dn*float64(idn)
	r := ip.Radius + ip.Dr*float64(idr)

	key := [2]int{idn + 1, idr + 1}
	if ip.nBorder[key[0]][key[1]] == n && ip.rBorder[key[0]][key[1]] == r {
		if pha, ok := ip.borderPha[key]; ok {
			return pha, nil
		}
	}

	p := ip.params
	p.Radius = r
	p.SphereIndex = n
	p.CenterX = ip.PosX
	p.CenterY = ip.PosY
	qpi, err := ip.sim(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compute border phase (n=%g, r=%g): %w", n, r, err)
	}
	ip.borderPha[key] = qpi.Pha
	ip.nBorder[key[0]][key[1]] = n
	ip.rBorder[key[0]][key[1]] = r
	return qpi.Pha, nil
}

// Phase returns the interpolated phase image at the current parameters.
func (ip *Interpolator) Phase() ([]float64, error) {
	return ip.PhaseAt(ip.SphereIndex, ip.Radius, 0, 0)
}

// PhaseAt returns the interpolated phase image at refractive index n
// and radius r, shifted laterally by (dx, dy) pixels. Only one of n and
// r may deviate from the current parameters, and the deviating value
// must lie within the current search interval.
func (ip *Interpolator) PhaseAt(n, r, dx, dy float64) ([]float64, error) {
	if n != ip.SphereIndex && r != ip.Radius {
		return nil, fmt.Errorf("failed to interpolate: only one of index and radius may change at a time")
	}
	if r < ip.Radius-ip.Dr || r > ip.Radius+ip.Dr {
		return nil, fmt.Errorf("failed to interpolate: radius %g outside [%g, %g]",
			r, ip.Radius-ip.Dr, ip.Radius+ip.Dr)
	}
	if n < ip.SphereIndex-ip.Dn || n > ip.SphereIndex+ip.Dn {
		return nil, fmt.Errorf("failed to interpolate: index %g outside [%g, %g]",
			n, ip.SphereIndex-ip.Dn, ip.SphereIndex+ip.Dn)
	}

	left, err := ip.borderPhase(0, 0)
	if err != nil {
		return nil, err
	}
	var right []float64
	var dist, dmax float64
	if r == ip.Radius {
		dist = n - ip.SphereIndex
		dmax = ip.Dn
		if dist < 0 {
			right, err = ip.borderPhase(-1, 0)
		} else {
			right, err = ip.borderPhase(1, 0)
		}
	} else {
		dist = r - ip.Radius
		dmax = ip.Dr
		if dist < 0 {
			right, err = ip.borderPhase(0, -1)
		} else {
			right, err = ip.borderPhase(0, 1)
		}
	}
	if err != nil {
		return nil, err
	}

	pha := make([]float64, len(left))
	if dmax == 0 || dist == 0 {
		copy(pha, left)
	} else {
		frac := math.Abs(dist) / dmax
		for i := range pha {
			pha[i] = left[i] + (right[i]-left[i])*frac
		}
	}

	if dx != 0 || dy != 0 {
		pha = interpolation.Shift2D(pha, ip.params.GridX, ip.params.GridY, dx, dy, 0)
	}
	if ip.PhaOffset != 0 {
		for i := range pha {
			pha[i] += ip.PhaOffset
		}
	}
	return pha, nil
}

// Compute runs the full model at the current parameters, without
// interpolation, and applies the fitted phase offset. The result may
// deviate slightly from the last interpolated image.
func (ip *Interpolator) Compute() (*qpimage.QPImage, error) {
	p := ip.params
	p.Radius = ip.Radius
	p.SphereIndex = ip.SphereIndex
	p.CenterX = ip.PosX
	p.CenterY = ip.PosY
	qpi, err := ip.sim(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compute final model image: %w", err)
	}
	if ip.PhaOffset != 0 {
		for i := range qpi.Pha {
			qpi.Pha[i] += ip.PhaOffset
		}
	}
	return qpi, nil
}
