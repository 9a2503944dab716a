package models

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/RI-imaging/qpsphere/pkg/interpolation"
	"github.com/RI-imaging/qpsphere/pkg/models/bhfield"
	"github.com/RI-imaging/qpsphere/pkg/propagate"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// mieAvg computes the polarization-averaged Mie field behind a
// dielectric sphere. Two one-dimensional radial cuts along orthogonal
// polarization axes are solved at `ip`-fold oversampling, averaged,
// expanded to a rotationally symmetric 2D field, numerically refocused
// to the sphere center, and finally resampled onto the requested grid.
// Averaging the orthogonal cuts removes the polarization artifacts of
// the full Mie model at the same per-profile solver cost.
func mieAvg(p Params, solver FieldSolver, ip int) (*qpimage.QPImage, error) {
	radiusUm := p.Radius * 1e6
	propdLamd := p.Radius / p.Wavelength

	upres := p.Wavelength / p.PixelSize * float64(ip)
	gx := float64(p.GridX)
	gy := float64(p.GridY)
	maxOff := math.Max(math.Abs(gx/2-.5-p.CenterX), math.Abs(gy/2-.5-p.CenterY))

	latsize := math.Round(math.Max(gx, gy) + maxOff)
	num := latsize * upres / 2

	// radial sample count: enough to cover the farthest image
	// corner, but no more than three sphere radii
	bignum := int(math.Ceil(math.Sqrt((gx/2+maxOff)*(gx/2+maxOff)+
		(gy/2+maxOff)*(gy/2+maxOff)))) * ip
	radnum := int(math.Ceil(3*p.Radius/p.PixelSize)) * ip
	if radnum < bignum {
		bignum = radnum
	}
	if bignum < 2 {
		return nil, fmt.Errorf("model %s: grid too small for radial sampling", MieAvg)
	}

	latsize *= float64(bignum) / num
	latsize *= p.Wavelength * 1e6
	upres /= p.Wavelength * 1e6

	base := bhfield.Request{
		RadiusUm:     radiusUm,
		MediumIndex:  p.MediumIndex,
		SphereIndex:  p.SphereIndex,
		PositionUm:   radiusUm,
		WavelengthNm: p.Wavelength * 1e9,
	}

	reqX := base
	reqX.SizeXUm = latsize / 2
	reqX.SizeYUm = 1 / upres
	reqX.GridX = bignum
	reqX.GridY = 1
	reqX.OffsetXUm = -latsize / 4
	fieldX, err := solver.Solve(reqX)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", MieAvg, err)
	}

	reqY := base
	reqY.SizeXUm = 1 / upres
	reqY.SizeYUm = latsize / 2
	reqY.GridX = 1
	reqY.GridY = bignum
	reqY.OffsetYUm = -latsize / 4
	fieldY, err := solver.Solve(reqY)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", MieAvg, err)
	}
	if len(fieldX) != bignum || len(fieldY) != bignum {
		return nil, fmt.Errorf("model %s: solver returned %d/%d samples, expected %d",
			MieAvg, len(fieldX), len(fieldY), bignum)
	}

	// polarization average of the two cuts, relative to the
	// plane-wave background
	background := cmplx.Exp(complex(0, 2*math.Pi*propdLamd*p.MediumIndex))
	profile := make([]complex128, bignum)
	for i := range profile {
		profile[i] = (fieldX[i] + fieldY[i]) / 2 / background
	}

	// radial coordinate of the profile samples [px]
	xo := make([]float64, bignum)
	for i := range xo {
		xo[i] = float64(i) * float64(bignum) / float64(bignum-1) / float64(ip)
	}
	proPha := make([]float64, bignum)
	proAmp := make([]float64, bignum)
	for i, f := range profile {
		proPha[i] = cmplx.Phase(f)
		proAmp[i] = cmplx.Abs(f)
	}
	qpimage.Unwrap1D(proPha)
	intpPha := &interpolation.Linear1D{Xs: xo, Vs: proPha, Fill: 0}
	intpAmp := &interpolation.Linear1D{Xs: xo, Vs: proAmp, Fill: 1}

	// rotationally symmetric 2D field on the oversampled grid
	upX := p.GridX * ip
	upY := p.GridY * ip
	xs := spanInclusive(-gx/2, gx/2, upX)
	ys := spanInclusive(-gy/2, gy/2, upY)
	field2d := make([]complex128, upX*upY)
	for i, xv := range xs {
		for j, yv := range ys {
			r := math.Hypot(xv, yv)
			field2d[i*upY+j] = cmplx.Rect(intpAmp.At(r), intpPha.At(r))
		}
	}

	// refocus with the oversampled array; downsampling first would
	// lose spatial information and break the symmetry
	refoc := propagate.Refocus(field2d, upX, upY,
		-(p.Radius/p.PixelSize)*float64(ip), p.MediumIndex,
		p.Wavelength/p.PixelSize*float64(ip))

	pha := make([]float64, upX*upY)
	amp := make([]float64, upX*upY)
	for i, f := range refoc {
		pha[i] = cmplx.Phase(f)
		amp[i] = cmplx.Abs(f)
	}
	qpimage.Unwrap2D(pha, upX, upY)

	// remove a global multiple-2-pi offset, estimated at the border
	border := append([]float64(nil), pha[:3*upY]...)
	sort.Float64s(border)
	offset := border[len(border)/2]
	if n2pi := math.Round(offset / (2 * math.Pi)); n2pi != 0 {
		for i := range pha {
			pha[i] -= n2pi * 2 * math.Pi
		}
	}

	// resample onto the requested grid at the requested center
	gridPha, err := interpolation.NewGrid2D(pha, xs, ys, 0)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", MieAvg, err)
	}
	gridAmp, err := interpolation.NewGrid2D(amp, xs, ys, 1)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", MieAvg, err)
	}
	ofx := gx/2 - p.CenterX
	ofy := gy/2 - p.CenterY
	xp := make([]float64, p.GridX)
	for i := range xp {
		xp[i] = -gx/2 + float64(i) + ofx
	}
	yp := make([]float64, p.GridY)
	for i := range yp {
		yp[i] = -gy/2 + float64(i) + ofy
	}

	qpi := &qpimage.QPImage{
		Nx:   p.GridX,
		Ny:   p.GridY,
		Pha:  gridPha.Resample(xp, yp),
		Amp:  gridAmp.Resample(xp, yp),
		Meta: p.meta(),
		Sim:  p.simInfo(MieAvg),
	}
	return qpi, nil
}

// spanInclusive returns n evenly spaced values from lo to hi, both
// endpoints included.
func spanInclusive(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
