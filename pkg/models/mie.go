package models

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RI-imaging/qpsphere/pkg/models/bhfield"
	"github.com/RI-imaging/qpsphere/pkg/propagate"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// FieldSolver evaluates the Mie-scattered field for one request. The
// production implementation shells out to the BHFIELD binary; tests
// substitute an in-process fake so the fit engines never depend on the
// external program.
type FieldSolver interface {
	Solve(req bhfield.Request) ([]complex128, error)
}

func defaultSolver() FieldSolver {
	return bhfield.Default()
}

// mie computes the field behind a dielectric sphere from the full Mie
// series. The solver samples the field at the sphere surface on the
// requested grid and the result is numerically refocused to the sphere
// center.
func mie(p Params, solver FieldSolver) (*qpimage.QPImage, error) {
	radiusUm := p.Radius * 1e6
	// propagation distance through the full sphere
	propdUm := radiusUm
	propdLamd := p.Radius / p.Wavelength

	// BHFIELD measures extents between first and last pixel center,
	// so the grid spans (grid-1) pixels.
	sizeXUm := float64(p.GridX-1) * p.PixelSize * 1e6
	sizeYUm := float64(p.GridY-1) * p.PixelSize * 1e6

	req := bhfield.Request{
		RadiusUm:     radiusUm,
		SizeXUm:      sizeXUm,
		SizeYUm:      sizeYUm,
		GridX:        p.GridX,
		GridY:        p.GridY,
		MediumIndex:  p.MediumIndex,
		SphereIndex:  p.SphereIndex,
		PositionUm:   propdUm,
		WavelengthNm: p.Wavelength * 1e9,
		OffsetXUm:    p.CenterX*p.PixelSize*1e6 - sizeXUm/2,
		OffsetYUm:    p.CenterY*p.PixelSize*1e6 - sizeYUm/2,
	}

	field, err := solver.Solve(req)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", Mie, err)
	}
	if len(field) != p.GridX*p.GridY {
		return nil, fmt.Errorf("model %s: solver returned %d samples, expected %d",
			Mie, len(field), p.GridX*p.GridY)
	}

	// divide out the plane-wave background accumulated over the
	// propagation distance
	background := cmplx.Exp(complex(0, 2*math.Pi*propdLamd*p.MediumIndex))
	for i := range field {
		field[i] /= background
	}

	refoc := propagate.Refocus(field, p.GridX, p.GridY,
		-(p.Radius / p.PixelSize), p.MediumIndex,
		p.Wavelength/p.PixelSize)

	qpi, err := qpimage.NewFromField(refoc, p.GridX, p.GridY, p.meta())
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", Mie, err)
	}
	qpi.Sim = p.simInfo(Mie)
	return qpi, nil
}
