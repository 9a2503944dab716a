package models

import (
	"fmt"
	"math"

	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// CorrectionCoeffs are the polynomial coefficients of the RytovSC
// systematic error correction for one radius sampling regime. With
// x = n/nmed - 1, the corrected quantities are
//
//	n_sc = n + nmed * (Na*x^2 + Nb*x)
//	r_sc = r * (Ra*x^2 + Rb*x + Rc)
type CorrectionCoeffs struct {
	Na, Nb     float64
	Ra, Rb, Rc float64
}

// CorrectionTable maps a radius sampling [px] to the correction
// coefficients fitted for that regime. Tables are immutable after
// construction and passed explicitly, so tests can substitute
// alternate coefficient sets.
type CorrectionTable map[int]CorrectionCoeffs

// DefaultCorrections holds the published coefficients, fitted against
// Mie ground truth at a radius sampling of 42 px.
var DefaultCorrections = CorrectionTable{
	42: {
		Na: 1.936,
		Nb: -0.012,
		Ra: -2.431,
		Rb: -0.753,
		Rc: 1.001,
	},
}

// coeffs resolves the coefficients for a radius sampling, reporting an
// unsupported-parameters condition for regimes the table was never
// validated in.
func (t CorrectionTable) coeffs(sampling int) (CorrectionCoeffs, error) {
	c, ok := t[sampling]
	if !ok {
		return CorrectionCoeffs{}, &UnsupportedParametersError{
			Model: RytovSC,
			Reason: fmt.Sprintf("no correction coefficients for radius sampling %d px",
				sampling),
		}
	}
	return c, nil
}

// CorrectOutput maps fit results obtained with the plain Rytov model to
// their systematically corrected values.
func (t CorrectionTable) CorrectOutput(radius, sphereIndex, mediumIndex float64, sampling int) (radiusSC, indexSC float64, err error) {
	c, err := t.coeffs(sampling)
	if err != nil {
		return 0, 0, err
	}
	x := sphereIndex/mediumIndex - 1
	radiusSC = radius * (c.Ra*x*x + c.Rb*x + c.Rc)
	indexSC = sphereIndex + mediumIndex*(c.Na*x*x+c.Nb*x)
	return radiusSC, indexSC, nil
}

// CorrectInput is the inverse of CorrectOutput: it maps corrected
// sphere parameters back to the plain Rytov parameters that produce
// them. It reports an unsupported-parameters condition when the
// corrected index is not above the medium index and a negative-radius
// condition when the back-corrected radius is not positive.
func (t CorrectionTable) CorrectInput(radiusSC, indexSC, mediumIndex float64, sampling int) (radius, sphereIndex float64, err error) {
	c, err := t.coeffs(sampling)
	if err != nil {
		return 0, 0, err
	}
	if indexSC <= mediumIndex {
		return 0, 0, &UnsupportedParametersError{
			Model: RytovSC,
			Reason: fmt.Sprintf("sphere index %g not above medium index %g",
				indexSC, mediumIndex),
		}
	}

	// positive-branch solution of the quadratic index correction
	prefac := mediumIndex / (2 * c.Na)
	sm := 2*c.Na - c.Nb - 1
	rt := c.Nb*c.Nb - 4*c.Na + 2*c.Nb + 1 + 4/mediumIndex*c.Na*indexSC
	if rt < 0 {
		return 0, 0, &UnsupportedParametersError{
			Model: RytovSC,
			Reason: fmt.Sprintf("index correction has no real solution for n=%g", indexSC),
		}
	}
	sphereIndex = prefac * (sm + math.Sqrt(rt))

	x := sphereIndex/mediumIndex - 1
	radius = radiusSC / (c.Ra*x*x + c.Rb*x + c.Rc)
	if radius <= 0 {
		return 0, 0, &NegativeRadiusError{Model: RytovSC, Radius: radius}
	}
	return radius, sphereIndex, nil
}

// rytovSC computes the field behind a dielectric sphere with the
// systematically corrected Rytov approximation: the requested
// parameters are back-corrected, the plain Rytov field is evaluated
// with them, and the image keeps the requested parameters as its
// simulation metadata.
func rytovSC(p Params, sampling int, table CorrectionTable) (*qpimage.QPImage, error) {
	rRyt, nRyt, err := table.CorrectInput(p.Radius, p.SphereIndex,
		p.MediumIndex, sampling)
	if err != nil {
		return nil, err
	}

	pRyt := p
	pRyt.Radius = rRyt
	pRyt.SphereIndex = nRyt
	qpi, err := rytov(pRyt, sampling)
	if err != nil {
		return nil, err
	}

	// report the requested, corrected parameters
	qpi.Sim = p.simInfo(RytovSC)
	return qpi, nil
}
