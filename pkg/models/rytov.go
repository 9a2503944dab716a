package models

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/RI-imaging/qpsphere/internal/fft2"
	"github.com/RI-imaging/qpsphere/pkg/interpolation"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// DefaultRadiusSampling is the number of pixels used to sample the
// sphere radius in the Rytov computation. 42 px is a reasonable value
// for single-cell analysis and is the regime the RytovSC correction
// coefficients were fitted in.
const DefaultRadiusSampling = 42

// rytov computes the field behind a dielectric sphere in the Rytov
// approximation. The scattered field is constructed in Fourier space
// via the Fourier slice theorem and the spherical Bessel function of
// order one, on an internal grid that samples the sphere radius with
// `sampling` pixels, and is then resampled onto the requested grid.
func rytov(p Params, sampling int) (*qpimage.QPImage, error) {
	// internal grid sampling the radius with `sampling` px
	sampMult := float64(sampling) * p.PixelSize / p.Radius
	simX := int(math.Round(float64(p.GridX) * sampMult))
	simY := int(math.Round(float64(p.GridY) * sampMult))
	if simX < 2 || simY < 2 {
		return nil, fmt.Errorf("model %s: radius %g too large for grid %dx%d at sampling %d",
			Rytov, p.Radius, p.GridX, p.GridY, sampling)
	}
	sizeFactor := float64(simX) / float64(p.GridX)
	pxSim := p.PixelSize / sizeFactor

	expo := rytovExponent(p.Radius, p.SphereIndex, p.MediumIndex,
		p.Wavelength, pxSim, simX, simY)

	// simulation coordinates (pixel centers) and output coordinates
	xsSim := make([]float64, simX)
	for i := range xsSim {
		xsSim[i] = (float64(i) + .5) * pxSim
	}
	ysSim := make([]float64, simY)
	for i := range ysSim {
		ysSim[i] = (float64(i) + .5) * pxSim
	}
	xOut := make([]float64, p.GridX)
	for i := range xOut {
		xOut[i] = (float64(i) + float64(p.GridX)/2 - p.CenterX) * p.PixelSize
	}
	yOut := make([]float64, p.GridY)
	for i := range yOut {
		yOut[i] = (float64(i) + float64(p.GridY)/2 - p.CenterY) * p.PixelSize
	}

	// The complex Rytov exponent is smooth in both components, so it
	// is resampled directly: its imaginary part is the (continuous)
	// phase and its real part the log-amplitude. Outside the
	// simulated area the field is the unit background (exponent 0).
	re := make([]float64, simX*simY)
	im := make([]float64, simX*simY)
	for i, c := range expo {
		re[i] = real(c)
		im[i] = imag(c)
	}
	gridRe, err := interpolation.NewGrid2D(re, xsSim, ysSim, 0)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", Rytov, err)
	}
	gridIm, err := interpolation.NewGrid2D(im, xsSim, ysSim, 0)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", Rytov, err)
	}
	reOut := gridRe.Resample(xOut, yOut)
	imOut := gridIm.Resample(xOut, yOut)

	pha := make([]float64, p.GridX*p.GridY)
	amp := make([]float64, p.GridX*p.GridY)
	for i := range pha {
		pha[i] = imOut[i]
		amp[i] = math.Exp(reOut[i])
	}

	qpi := &qpimage.QPImage{
		Nx:   p.GridX,
		Ny:   p.GridY,
		Pha:  pha,
		Amp:  amp,
		Meta: p.meta(),
		Sim:  p.simInfo(Rytov),
	}
	return qpi, nil
}

// rytovExponent evaluates the complex Rytov exponent of the scattered
// field at the sphere center plane on a simX x simY grid. All lengths
// are converted to pixel units internally. The computation zero-pads
// the grid by a factor of five to suppress wrap-around artifacts.
func rytovExponent(radius, sphereIndex, mediumIndex, wavelength, pixelSize float64, simX, simY int) []complex128 {
	const zeropad = 5

	// pixel units
	rpx := radius / pixelSize
	wl := wavelength / pixelSize

	opadX := simX * zeropad
	opadY := simY * zeropad

	kxs := fft2.FreqCentered(opadX)
	kys := fft2.FreqCentered(opadY)
	km := 2 * math.Pi * mediumIndex / wl

	// sub-pixel shift so the inverse transform is centered in real
	// space for even grid sizes
	var doffx, doffy float64
	if simX%2 == 0 {
		doffx = .5
	}
	if simY%2 == 0 {
		doffy = .5
	}

	// object amplitude prefactor
	objPref := km * km * ((sphereIndex/mediumIndex)*(sphereIndex/mediumIndex) - 1)

	fconv := make([]complex128, opadX*opadY)
	for i := 0; i < opadX; i++ {
		kx := 2 * math.Pi * kxs[i]
		for j := 0; j < opadY; j++ {
			ky := 2 * math.Pi * kys[j]
			kk := kx*kx + ky*ky
			if kk >= km*km {
				// outside the medium's propagating band
				continue
			}
			kz := math.Sqrt(km*km-kk) - km
			var f float64
			if i == opadX/2 && j == opadY/2 {
				// zero frequency has the analytical value
				f = 4.0 / 3.0 * math.Pi * rpx * rpx * rpx
			} else {
				r := math.Sqrt(kk+kz*kz) / (2 * math.Pi)
				f = sphericalJ1(2*math.Pi*r*rpx) * rpx * rpx / r * 2
			}
			f *= objPref
			if f == 0 {
				continue
			}
			// division factor of the Fourier diffraction theorem
			m := math.Sqrt(km*km-kk) / km
			a := complex(0, -2*km*m)
			transl := cmplx.Exp(complex(0, doffx*kx+doffy*ky))
			fconv[i*opadY+j] = complex(f, 0) / a * transl
		}
	}

	spec := fft2.Shift2D(fconv, opadX, opadY, false)
	field := fft2.IFFT2(spec, opadX, opadY)
	field = fft2.Shift2D(field, opadX, opadY, true)

	// remove the zero-padding
	a0 := opadX / 2
	a1 := opadY / 2
	b0 := simX / 2
	b1 := simY / 2
	of0 := 0
	if simX%2 != 0 {
		of0 = 1
		a0++
	}
	of1 := 0
	if simY%2 != 0 {
		of1 = 1
		a1++
	}
	out := make([]complex128, simX*simY)
	for i := 0; i < 2*b0+of0; i++ {
		srcRow := (a0 - b0 + i) * opadY
		copy(out[i*simY:(i+1)*simY], field[srcRow+a1-b1:srcRow+a1+b1+of1])
	}
	return out
}

// sphericalJ1 is the spherical Bessel function of the first kind and
// order one, j1(x) = sin(x)/x^2 - cos(x)/x.
func sphericalJ1(x float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Sin(x)/(x*x) - math.Cos(x)/x
}
