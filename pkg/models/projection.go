package models

import (
	"math"

	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// projection computes the optical path difference of a dielectric
// sphere in the projection approximation: each pixel's phase is the
// line integral of the refractive index difference along the optical
// axis,
//
//	phi(x, y) = (n - nmed) * 2*pi * h(x, y) / lambda
//
// with h the chord length of the sphere above the pixel. The amplitude
// is constant and the focus position does not enter.
func projection(p Params) *qpimage.QPImage {
	rpx := p.Radius / p.PixelSize
	pref := (p.SphereIndex - p.MediumIndex) * 2 * math.Pi * p.PixelSize / p.Wavelength

	pha := make([]float64, p.GridX*p.GridY)
	for x := 0; x < p.GridX; x++ {
		dx := float64(x) - p.CenterX
		for y := 0; y < p.GridY; y++ {
			dy := float64(y) - p.CenterY
			r := rpx*rpx - dx*dx - dy*dy
			if r > 0 {
				pha[x*p.GridY+y] = pref * 2 * math.Sqrt(r)
			}
		}
	}

	qpi := &qpimage.QPImage{
		Nx:   p.GridX,
		Ny:   p.GridY,
		Pha:  pha,
		Meta: p.meta(),
		Sim:  p.simInfo(Projection),
	}
	return qpi
}
