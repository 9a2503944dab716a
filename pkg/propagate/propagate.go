// Package propagate implements free-space propagation of complex
// fields with the angular spectrum method. The Mie models use it to
// numerically refocus the field computed at the sphere surface back to
// the sphere center, mirroring how the measured phase images are
// focused.
package propagate

import (
	"math"
	"math/cmplx"

	"github.com/RI-imaging/qpsphere/internal/fft2"
)

// Refocus propagates a row-major nx x ny complex field by a distance d
// along the optical axis. Distances are measured in pixels, nm is the
// medium refractive index, and res is the vacuum wavelength in pixels.
//
// The propagation kernel is exp(i*d*(kz - km)) with
// kz = sqrt(km^2 - kx^2 - ky^2), so a homogeneous background field is
// left unchanged. Evanescent components (kz imaginary) are suppressed.
func Refocus(field []complex128, nx, ny int, d, nm, res float64) []complex128 {
	km := 2 * math.Pi * nm / res
	kxs := fft2.Freq(nx)
	kys := fft2.Freq(ny)

	spec := fft2.FFT2(field, nx, ny)
	for i := 0; i < nx; i++ {
		kx := 2 * math.Pi * kxs[i]
		for j := 0; j < ny; j++ {
			ky := 2 * math.Pi * kys[j]
			arg := km*km - kx*kx - ky*ky
			if arg < 0 {
				// evanescent component
				spec[i*ny+j] = 0
				continue
			}
			kz := math.Sqrt(arg)
			spec[i*ny+j] *= cmplx.Exp(complex(0, d*(kz-km)))
		}
	}
	return fft2.IFFT2(spec, nx, ny)
}
