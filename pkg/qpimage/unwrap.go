package qpimage

import "math"

// Unwrap1D removes 2-pi jumps from a sampled phase signal in place.
// Whenever the difference between neighboring samples exceeds pi, a
// multiple of 2*pi is subtracted from the remainder of the signal.
func Unwrap1D(p []float64) {
	if len(p) < 2 {
		return
	}
	var offset float64
	prev := p[0]
	for i := 1; i < len(p); i++ {
		d := p[i] - prev
		prev = p[i]
		if math.Abs(d) > math.Pi {
			offset -= 2 * math.Pi * math.Round(d/(2*math.Pi))
		}
		p[i] += offset
	}
}

// Unwrap2D removes 2-pi jumps from a row-major 2D phase map in place
// using Itoh's method: each row is unwrapped independently, then the
// rows are aligned by unwrapping along the first column. This is exact
// for phase maps whose true gradients stay below pi per pixel, which
// holds for the smooth spherical phase profiles handled here.
func Unwrap2D(p []float64, nx, ny int) {
	if nx == 0 || ny == 0 {
		return
	}
	for x := 0; x < nx; x++ {
		Unwrap1D(p[x*ny : (x+1)*ny])
	}
	// align rows via the first column
	col := make([]float64, nx)
	for x := 0; x < nx; x++ {
		col[x] = p[x*ny]
	}
	Unwrap1D(col)
	for x := 0; x < nx; x++ {
		shift := col[x] - p[x*ny]
		if shift != 0 {
			for y := 0; y < ny; y++ {
				p[x*ny+y] += shift
			}
		}
	}
}
