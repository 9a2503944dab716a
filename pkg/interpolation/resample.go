// Package interpolation provides the deterministic grid resampling used
// by the scattering models and the image fit engine: bilinear sampling
// of 2D maps at sub-pixel coordinates, sub-pixel translation of whole
// images, and 1D linear interpolation of radial profiles with explicit
// fill values outside the sampled range.
//
// All operations are pure functions of their inputs. Bilinear sampling
// is continuous in the sample coordinates, so optimizers perturbing
// center offsets see a smooth cost surface instead of the stair-steps
// a nearest-pixel lookup would produce.
package interpolation

import (
	"fmt"
	"math"
)

// Grid2D is a read-only view of a row-major 2D map with coordinates
// attached to both axes. Xs and Ys must be strictly increasing and
// match the grid dimensions.
type Grid2D struct {
	Data []float64
	Xs   []float64
	Ys   []float64
	// Fill is returned for coordinates outside the sampled area.
	Fill float64
}

// NewGrid2D validates the coordinate axes against the data length.
func NewGrid2D(data []float64, xs, ys []float64, fill float64) (*Grid2D, error) {
	if len(data) != len(xs)*len(ys) {
		return nil, fmt.Errorf("grid has %d values, expected %dx%d=%d",
			len(data), len(xs), len(ys), len(xs)*len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("x axis not strictly increasing at %d", i)
		}
	}
	for i := 1; i < len(ys); i++ {
		if ys[i] <= ys[i-1] {
			return nil, fmt.Errorf("y axis not strictly increasing at %d", i)
		}
	}
	return &Grid2D{Data: data, Xs: xs, Ys: ys, Fill: fill}, nil
}

// At samples the grid at physical coordinates (x, y) with bilinear
// interpolation. Outside the axes' range, Fill is returned.
func (g *Grid2D) At(x, y float64) float64 {
	nx, ny := len(g.Xs), len(g.Ys)
	if x < g.Xs[0] || x > g.Xs[nx-1] || y < g.Ys[0] || y > g.Ys[ny-1] {
		return g.Fill
	}
	i := searchSorted(g.Xs, x)
	j := searchSorted(g.Ys, y)
	tx := 0.0
	if dx := g.Xs[i+1] - g.Xs[i]; dx > 0 {
		tx = (x - g.Xs[i]) / dx
	}
	ty := 0.0
	if dy := g.Ys[j+1] - g.Ys[j]; dy > 0 {
		ty = (y - g.Ys[j]) / dy
	}
	v00 := g.Data[i*ny+j]
	v01 := g.Data[i*ny+j+1]
	v10 := g.Data[(i+1)*ny+j]
	v11 := g.Data[(i+1)*ny+j+1]
	return v00*(1-tx)*(1-ty) + v01*(1-tx)*ty + v10*tx*(1-ty) + v11*tx*ty
}

// Resample evaluates the grid on the outer product of the output
// coordinates and returns a row-major len(xout) x len(yout) map.
func (g *Grid2D) Resample(xout, yout []float64) []float64 {
	out := make([]float64, len(xout)*len(yout))
	for i, x := range xout {
		for j, y := range yout {
			out[i*len(yout)+j] = g.At(x, y)
		}
	}
	return out
}

// searchSorted returns the cell index i such that xs[i] <= x <= xs[i+1],
// clamped to the last cell. xs has at least two entries when called.
func searchSorted(xs []float64, x float64) int {
	lo, hi := 0, len(xs)-2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Shift2D resamples a row-major nx x ny map at pixel coordinates
// translated by (dx, dy): out(x, y) = in(x+dx, y+dy). Coordinates that
// fall outside the input are filled with fill.
func Shift2D(data []float64, nx, ny int, dx, dy, fill float64) []float64 {
	out := make([]float64, len(data))
	for x := 0; x < nx; x++ {
		sx := float64(x) + dx
		for y := 0; y < ny; y++ {
			sy := float64(y) + dy
			out[x*ny+y] = bilinearPixel(data, nx, ny, sx, sy, fill)
		}
	}
	return out
}

// bilinearPixel samples a map at fractional pixel indices.
func bilinearPixel(data []float64, nx, ny int, x, y, fill float64) float64 {
	if x < 0 || y < 0 || x > float64(nx-1) || y > float64(ny-1) {
		return fill
	}
	if nx == 1 || ny == 1 {
		return data[int(math.Round(x))*ny+int(math.Round(y))]
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	if x0 == nx-1 {
		x0--
	}
	if y0 == ny-1 {
		y0--
	}
	tx := x - float64(x0)
	ty := y - float64(y0)
	v00 := data[x0*ny+y0]
	v01 := data[x0*ny+y0+1]
	v10 := data[(x0+1)*ny+y0]
	v11 := data[(x0+1)*ny+y0+1]
	return v00*(1-tx)*(1-ty) + v01*(1-tx)*ty + v10*tx*(1-ty) + v11*tx*ty
}

// Linear1D interpolates a strictly increasing sampling of a 1D profile
// and returns Fill outside the sampled range.
type Linear1D struct {
	Xs   []float64
	Vs   []float64
	Fill float64
}

// At evaluates the profile at x.
func (l *Linear1D) At(x float64) float64 {
	n := len(l.Xs)
	if n == 0 {
		return l.Fill
	}
	if x < l.Xs[0] || x > l.Xs[n-1] {
		return l.Fill
	}
	if n == 1 {
		return l.Vs[0]
	}
	i := searchSorted(l.Xs, x)
	d := l.Xs[i+1] - l.Xs[i]
	if d == 0 {
		return l.Vs[i]
	}
	t := (x - l.Xs[i]) / d
	return l.Vs[i]*(1-t) + l.Vs[i+1]*t
}
