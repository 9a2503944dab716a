// Package edgefit determines the refractive index and radius of a
// spherical phase object from the edge detected in its phase image: a
// Canny contour detection, a circle fit to the contour, and a weighted
// phase average over the fitted disk inverted through the projection
// model. It is the fast path of the analysis and seeds the initial
// parameters of the full image fit.
package edgefit

import (
	"math"
)

// canny performs Canny edge detection on a row-major nx x ny image:
// Gaussian smoothing with the given sigma, Sobel gradients, non-maximum
// suppression along the quantized gradient direction, and hysteresis
// thresholding at 10% and 20% of the maximum gradient magnitude.
func canny(img []float64, nx, ny int, sigma float64) []bool {
	sm := img
	if sigma > 0 {
		sm = gaussianBlur(img, nx, ny, sigma)
	}

	// Sobel gradients; border pixels keep zero gradient
	gx := make([]float64, nx*ny)
	gy := make([]float64, nx*ny)
	mag := make([]float64, nx*ny)
	maxMag := 0.0
	for x := 1; x < nx-1; x++ {
		for y := 1; y < ny-1; y++ {
			i := x*ny + y
			gx[i] = sm[(x+1)*ny+y-1] + 2*sm[(x+1)*ny+y] + sm[(x+1)*ny+y+1] -
				sm[(x-1)*ny+y-1] - 2*sm[(x-1)*ny+y] - sm[(x-1)*ny+y+1]
			gy[i] = sm[(x-1)*ny+y+1] + 2*sm[x*ny+y+1] + sm[(x+1)*ny+y+1] -
				sm[(x-1)*ny+y-1] - 2*sm[x*ny+y-1] - sm[(x+1)*ny+y-1]
			mag[i] = math.Hypot(gx[i], gy[i])
			if mag[i] > maxMag {
				maxMag = mag[i]
			}
		}
	}
	if maxMag == 0 {
		return make([]bool, nx*ny)
	}

	// non-maximum suppression along the quantized gradient direction
	thin := make([]float64, nx*ny)
	for x := 1; x < nx-1; x++ {
		for y := 1; y < ny-1; y++ {
			i := x*ny + y
			if mag[i] == 0 {
				continue
			}
			var m1, m2 float64
			angle := math.Atan2(gy[i], gx[i])
			if angle < 0 {
				angle += math.Pi
			}
			switch {
			case angle < math.Pi/8 || angle >= 7*math.Pi/8:
				m1, m2 = mag[(x-1)*ny+y], mag[(x+1)*ny+y]
			case angle < 3*math.Pi/8:
				m1, m2 = mag[(x-1)*ny+y-1], mag[(x+1)*ny+y+1]
			case angle < 5*math.Pi/8:
				m1, m2 = mag[x*ny+y-1], mag[x*ny+y+1]
			default:
				m1, m2 = mag[(x-1)*ny+y+1], mag[(x+1)*ny+y-1]
			}
			if mag[i] >= m1 && mag[i] >= m2 {
				thin[i] = mag[i]
			}
		}
	}

	// hysteresis: keep weak edges only when connected to strong ones
	edge := make([]bool, nx*ny)
	if maxMag == 0 {
		return edge
	}
	low := 0.1 * maxMag
	high := 0.2 * maxMag
	var stack []int
	for i, v := range thin {
		if v >= high {
			edge[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i/ny, i%ny
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				xx, yy := x+dx, y+dy
				if xx < 0 || yy < 0 || xx >= nx || yy >= ny {
					continue
				}
				j := xx*ny + yy
				if !edge[j] && thin[j] >= low {
					edge[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edge
}

// gaussianBlur applies separable Gaussian smoothing with the kernel
// truncated at four standard deviations. Borders are handled by
// renormalizing over the in-bounds kernel support.
func gaussianBlur(img []float64, nx, ny int, sigma float64) []float64 {
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var ksum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		ksum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= ksum
	}

	tmp := make([]float64, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			var acc, wsum float64
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 || yy >= ny {
					continue
				}
				w := kernel[k+radius]
				acc += w * img[x*ny+yy]
				wsum += w
			}
			tmp[x*ny+y] = acc / wsum
		}
	}
	out := make([]float64, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			var acc, wsum float64
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 || xx >= nx {
					continue
				}
				w := kernel[k+radius]
				acc += w * tmp[xx*ny+y]
				wsum += w
			}
			out[x*ny+y] = acc / wsum
		}
	}
	return out
}
