package edgefit

import (
	"fmt"
	"math"
)

// ContourOptions control the multi-scale contour detection.
type ContourOptions struct {
	// MultCoarse scales the initial Gaussian sigma of the coarse
	// detection relative to the expected radius in pixels.
	MultCoarse float64
	// MultFine scales the Gaussian sigma of the fine detection.
	MultFine float64
	// ClipRMin and ClipRMax clip contour points whose distance from
	// the image center falls outside the given multiples of the mean
	// contour radius.
	ClipRMin float64
	ClipRMax float64
	// MaxIter bounds the number of smoothing scales tried before the
	// detection gives up.
	MaxIter int
}

// DefaultContourOptions returns the detection parameters that work well
// for phase images of micrometer-sized spheres.
func DefaultContourOptions() ContourOptions {
	return ContourOptions{
		MultCoarse: 0.40,
		MultFine:   0.10,
		ClipRMin:   0.9,
		ClipRMax:   1.1,
		MaxIter:    20,
	}
}

// ContourCanny detects the contour of a spherical object in a row-major
// nx x ny phase image. radiusPx is the expected object radius in
// pixels; it sets the smoothing scales of a coarse and a fine Canny
// detection. The coarse contour anchors radial clipping of the fine
// contour; when the fine detection fails, the coarse contour is used
// instead. The returned mask marks contour pixels.
func ContourCanny(img []float64, nx, ny int, radiusPx float64, opts ContourOptions) ([]bool, error) {
	half := float64(nx)
	if ny < nx {
		half = float64(ny)
	}
	if radiusPx > half/2 {
		return nil, &RadiusExceedsImageError{RadiusPx: radiusPx, Nx: nx, Ny: ny}
	}

	// normalize to [0, 1] so the hysteresis thresholds are comparable
	// across inputs
	mn, mx := img[0], img[0]
	for _, v := range img {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	norm := make([]float64, len(img))
	if mx > mn {
		for i, v := range img {
			norm[i] = (v - mn) / (mx - mn)
		}
	}

	// coarse detection: halve the smoothing scale until an edge shows
	var edgeCoarse []bool
	found := false
	scale := 0
	for ii := 0; ii < opts.MaxIter; ii++ {
		sigma := radiusPx * opts.MultCoarse * math.Pow(0.5, float64(ii))
		edgeCoarse = canny(norm, nx, ny, sigma)
		if countTrue(edgeCoarse) > 0 {
			found = true
			scale = ii
			break
		}
	}
	if !found {
		return nil, &DetectionError{Reason: fmt.Sprintf(
			"no contour found after %d coarse smoothing scales", opts.MaxIter)}
	}

	sigmaFine := radiusPx * opts.MultFine * math.Pow(0.7, float64(scale))
	edgeFine := canny(norm, nx, ny, sigmaFine)

	// restrict both contours to an ellipse with half the image extent;
	// everything outside cannot belong to a centered sphere
	rad := make([]float64, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			fx := linCoord(x, nx)
			fy := linCoord(y, ny)
			i := x*ny + y
			rad[i] = math.Hypot(fx, fy)
			ex := fx / float64(nx)
			ey := fy / float64(ny)
			if ex*ex+ey*ey >= 0.25 {
				edgeCoarse[i] = false
				edgeFine[i] = false
			}
		}
	}

	// clip coarse contour points far from the mean contour radius
	if n := countTrue(edgeCoarse); n > 0 {
		avg := meanRadius(rad, edgeCoarse)
		for i := range edgeCoarse {
			if edgeCoarse[i] && (rad[i] < avg*opts.ClipRMin || rad[i] > avg*opts.ClipRMax) {
				edgeCoarse[i] = false
			}
		}
	}

	var edge []bool
	switch {
	case countTrue(edgeFine) > 0:
		// the coarse contour sits on the steepest part of the edge;
		// fine contour points closer to the center than any coarse
		// point are artifacts inside the sphere
		if countTrue(edgeCoarse) > 0 {
			minCoarse := math.Inf(1)
			for i, on := range edgeCoarse {
				if on && rad[i] < minCoarse {
					minCoarse = rad[i]
				}
			}
			for i := range edgeFine {
				if edgeFine[i] && rad[i] < minCoarse {
					edgeFine[i] = false
				}
			}
		}
		for pass := 0; pass < 2 && countTrue(edgeFine) > 0; pass++ {
			avg := meanRadius(rad, edgeFine)
			for i := range edgeFine {
				if edgeFine[i] && rad[i] > avg*opts.ClipRMax {
					edgeFine[i] = false
				}
			}
		}
		edge = edgeFine
		if countTrue(edge) == 0 {
			edge = edgeCoarse
		}
	case countTrue(edgeCoarse) > 0:
		edge = edgeCoarse
	default:
		return nil, &DetectionError{Reason: "contour empty after ellipse clipping"}
	}

	if countTrue(edge) < 4 {
		return nil, &DetectionError{Reason: fmt.Sprintf(
			"only %d contour points found, need at least 4", countTrue(edge))}
	}
	return edge, nil
}

// linCoord maps pixel index i of an n-pixel axis to a coordinate in
// [-n/2, n/2] with the endpoints included.
func linCoord(i, n int) float64 {
	if n == 1 {
		return 0
	}
	return -float64(n)/2 + float64(i)*float64(n)/float64(n-1)
}

func countTrue(mask []bool) int {
	n := 0
	for _, on := range mask {
		if on {
			n++
		}
	}
	return n
}

func meanRadius(rad []float64, mask []bool) float64 {
	var sum float64
	var n int
	for i, on := range mask {
		if on {
			sum += rad[i]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
