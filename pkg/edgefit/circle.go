package edgefit

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// CircleFit fits a circle to the pixels marked in the row-major
// nx x ny edge mask. The center is found with a Nelder-Mead search
// minimizing the variance of the point distances, starting from the
// contour centroid; the radius is the mean distance of the contour
// points from the fitted center. dev is the mean absolute deviation of
// the point distances from the radius, a measure of how circular the
// contour is. The fitted center is clamped into the image bounds so a
// degenerate contour cannot place the sphere outside the field of view.
func CircleFit(edge []bool, nx, ny int) (cx, cy, radius, dev float64, err error) {
	var xs, ys []float64
	for i, on := range edge {
		if on {
			xs = append(xs, float64(i/ny))
			ys = append(ys, float64(i%ny))
		}
	}
	if len(xs) < 3 {
		return 0, 0, 0, 0, &DetectionError{Reason: "circle fit needs at least 3 contour points"}
	}

	var cx0, cy0 float64
	for i := range xs {
		cx0 += xs[i]
		cy0 += ys[i]
	}
	cx0 /= float64(len(xs))
	cy0 /= float64(len(ys))

	dists := make([]float64, len(xs))
	cost := func(c []float64) float64 {
		var mean float64
		for i := range xs {
			dists[i] = math.Hypot(xs[i]-c[0], ys[i]-c[1])
			mean += dists[i]
		}
		mean /= float64(len(dists))
		var s float64
		for _, d := range dists {
			s += (d - mean) * (d - mean)
		}
		return s
	}

	cx, cy = cx0, cy0
	problem := optimize.Problem{Func: cost}
	result, oerr := optimize.Minimize(problem, []float64{cx0, cy0}, nil, &optimize.NelderMead{})
	if oerr == nil && result != nil {
		cx, cy = result.X[0], result.X[1]
	}
	cx = clamp(cx, 0, float64(nx-1))
	cy = clamp(cy, 0, float64(ny-1))

	for i := range xs {
		d := math.Hypot(xs[i]-cx, ys[i]-cy)
		radius += d
		dists[i] = d
	}
	radius /= float64(len(xs))
	for _, d := range dists {
		dev += math.Abs(d - radius)
	}
	dev /= float64(len(dists))
	return cx, cy, radius, dev, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
