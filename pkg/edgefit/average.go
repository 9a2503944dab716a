package edgefit

import "math"

// AverageSphere estimates the average phase retardation per pixel of
// projected sphere thickness from the pixels inside the fitted circle.
// Each pixel inside the circle sees a projected thickness
// h = 2*sqrt(radius^2 - d^2) in pixels, where d is the distance from
// the center. The weighted estimate is the h-weighted mean of the
// phase density pha/h, which reduces to sum(pha)/sum(h) and gives
// pixels near the center more weight than the artifact-prone rim;
// the unweighted estimate averages pha/h over all interior pixels.
func AverageSphere(pha []float64, nx, ny int, cx, cy, radius float64, weighted bool) float64 {
	rsq := radius * radius
	var num, den float64
	var n int
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			dsq := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
			if dsq >= rsq {
				continue
			}
			h := 2 * math.Sqrt(rsq-dsq)
			if h == 0 {
				continue
			}
			p := pha[x*ny+y]
			if weighted {
				num += p
				den += h
			} else {
				num += p / h
				n++
			}
		}
	}
	if weighted {
		if den == 0 {
			return 0
		}
		return num / den
	}
	if n == 0 {
		return 0
	}
	return num / float64(n)
}
