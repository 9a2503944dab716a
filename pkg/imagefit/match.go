package imagefit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
	"github.com/RI-imaging/qpsphere/pkg/trace"
)

// number of samples per one-dimensional parameter scan
const rangeIpol = 47

// number of samples per axis of the center offset scan
const rangeOff = 13

// Fix selects fit parameters that stay at their initial value.
type Fix struct {
	Radius    bool
	Index     bool
	Center    bool
	PhaOffset bool
}

// Bounds restricts the scanned parameter candidates. Zero fields leave
// the corresponding side unbounded; the radius is always required to be
// positive.
type Bounds struct {
	RadiusMin, RadiusMax float64
	IndexMin, IndexMax   float64
}

func (b Bounds) radiusOK(r float64) bool {
	if r <= 0 {
		return false
	}
	if b.RadiusMin != 0 && r < b.RadiusMin {
		return false
	}
	if b.RadiusMax != 0 && r > b.RadiusMax {
		return false
	}
	return true
}

func (b Bounds) indexOK(n float64) bool {
	if b.IndexMin != 0 && n < b.IndexMin {
		return false
	}
	if b.IndexMax != 0 && n > b.IndexMax {
		return false
	}
	return true
}

// Options control the phase matching iteration.
type Options struct {
	// CenterX and CenterY give the initial center in pixels; when
	// UseCenter is false the image center is used.
	CenterX, CenterY float64
	UseCenter        bool
	// PhaOffset is the initial phase background offset.
	PhaOffset float64
	// Fix freezes selected parameters at their initial values.
	Fix Fix
	// Bounds restricts the scanned parameter candidates.
	Bounds Bounds
	// NRel and RRel set the initial half-widths of the index and
	// radius search intervals, relative to the index contrast and the
	// radius.
	NRel, RRel float64
	// CRel bounds the center search interval: dc = max(wavelength,
	// CRel*r0)/pixel size.
	CRel float64
	// StopDn, StopDr and StopDc are the convergence thresholds for
	// index (absolute), radius (relative) and center movement (px).
	StopDn, StopDr, StopDc float64
	// MinIter forces at least this many iterations; MaxIter is an
	// exact cap, never exceeded.
	MinIter, MaxIter int
	// Simulator overrides the model evaluation, used for testing.
	Simulator Simulator
	// Trace receives one entry per iteration when set.
	Trace trace.Sink
}

// DefaultOptions returns the iteration parameters used by the
// orchestration layer.
func DefaultOptions() Options {
	return Options{
		NRel:    0.10,
		RRel:    0.05,
		CRel:    0.05,
		StopDn:  0.0005,
		StopDr:  0.0010,
		StopDc:  1,
		MinIter: 3,
		MaxIter: 100,
	}
}

// Result holds the fitted parameters and the termination state.
type Result struct {
	// Index is the fitted refractive index of the sphere.
	Index float64
	// Radius is the fitted radius in meters.
	Radius float64
	// CenterX and CenterY are the fitted center in pixels.
	CenterX, CenterY float64
	// PhaOffset is the fitted phase background offset.
	PhaOffset float64
	// Iterations counts the iterations performed.
	Iterations int
	// Converged reports whether the stopping criteria were met before
	// the iteration cap; Message states the termination rationale.
	Converged bool
	Message   string
	// Sim is the model image at the fitted parameters.
	Sim *qpimage.QPImage
}

// MatchPhase fits the scattering model kind to the phase image in qpi,
// starting from refractive index n0 and radius r0 (meters). Each
// iteration scans radius, refractive index and center position on
// interpolated model images, then re-estimates the phase background
// offset from the border pixels. Search intervals halve whenever the
// optimum falls inside them, so the parameters converge geometrically.
// Failure to converge within the iteration cap is not an error: the
// last iterate is returned with Converged set to false.
func MatchPhase(qpi *qpimage.QPImage, kind models.Kind, n0, r0 float64, opts Options) (*Result, error) {
	if qpi.Meta.PixelSize <= 0 || qpi.Meta.Wavelength <= 0 || qpi.Meta.MediumIndex <= 0 {
		return nil, fmt.Errorf("failed to fit image: pixel size, wavelength and medium index must be set")
	}
	cx, cy := float64(qpi.Nx)/2, float64(qpi.Ny)/2
	if opts.UseCenter {
		cx, cy = opts.CenterX, opts.CenterY
	}

	p := models.Params{
		Radius:      r0,
		SphereIndex: n0,
		MediumIndex: qpi.Meta.MediumIndex,
		Wavelength:  qpi.Meta.Wavelength,
		PixelSize:   qpi.Meta.PixelSize,
		GridX:       qpi.Nx,
		GridY:       qpi.Ny,
		CenterX:     cx,
		CenterY:     cy,
	}
	sim := opts.Simulator
	if sim == nil {
		sim = func(p models.Params) (*qpimage.QPImage, error) {
			return models.Simulate(kind, p)
		}
	}
	ip := NewInterpolator(sim, p, opts.PhaOffset, opts.NRel, opts.RRel)

	phase := qpi.Pha
	dc := math.Max(qpi.Meta.Wavelength, opts.CRel*r0) / qpi.Meta.PixelSize

	// parameter pairs seen so far, to detect stuck iterations
	type state struct{ n, r float64 }
	seen := make(map[state]int)

	var (
		iter      int
		converged bool
		message   string
	)
	for {
		if iter >= opts.MaxIter {
			message = "reached maximum number of iterations"
			break
		}
		iter++

		rOld := ip.Radius
		nOld := ip.SphereIndex

		// 1st step: scan the radius interval
		idr := rangeIpol / 2
		if !opts.Fix.Radius {
			rlo, rhi := ip.RangeR()
			best := math.Inf(1)
			bestR := ip.Radius
			for i := 0; i < rangeIpol; i++ {
				r := rlo + (rhi-rlo)*float64(i)/float64(rangeIpol-1)
				if !opts.Bounds.radiusOK(r) {
					continue
				}
				pha, err := ip.PhaseAt(ip.SphereIndex, r, 0, 0)
				if err != nil {
					return nil, err
				}
				if e := sqDiff(phase, pha); e < best {
					best, bestR, idr = e, r, i
				}
			}
			ip.Radius = bestR
		}

		// 2nd step: scan the refractive index interval
		idn := rangeIpol / 2
		if !opts.Fix.Index {
			nlo, nhi := ip.RangeN()
			best := math.Inf(1)
			bestN := ip.SphereIndex
			for i := 0; i < rangeIpol; i++ {
				n := nlo + (nhi-nlo)*float64(i)/float64(rangeIpol-1)
				if !opts.Bounds.indexOK(n) {
					continue
				}
				pha, err := ip.PhaseAt(n, ip.Radius, 0, 0)
				if err != nil {
					return nil, err
				}
				if e := sqDiff(phase, pha); e < best {
					best, bestN, idn = e, n, i
				}
			}
			ip.SphereIndex = bestN
		}

		// 3rd step: scan the center offsets
		var deltax, deltay float64
		if !opts.Fix.Center {
			best := math.Inf(1)
			for ix := 0; ix < rangeOff; ix++ {
				xoff := -dc + 2*dc*float64(ix)/float64(rangeOff-1)
				for iy := 0; iy < rangeOff; iy++ {
					yoff := -dc + 2*dc*float64(iy)/float64(rangeOff-1)
					pha, err := ip.PhaseAt(ip.SphereIndex, ip.Radius, xoff, yoff)
					if err != nil {
						return nil, err
					}
					if e := sqDiff(phase, pha); e < best {
						best, deltax, deltay = e, xoff, yoff
					}
				}
			}
			// offsets accumulate; the scan perturbs around the
			// current position without overriding it
			ip.PosX -= deltax
			ip.PosY -= deltay
		}

		// 4th step: estimate the phase background offset from border
		// pixels that carry no sphere signal
		if !opts.Fix.PhaOffset {
			if err := updatePhaOffset(ip, phase, qpi.Nx, qpi.Ny); err != nil {
				return nil, err
			}
		}

		if opts.Trace != nil {
			pha, err := ip.Phase()
			if err != nil {
				return nil, err
			}
			err = opts.Trace.Append(trace.Entry{
				Iteration:   iter,
				Radius:      ip.Radius,
				SphereIndex: ip.SphereIndex,
				PhaOffset:   ip.PhaOffset,
				CenterX:     ip.PosX,
				CenterY:     ip.PosY,
				Phase:       pha,
				Nx:          qpi.Nx,
				Ny:          qpi.Ny,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to record fit trace: %w", err)
			}
		}

		// halve a search interval whenever its optimum landed in the
		// middle fifth
		mid := float64(rangeIpol) / 2
		if float64(idn) > mid-float64(rangeIpol)/10 && float64(idn) < mid+float64(rangeIpol)/10 {
			ip.Dn /= 2
		}
		if float64(idr) > mid-float64(rangeIpol)/10 && float64(idr) < mid+float64(rangeIpol)/10 {
			ip.Dr /= 2
		}
		if deltax*deltax+deltay*deltay < dc*dc {
			dc /= 2
		}

		if iter < opts.MinIter {
			continue
		}

		if opts.StopDc > 0 {
			if math.Hypot(deltax, deltay) > opts.StopDc {
				continue
			}
		}

		if math.Abs(ip.Radius-rOld)/ip.Radius < opts.StopDr &&
			math.Abs(ip.SphereIndex-nOld) < opts.StopDn {
			converged = true
			message = "satisfied stopping criteria"
			break
		}

		s := state{n: ip.SphereIndex, r: ip.Radius}
		seen[s]++
		if seen[s] > 2 {
			message = "same parameters encountered twice, iteration stuck"
			break
		}
	}

	res := &Result{
		Index:      ip.SphereIndex,
		Radius:     ip.Radius,
		CenterX:    ip.PosX,
		CenterY:    ip.PosY,
		PhaOffset:  ip.PhaOffset,
		Iterations: iter,
		Converged:  converged,
		Message:    message,
	}
	qpiSim, err := ip.Compute()
	if err != nil {
		return nil, err
	}
	res.Sim = qpiSim
	return res, nil
}

// updatePhaOffset estimates the background phase offset from pixels at
// the image border whose modeled phase is below 1% of the maximum, so
// the sphere itself does not bias the estimate.
func updatePhaOffset(ip *Interpolator, phase []float64, nx, ny int) error {
	model, err := ip.Phase()
	if err != nil {
		return err
	}
	cab := make([]float64, len(model))
	maxAbs := 0.0
	for i, v := range model {
		cab[i] = v - ip.PhaOffset
		if a := math.Abs(cab[i]); a > maxAbs {
			maxAbs = a
		}
	}
	border := nx
	if ny < border {
		border = ny
	}
	border = border / 5
	if border < 5 {
		border = 5
	}
	var sum float64
	var count int
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			if x >= border && x < nx-border && y >= border && y < ny-border {
				continue
			}
			i := x*ny + y
			if math.Abs(cab[i]) > 0.01*maxAbs {
				continue
			}
			sum += cab[i] - phase[i]
			count++
		}
	}
	offset := 0.0
	if count > 0 {
		offset = sum / float64(count)
	}
	ip.PhaOffset = -offset
	return nil
}

// sqDiff is the sum of squared differences between two images.
func sqDiff(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
