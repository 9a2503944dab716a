// Package analysis determines refractive index and radius of a
// spherical phase object from a quantitative phase image. It ties the
// fast edge-based fit and the accurate image-based fit together: the
// edge fit always runs first to seed the initial parameters, and the
// image fit refines them against a selectable scattering model.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/RI-imaging/qpsphere/pkg/edgefit"
	"github.com/RI-imaging/qpsphere/pkg/imagefit"
	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// Method selects the fitting strategy.
type Method int

const (
	// MethodEdge determines radius and index from the detected sphere
	// contour alone. Fast, restricted to the projection model.
	MethodEdge Method = iota
	// MethodImage performs a full 2D phase image fit with the
	// requested scattering model, seeded by the edge fit.
	MethodImage
)

var methodNames = map[Method]string{
	MethodEdge:  "edge",
	MethodImage: "image",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a method name ("edge" or "image") to a Method.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown analysis method %q", s)
}

// Options tune the two fitting stages. Zero-valued sub-options are
// replaced by the respective defaults.
type Options struct {
	Edge  edgefit.ContourOptions
	Image imagefit.Options
}

// Result is the outcome of an analysis.
type Result struct {
	// Index is the refractive index of the sphere.
	Index float64
	// Radius is the sphere radius in meters.
	Radius float64
	// CenterX and CenterY are the sphere center in pixels.
	CenterX, CenterY float64
	// PhaOffset is the fitted phase background offset; zero for the
	// edge method.
	PhaOffset float64
	// Iterations counts the image fit iterations; zero for the edge
	// method.
	Iterations int
	// Converged is false only when the image fit hit its iteration
	// cap or got stuck; the edge method always converges or errors.
	Converged bool
	// Sim is the model image at the fitted parameters.
	Sim *qpimage.QPImage
}

// Analyze fits a sphere to the phase image. r0 is the expected sphere
// radius in meters. The edge method requires the projection model; the
// image method accepts any model kind. A failing edge detection is not
// fatal for either method: the edge method then inverts the projection
// model with the caller-supplied radius and a centered sphere, and the
// image method starts its fit from the image center with a minimal
// index contrast guess.
func Analyze(qpi *qpimage.QPImage, r0 float64, method Method, kind models.Kind, opts Options) (*Result, error) {
	if opts.Edge.MaxIter == 0 {
		opts.Edge = edgefit.DefaultContourOptions()
	}
	if opts.Image.MaxIter == 0 {
		def := imagefit.DefaultOptions()
		def.Fix = opts.Image.Fix
		def.Bounds = opts.Image.Bounds
		def.Simulator = opts.Image.Simulator
		def.Trace = opts.Image.Trace
		opts.Image = def
	}

	switch method {
	case MethodEdge:
		if kind != models.Projection {
			return nil, fmt.Errorf("edge method requires the projection model, got %q", kind)
		}
		er, err := edgefit.Analyze(qpi, r0, opts.Edge)
		if err != nil {
			// a failed contour detection is recoverable: keep the
			// caller's radius, assume a centered sphere and still
			// invert the projection model analytically
			var radErr *edgefit.RadiusExceedsImageError
			var detErr *edgefit.DetectionError
			if !errors.As(err, &radErr) && !errors.As(err, &detErr) {
				return nil, err
			}
			cx := float64(qpi.Nx) / 2
			cy := float64(qpi.Ny) / 2
			rpx := r0 / qpi.Meta.PixelSize
			avg := edgefit.AverageSphere(qpi.Pha, qpi.Nx, qpi.Ny, cx, cy, rpx, true)
			er = &edgefit.Result{
				Index:   qpi.Meta.MediumIndex + avg/(2*math.Pi*qpi.Meta.PixelSize/qpi.Meta.Wavelength),
				Radius:  r0,
				CenterX: cx,
				CenterY: cy,
			}
		}
		sim, err := models.Simulate(models.Projection, models.Params{
			Radius:      er.Radius,
			SphereIndex: er.Index,
			MediumIndex: qpi.Meta.MediumIndex,
			Wavelength:  qpi.Meta.Wavelength,
			PixelSize:   qpi.Meta.PixelSize,
			GridX:       qpi.Nx,
			GridY:       qpi.Ny,
			CenterX:     er.CenterX,
			CenterY:     er.CenterY,
		})
		if err != nil {
			return nil, err
		}
		return &Result{
			Index:     er.Index,
			Radius:    er.Radius,
			CenterX:   er.CenterX,
			CenterY:   er.CenterY,
			Converged: true,
			Sim:       sim,
		}, nil

	case MethodImage:
		n0, r1, c0x, c0y := guessFromEdge(qpi, r0, opts.Edge)
		opts.Image.UseCenter = true
		opts.Image.CenterX = c0x
		opts.Image.CenterY = c0y
		mr, err := imagefit.MatchPhase(qpi, kind, n0, r1, opts.Image)
		if err != nil {
			return nil, err
		}
		return &Result{
			Index:      mr.Index,
			Radius:     mr.Radius,
			CenterX:    mr.CenterX,
			CenterY:    mr.CenterY,
			PhaOffset:  mr.PhaOffset,
			Iterations: mr.Iterations,
			Converged:  mr.Converged,
			Sim:        mr.Sim,
		}, nil

	default:
		return nil, fmt.Errorf("unknown analysis method %v", method)
	}
}

// guessFromEdge seeds the image fit from the edge fit. When the edge
// detection fails, the guess keeps the caller-supplied radius and falls
// back to the image center with a minimal index contrast whose sign
// follows the total phase.
func guessFromEdge(qpi *qpimage.QPImage, r0 float64, opts edgefit.ContourOptions) (n0, r1, cx, cy float64) {
	er, err := edgefit.Analyze(qpi, r0, opts)
	if err == nil {
		return er.Index, er.Radius, er.CenterX, er.CenterY
	}
	sign := 1.0
	if qpi.TotalPhase() < 0 {
		sign = -1
	}
	return qpi.Meta.MediumIndex + sign*0.01, r0, float64(qpi.Nx) / 2, float64(qpi.Ny) / 2
}
