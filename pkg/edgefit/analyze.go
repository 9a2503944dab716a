package edgefit

import (
	"fmt"
	"math"

	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// Result holds the sphere parameters recovered from the contour fit.
type Result struct {
	// Index is the fitted refractive index of the sphere.
	Index float64
	// Radius is the fitted sphere radius in meters.
	Radius float64
	// CenterX and CenterY are the fitted center in pixel coordinates.
	CenterX float64
	CenterY float64
	// Edge is the contour mask used for the fit.
	Edge []bool
}

// Analyze determines refractive index, radius and position of a
// spherical object from the contour of its phase image. radius0 is the
// expected sphere radius in meters and only sets the smoothing scale of
// the contour detection. The refractive index follows from inverting
// the projection model: the average phase per pixel of projected
// thickness divided by the phase a unit thickness of index contrast one
// would produce.
func Analyze(qpi *qpimage.QPImage, radius0 float64, opts ContourOptions) (*Result, error) {
	if qpi.Meta.PixelSize <= 0 {
		return nil, fmt.Errorf("failed to run edge fit: pixel size not set")
	}
	if qpi.Meta.Wavelength <= 0 {
		return nil, fmt.Errorf("failed to run edge fit: wavelength not set")
	}
	rpx0 := radius0 / qpi.Meta.PixelSize
	edge, err := ContourCanny(qpi.Pha, qpi.Nx, qpi.Ny, rpx0, opts)
	if err != nil {
		return nil, err
	}
	cx, cy, rpx, _, err := CircleFit(edge, qpi.Nx, qpi.Ny)
	if err != nil {
		return nil, err
	}
	avg := AverageSphere(qpi.Pha, qpi.Nx, qpi.Ny, cx, cy, rpx, true)
	index := qpi.Meta.MediumIndex + avg/(2*math.Pi*qpi.Meta.PixelSize/qpi.Meta.Wavelength)
	return &Result{
		Index:   index,
		Radius:  rpx * qpi.Meta.PixelSize,
		CenterX: cx,
		CenterY: cy,
		Edge:    edge,
	}, nil
}
