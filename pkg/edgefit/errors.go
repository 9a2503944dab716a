package edgefit

import "fmt"

// RadiusExceedsImageError is returned when the initial radius guess is
// larger than half of the smaller image dimension, so the sphere edge
// cannot lie inside the field of view. Callers may treat this as a
// recoverable condition and fall back to default initial parameters.
type RadiusExceedsImageError struct {
	RadiusPx float64
	Nx, Ny   int
}

func (e *RadiusExceedsImageError) Error() string {
	return fmt.Sprintf("edge fit: radius %.1fpx exceeds half the image size (%dx%d)",
		e.RadiusPx, e.Nx, e.Ny)
}

// DetectionError is returned when the contour detection cannot produce
// a usable edge, for instance when no edge is found at any smoothing
// scale or when too few contour points remain after clipping.
type DetectionError struct {
	Reason string
}

func (e *DetectionError) Error() string {
	return "edge fit: " + e.Reason
}
