package models

import "fmt"

// UnsupportedParametersError is returned when a parameter combination
// falls outside a model's validated regime, for example a RytovSC
// radius sampling with no correction coefficients or a sphere index
// that is not above the medium index. The model refuses to extrapolate
// silently.
type UnsupportedParametersError struct {
	Model  Kind
	Reason string
}

func (e *UnsupportedParametersError) Error() string {
	return fmt.Sprintf("model %s: unsupported parameters: %s", e.Model, e.Reason)
}

// NegativeRadiusError is returned when an internally corrected radius
// becomes non-positive, signalling that the model is unreliable at the
// requested radius. The value is reported, never clamped.
type NegativeRadiusError struct {
	Model  Kind
	Radius float64
}

func (e *NegativeRadiusError) Error() string {
	return fmt.Sprintf("model %s: corrected radius %g is not positive",
		e.Model, e.Radius)
}
