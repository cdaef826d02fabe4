package digitizer

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRangeGeometry is matched by every *GeometryError.
	ErrOutOfRangeGeometry = errors.New("out of range geometry")
	// ErrEmptyHit reports an operation that needs at least one step.
	ErrEmptyHit = errors.New("hit has no steps")
	// ErrNoThresholdCrossing reports a CFD that never fired inside the sampling window.
	ErrNoThresholdCrossing = errors.New("no threshold crossing")
	// ErrInvalidParameter is matched by every *ParameterError.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNotDigitized reports a decoding request before Digitize.
	ErrNotDigitized = errors.New("signal not digitized")
	// ErrMalformedHit reports inconsistent upstream hit data.
	ErrMalformedHit = errors.New("malformed hit")
)

// GeometryError reports a step outside the drift cell envelope.
type GeometryError struct {
	Step     int // -1 when not attached to a step
	Quantity string
	Value    float64
	Limit    float64
}

func (e *GeometryError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("%s %g outside valid range (limit %g)", e.Quantity, e.Value, e.Limit)
	}
	return fmt.Sprintf("step %d: %s %g outside valid range (limit %g)", e.Step, e.Quantity, e.Value, e.Limit)
}

func (e *GeometryError) Unwrap() error {
	return ErrOutOfRangeGeometry
}

// ParameterError reports a digitization or decoding parameter that cannot be used.
type ParameterError struct {
	Name  string
	Value float64
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid value %g for parameter %q", e.Value, e.Name)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// NoiseLengthError reports a noise sequence that does not match the sample count.
type NoiseLengthError struct {
	Want int
	Got  int
}

func (e *NoiseLengthError) Error() string {
	return fmt.Sprintf("noise sequence has %d samples, digitization needs %d", e.Got, e.Want)
}

func (e *NoiseLengthError) Unwrap() error {
	return ErrInvalidParameter
}
