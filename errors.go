package helio

import (
	"errors"
	"fmt"
)

var (
	// ErrConvergence is wrapped by every ConvergenceError.
	ErrConvergence = errors.New("kepler equation did not converge")
	// ErrUnknownBody is returned when a body is not in the catalog.
	ErrUnknownBody = errors.New("unknown body")
	// ErrMalformedElements is returned when a catalog entry is not usable.
	ErrMalformedElements = errors.New("malformed orbital elements")
	// ErrUnsupportedOrbit is returned when propagated elements are not elliptical.
	ErrUnsupportedOrbit = errors.New("only elliptical orbits are supported")
	// ErrEpochOutOfRange is returned by a strict Solver outside of 1800-2050 AD.
	ErrEpochOutOfRange = errors.New("epoch outside of the elements validity interval")
)

// ConvergenceError is returned when the fixed point iteration on Kepler's
// equation exceeds its iteration cap or diverges.
// Near-parabolic and hyperbolic elements (e >= 1) end up here.
type ConvergenceError struct {
	Body         string
	M            float64 // mean anomaly in degrees
	E            float64 // last eccentric anomaly iterate in degrees
	Eccentricity float64
	Iterations   int
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	name := e.Body
	if name == "" {
		name = "orbit"
	}
	return fmt.Sprintf("%s: %s after %d iterations (e=%.6f M=%.6f° E=%.6f°)", name, ErrConvergence, e.Iterations, e.Eccentricity, e.M, e.E)
}

// Unwrap allows errors.Is(err, ErrConvergence).
func (e *ConvergenceError) Unwrap() error {
	return ErrConvergence
}
