package helio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Solver computes positions from orbital elements.
// The zero value is ready to use and reproduces the reference algorithm.
// A Solver has no internal state and is safe for concurrent use.
type Solver struct {
	// MaxIterations caps the Kepler iteration (DefaultMaxIterations if <= 0).
	MaxIterations int
	// NormalizeMeanAnomaly wraps M into [0, 360) before solving Kepler's equation.
	NormalizeMeanAnomaly bool
	// Strict rejects epochs outside of the 1800-2050 AD validity interval.
	Strict bool
}

// Solution is the result of solving one body at one epoch.
type Solution struct {
	Body       string
	Epoch      time.Time
	JD         float64  // Julian date
	T          float64  // Julian centuries since J2000.0
	Elements   Elements // elements propagated to Epoch
	M          float64  // mean anomaly (deg)
	E          float64  // eccentric anomaly (deg)
	Iterations int      // Kepler iterations
	Xp, Yp     float64  // orbital plane coordinates (AU)
	Position   Position
	Velocity   Velocity
}

// Distance returns the heliocentric distance in AU.
func (s Solution) Distance() float64 {
	return s.Position.Norm()
}

// Residual returns |E - e*·sin(E) - M| in degrees.
func (s Solution) Residual() float64 {
	return keplerResidual(s.E, s.M, s.Elements.E)
}

// String implements the Stringer interface.
func (s Solution) String() string {
	return fmt.Sprintf("%s @ %s (JD %.5f): r=%s |r|=%.8f AU M=%.6f° E=%.6f° (%d it.)",
		s.Body, s.Epoch.UTC().Format(time.RFC3339), s.JD, s.Position, s.Distance(), s.M, s.E, s.Iterations)
}

// Solve propagates the elements to the epoch, solves Kepler's equation and
// returns the heliocentric ecliptic position and velocity.
func (s Solver) Solve(epoch time.Time, oe OrbitalElements) (Solution, error) {
	jd := JulianDate(epoch)
	if s.Strict && !withinTable1(jd) {
		return Solution{}, fmt.Errorf("%s @ %s: %w", oe.Name, epoch.UTC().Format(time.RFC3339), ErrEpochOutOfRange)
	}
	T := (jd - J2000) / DaysPerCentury
	el := oe.At(T)
	if el.E < 0 || el.E >= 1 || el.A <= 0 {
		return Solution{}, fmt.Errorf("%s @ T=%f (a=%f e=%f): %w", oe.Name, T, el.A, el.E, ErrUnsupportedOrbit)
	}
	M := el.MeanAnomaly()
	if s.NormalizeMeanAnomaly {
		M = Normalize360(M)
	}
	E, iterations, err := SolveKepler(M, el.E, s.MaxIterations)
	if err != nil {
		var cErr *ConvergenceError
		if errors.As(err, &cErr) {
			cErr.Body = oe.Name
		}
		return Solution{}, err
	}

	sE, cE := sincosd(E)
	b := el.A * math.Sqrt(1-el.E*el.E)
	xp := el.A * (cE - el.E)
	yp := b * sE
	rot := PQW2Ecliptic(el.W, el.I, el.Node)
	R := MxV33(rot, []float64{xp, yp, 0})

	// dE/dt from the mean motion; the drift of the other elements is neglected.
	Edot := oe.MeanMotion() * deg2rad / DaysPerCentury / (1 - el.E*cE) // rad/day
	V := MxV33(rot, []float64{-el.A * sE * Edot, b * cE * Edot, 0})

	return Solution{
		Body:       oe.Name,
		Epoch:      epoch,
		JD:         jd,
		T:          T,
		Elements:   el,
		M:          M,
		E:          E,
		Iterations: iterations,
		Xp:         xp,
		Yp:         yp,
		Position:   Position{R[0], R[1], R[2]},
		Velocity:   Velocity{V[0], V[1], V[2]},
	}, nil
}

// Position returns the heliocentric ecliptic position of the body at the epoch.
func (s Solver) Position(epoch time.Time, oe OrbitalElements) (Position, error) {
	sol, err := s.Solve(epoch, oe)
	if err != nil {
		return Position{}, err
	}
	return sol.Position, nil
}

// State returns the heliocentric ecliptic position and velocity of the body at the epoch.
func (s Solver) State(epoch time.Time, oe OrbitalElements) (Position, Velocity, error) {
	sol, err := s.Solve(epoch, oe)
	if err != nil {
		return Position{}, Velocity{}, err
	}
	return sol.Position, sol.Velocity, nil
}

// PositionAt returns the heliocentric ecliptic position in AU of the body at the epoch
// using the zero value Solver.
func PositionAt(epoch time.Time, oe OrbitalElements) (Position, error) {
	return Solver{}.Position(epoch, oe)
}
