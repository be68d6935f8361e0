package helio

import (
	"math"
)

const (
	// KeplerTolerance is the convergence threshold of the eccentric anomaly in
	// degrees: 1e-4 radians expressed in degrees.
	KeplerTolerance = 1.0 / 10000 * rad2deg
	// DefaultMaxIterations caps the Kepler iteration.
	DefaultMaxIterations = 1000
)

// SolveKepler solves Kepler's equation E = M + e*·sin(E) for the eccentric
// anomaly E, where e* = e·180/π so that the whole equation is in degrees.
// The fixed point iteration starts at E₀ = M and stops once two iterates are
// closer than KeplerTolerance. It returns the number of iterations performed.
//
// The iteration only converges for elliptical orbits: if maxIter iterations are
// not enough, or an iterate is not finite, a *ConvergenceError is returned.
// A maxIter <= 0 uses DefaultMaxIterations.
func SolveKepler(M, e float64, maxIter int) (E float64, iterations int, err error) {
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	eStar := e * rad2deg
	E = M
	for iterations < maxIter {
		prevE := E
		E = M + eStar*sind(prevE)
		iterations++
		if math.IsNaN(E) || math.IsInf(E, 0) {
			break
		}
		if math.Abs(E-prevE) < KeplerTolerance {
			return E, iterations, nil
		}
	}
	return E, iterations, &ConvergenceError{M: M, E: E, Eccentricity: e, Iterations: iterations}
}

// keplerResidual returns |E - e*·sin(E) - M| in degrees.
func keplerResidual(E, M, e float64) float64 {
	return math.Abs(E - e*rad2deg*sind(E) - M)
}
