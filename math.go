package helio

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// sind returns the sine of an angle in degrees.
func sind(θ float64) float64 {
	return unit.AngleFromDeg(θ).Sin()
}

// sincosd returns the sine and cosine of an angle in degrees.
func sincosd(θ float64) (s, c float64) {
	return unit.AngleFromDeg(θ).Sincos()
}

// Normalize360 wraps an angle in degrees into [0, 360).
func Normalize360(θ float64) float64 {
	θ = math.Mod(θ, 360)
	if θ < 0 {
		θ += 360
	}
	if θ >= 360 {
		// -1e-15 + 360 rounds to 360.
		θ = 0
	}
	return θ
}

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return floats.Norm(v, 2)
}
