package helio

import (
	"fmt"
	"math"
)

const (
	// AU is one astronomical unit in kilometers.
	AU = 1.49597870700e8
)

// Position is a heliocentric position in AU in the J2000 ecliptic frame.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the distance to the Sun in AU.
func (p Position) Norm() float64 {
	return norm(p.Slice())
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Scale returns the position multiplied by a display scale factor.
// Renderers must always go through this with an explicit factor: there is no
// implicit AU to display unit conversion.
func (p Position) Scale(f float64) Position {
	return Position{p.X * f, p.Y * f, p.Z * f}
}

// Longitude returns the ecliptic longitude in degrees, in [0, 360).
func (p Position) Longitude() float64 {
	return Normalize360(math.Atan2(p.Y, p.X) * rad2deg)
}

// Latitude returns the ecliptic latitude in degrees.
func (p Position) Latitude() float64 {
	return math.Asin(p.Z/p.Norm()) * rad2deg
}

// Kilometers returns the components in km.
func (p Position) Kilometers() []float64 {
	return []float64{p.X * AU, p.Y * AU, p.Z * AU}
}

// Slice returns the components as a 3x1 slice.
func (p Position) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// String implements the Stringer interface.
func (p Position) String() string {
	return fmt.Sprintf("[%.8f %.8f %.8f] AU", p.X, p.Y, p.Z)
}

// Velocity is a heliocentric velocity in AU/day in the J2000 ecliptic frame.
type Velocity struct {
	X float64 `json:"vx"`
	Y float64 `json:"vy"`
	Z float64 `json:"vz"`
}

// Norm returns the speed in AU/day.
func (v Velocity) Norm() float64 {
	return norm(v.Slice())
}

// KilometersPerSecond returns the components in km/s.
func (v Velocity) KilometersPerSecond() []float64 {
	f := AU / secondsPerDay
	return []float64{v.X * f, v.Y * f, v.Z * f}
}

// Slice returns the components as a 3x1 slice.
func (v Velocity) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// String implements the Stringer interface.
func (v Velocity) String() string {
	return fmt.Sprintf("[%.8f %.8f %.8f] AU/d", v.X, v.Y, v.Z)
}
