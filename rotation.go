package helio

import (
	"gonum.org/v1/gonum/mat"
)

const (
	// ObliquityJ2000 is the obliquity of the ecliptic at J2000.0 in degrees.
	ObliquityJ2000 = 23.43928
)

// PQW2Ecliptic returns the rotation from the orbital (perifocal) frame to the
// ecliptic frame, i.e. a 3-1-3 rotation by the argument of perihelion ω, the
// inclination i and the longitude of the ascending node Ω. Angles are in degrees.
func PQW2Ecliptic(ω, i, Ω float64) *mat.Dense {
	sω, cω := sincosd(ω)
	si, ci := sincosd(i)
	sΩ, cΩ := sincosd(Ω)
	return mat.NewDense(3, 3, []float64{
		cω*cΩ - sω*sΩ*ci, -sω*cΩ - cω*sΩ*ci, sΩ * si,
		cω*sΩ + sω*cΩ*ci, -sω*sΩ + cω*cΩ*ci, -cΩ * si,
		sω * si, cω * si, ci})
}

// R1 rotation about the 1st axis, angle in degrees.
func R1(x float64) *mat.Dense {
	s, c := sincosd(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) []float64 {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(len(v), v))
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}

// EclipticToEquatorial rotates an ecliptic J2000 position into the J2000 equatorial frame.
func EclipticToEquatorial(p Position) Position {
	v := MxV33(R1(-ObliquityJ2000), p.Slice())
	return Position{v[0], v[1], v[2]}
}
