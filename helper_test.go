package helio

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const eps = 1e-12

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinAbs(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in degrees are equal modulo 360.
func anglesEqual(a, b, tol float64) (bool, error) {
	diff := angleDiff(a, b)
	if diff < tol {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f°", diff)
}

// angleDiff returns the absolute difference of two angles in degrees, in [0, 180].
func angleDiff(a, b float64) float64 {
	d := Normalize360(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// R3 rotation about the 3rd axis, angle in degrees.
func R3(x float64) *mat.Dense {
	s, c := sincosd(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

func TestAngleHelpers(t *testing.T) {
	if ok, err := anglesEqual(359.999, -0.001, 1e-9); !ok {
		t.Fatal(err)
	}
	if ok, _ := anglesEqual(10, 350, 1); ok {
		t.Fatal("10° and 350° are 20° apart")
	}
	if d := angleDiff(-170, 170); !scalar.EqualWithinAbs(d, 20, eps) {
		t.Fatalf("angleDiff(-170, 170)=%f", d)
	}
	if !vectorsEqual([]float64{1, 2, math.Pi}, []float64{1, 2, 3.14159265358979}, 1e-10) {
		t.Fatal("vectors should be equal")
	}
}
