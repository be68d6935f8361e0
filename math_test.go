package helio

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestDegreeTrig(t *testing.T) {
	exact := map[float64][2]float64{
		0:    {0, 1},
		30:   {0.5, math.Sqrt(3) / 2},
		90:   {1, 0},
		180:  {0, -1},
		270:  {-1, 0},
		-90:  {-1, 0},
		-210: {0.5, -math.Sqrt(3) / 2},
		720:  {0, 1},
	}
	for θ, exp := range exact {
		s, c := sincosd(θ)
		if !scalar.EqualWithinAbs(s, exp[0], 1e-15) || !scalar.EqualWithinAbs(c, exp[1], 1e-15) {
			t.Fatalf("sincosd(%f)=(%f, %f) expected (%f, %f)", θ, s, c, exp[0], exp[1])
		}
		if sind(θ) != s {
			t.Fatalf("sind(%f) != sincosd(%f)", θ, θ)
		}
	}
	for θ := -1000.0; θ <= 1000; θ += 0.37 {
		if !scalar.EqualWithinAbs(sind(θ), math.Sin(θ*math.Pi/180), 1e-13) {
			t.Fatalf("sind(%f) differs from the radian form", θ)
		}
	}
}

func TestNormalize360(t *testing.T) {
	for _, tc := range []struct{ in, out float64 }{
		{0, 0}, {360, 0}, {-360, 0}, {45, 45}, {-45, 315}, {725, 5}, {-2.47311027, 357.52688973},
		{-1e-15, 0},
	} {
		if got := Normalize360(tc.in); !scalar.EqualWithinAbs(got, tc.out, 1e-9) {
			t.Fatalf("Normalize360(%f)=%f expected %f", tc.in, got, tc.out)
		}
	}
	for θ := -5000.0; θ < 5000; θ += 13.7 {
		if n := Normalize360(θ); n < 0 || n >= 360 {
			t.Fatalf("Normalize360(%f)=%f out of [0, 360)", θ, n)
		}
	}
}

func TestNorm(t *testing.T) {
	if n := norm([]float64{3, 4, 12}); n != 13 {
		t.Fatalf("norm=%f", n)
	}
}
