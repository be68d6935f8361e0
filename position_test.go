package helio

import (
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestPosition(t *testing.T) {
	p := Position{1, 1, 0}
	if !scalar.EqualWithinAbs(p.Longitude(), 45, eps) || p.Latitude() != 0 {
		t.Fatalf("lon=%f lat=%f", p.Longitude(), p.Latitude())
	}
	if lon := (Position{0, -2, 0}).Longitude(); !scalar.EqualWithinAbs(lon, 270, eps) {
		t.Fatalf("lon=%f", lon)
	}
	if lat := (Position{1, 0, 1}).Latitude(); !scalar.EqualWithinAbs(lat, 45, eps) {
		t.Fatalf("lat=%f", lat)
	}
	if s := p.Scale(100); s != (Position{100, 100, 0}) {
		t.Fatalf("scaled %s", s)
	}
	if p.Scale(1) != p {
		t.Fatal("a unit scale must not change the position")
	}
	if km := (Position{1, 0, -0.5}).Kilometers(); !vectorsEqual(km, []float64{AU, 0, -AU / 2}, 1e-6) {
		t.Fatalf("km=%v", km)
	}
	if d := (Position{1, 2, 3}).Sub(Position{1, 2, 2}); d.Norm() != 1 {
		t.Fatalf("diff=%s", d)
	}
	out, err := json.Marshal(Position{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"x":1,"y":2,"z":3}` {
		t.Fatalf("json=%s", out)
	}
}

func TestVelocity(t *testing.T) {
	v := Velocity{0.0172, 0, 0}
	kms := v.KilometersPerSecond()
	if !scalar.EqualWithinAbs(kms[0], 0.0172*AU/86400, 1e-9) || kms[1] != 0 {
		t.Fatalf("km/s=%v", kms)
	}
	if v.Norm() != 0.0172 {
		t.Fatalf("norm=%f", v.Norm())
	}
}
