package helio

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestElementsAtJ2000(t *testing.T) {
	cat := DefaultCatalog()
	for _, name := range cat.Names() {
		oe, _ := cat.ElementsFor(name)
		el := oe.At(0)
		base := []float64{oe.A.Value, oe.E.Value, oe.I.Value, oe.L.Value, oe.W.Value, oe.Node.Value}
		got := []float64{el.A, el.E, el.I, el.L, el.W, el.Node}
		if !floats.Equal(base, got) {
			t.Fatalf("%s: propagation at T=0 changed the elements: %v != %v", name, got, base)
		}
		if el.Name != oe.Name {
			t.Fatalf("name lost: %s", el.Name)
		}
	}
}

func TestElementsPropagation(t *testing.T) {
	e := ElementRate{Value: 100.46457166, Rate: 35999.37244981}
	// Constants fold exactly while At rounds twice, hence the relative tolerance.
	if !scalar.EqualWithinRel(e.At(0.5), 100.46457166+35999.37244981/2, 1e-15) {
		t.Fatalf("incorrect propagation: %f", e.At(0.5))
	}
	if !scalar.EqualWithinAbs(e.At(-1), 100.46457166-35999.37244981, 1e-9) {
		t.Fatalf("incorrect back propagation: %f", e.At(-1))
	}
	earth, _ := DefaultCatalog().ElementsFor("Earth")
	if mm := earth.MeanMotion(); !scalar.EqualWithinRel(mm, 35999.37244981-0.32327364, 1e-15) {
		t.Fatalf("incorrect mean motion %f", mm)
	}
	if m := earth.At(0).MeanAnomaly(); !scalar.EqualWithinAbs(m, -2.47311027, 1e-10) {
		t.Fatalf("incorrect mean anomaly %f", m)
	}
}

func TestElementsWithoutDrift(t *testing.T) {
	mars, _ := DefaultCatalog().ElementsFor("mars")
	nd := mars.WithoutDrift()
	for _, T := range []float64{-1.5, 0.01, 2} {
		el, ref := nd.At(T), mars.At(0)
		if el.A != ref.A || el.E != ref.E || el.I != ref.I || el.W != ref.W || el.Node != ref.Node {
			t.Fatalf("T=%f: elements drifted: %s", T, el)
		}
		if el.L != mars.L.At(T) {
			t.Fatalf("T=%f: mean longitude must keep moving", T)
		}
	}
}

func TestElementsArgumentOfPerihelion(t *testing.T) {
	pluto, _ := DefaultCatalog().ElementsFor("Pluto")
	conv := pluto.WithArgumentOfPerihelion()
	if !scalar.EqualWithinAbs(conv.W.Value, 224.06891629-110.30393684, 1e-9) || !scalar.EqualWithinAbs(conv.W.Rate, -0.04062942+0.01183482, 1e-12) {
		t.Fatalf("incorrect argument of perihelion %v", conv.W)
	}
	if conv.Node != pluto.Node || conv.L != pluto.L || conv.A != pluto.A {
		t.Fatal("only W may change")
	}
	// M = L - ϖ once converted.
	if m := conv.At(0).MeanAnomaly(); !scalar.EqualWithinAbs(m, 238.92903833-224.06891629, 1e-9) {
		t.Fatalf("incorrect mean anomaly %f", m)
	}
	if pluto.W.Value != 224.06891629 {
		t.Fatal("the receiver was modified")
	}
}

func TestElementsDerived(t *testing.T) {
	el := Elements{A: 2, E: 0.25}
	if el.Perihelion() != 1.5 || el.Aphelion() != 2.5 {
		t.Fatalf("q=%f Q=%f", el.Perihelion(), el.Aphelion())
	}
	if el.SemiParameter() != 2*(1-0.0625) {
		t.Fatalf("p=%f", el.SemiParameter())
	}
	mercury, _ := DefaultCatalog().ElementsFor("Mercury")
	m0 := mercury.At(0)
	if !scalar.EqualWithinAbs(m0.Perihelion(), 0.3071, 1e-3) || !scalar.EqualWithinAbs(m0.Aphelion(), 0.4671, 1e-3) {
		t.Fatalf("Mercury bounds [%f, %f]", m0.Perihelion(), m0.Aphelion())
	}
}

func TestElementsValidate(t *testing.T) {
	good := OrbitalElements{Name: "Ceres", A: ElementRate{2.7675, 0}, E: ElementRate{0.0758, 0}, L: ElementRate{0, 7820}}
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	for name, bad := range map[string]func(o *OrbitalElements){
		"no name":   func(o *OrbitalElements) { o.Name = "" },
		"a=0":       func(o *OrbitalElements) { o.A.Value = 0 },
		"e<0":       func(o *OrbitalElements) { o.E.Value = -0.1 },
		"parabolic": func(o *OrbitalElements) { o.E.Value = 1 },
		"NaN rate":  func(o *OrbitalElements) { o.I.Rate = math.NaN() },
		"Inf":       func(o *OrbitalElements) { o.Node.Value = math.Inf(1) },
	} {
		o := good
		bad(&o)
		if err := o.Validate(); !errors.Is(err, ErrMalformedElements) {
			t.Fatalf("%s: expected ErrMalformedElements, got %v", name, err)
		}
	}
}
