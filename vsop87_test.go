package helio

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestVSOP87Pluto(t *testing.T) {
	// Pluto does not need the VSOP87 files.
	ref := NewVSOP87("")
	pluto, _ := DefaultCatalog().ElementsFor("Pluto")
	for _, dt := range []time.Time{
		J2000Time(),
		time.Date(1930, 2, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2015, 7, 14, 11, 49, 0, 0, time.UTC),
	} {
		c, err := ref.Compare(Solver{}, dt, pluto)
		if err != nil {
			t.Fatal(err)
		}
		if c.AngularSeparation() > 0.5 || c.Separation() > 0.01*c.Reference.Norm() {
			t.Fatalf("%s", c)
		}
	}
	// Taking the longitude of perihelion as ω rotates the orbit by Ω.
	kep, err := Solver{}.Position(J2000Time(), pluto)
	if err != nil {
		t.Fatal(err)
	}
	refPos, _ := ref.Position("Pluto", J2000Time())
	if c := (Comparison{Body: "Pluto", Kepler: kep, Reference: refPos}); c.AngularSeparation() < 30 {
		t.Fatalf("expected the convention offset, got %s", c)
	}
}

func TestVSOP87Errors(t *testing.T) {
	ref := NewVSOP87(t.TempDir())
	if _, err := ref.Position("Ceres", J2000Time()); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected ErrUnknownBody, got %v", err)
	}
	if _, err := ref.Position("Earth", J2000Time()); err == nil {
		t.Fatal("expected an error without the VSOP87 files")
	}
}

func TestVSOP87Planets(t *testing.T) {
	dir := os.Getenv("VSOP87")
	if dir == "" {
		t.Skip("VSOP87 is not set: skipping the comparison with VSOP87")
	}
	ref := NewVSOP87(dir)
	cat := DefaultCatalog()
	dt := time.Date(2017, 3, 20, 14, 45, 0, 0, time.UTC)
	for _, name := range cat.Names() {
		oe, _ := cat.ElementsFor(name)
		c, err := ref.Compare(Solver{}, dt, oe)
		if err != nil {
			t.Fatal(err)
		}
		// Table 1 errors are at most a few arcminutes in this interval once W is read as ϖ.
		if c.AngularSeparation() > 0.5 {
			t.Fatalf("%s", c)
		}
	}
	// The planets are cached.
	if len(ref.planets) != 8 {
		t.Fatalf("expected 8 cached planets, got %d", len(ref.planets))
	}
}
