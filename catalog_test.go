package helio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ceresYAML = `bodies:
  - name: Ceres
    a:    [2.7675, 0]
    e:    [0.0758, 0]
    i:    [10.59, 0]
    l:    [153.9, 7819.5]
    w:    [153.3, 0]
    node: [80.3, 0]
`

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	exp := []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"}
	names := cat.Names()
	if len(names) != len(exp) || cat.Len() != len(exp) {
		t.Fatalf("expected %d bodies, got %v", len(exp), names)
	}
	for i, name := range exp {
		if names[i] != name {
			t.Fatalf("body #%d is %s, expected %s", i, names[i], name)
		}
	}
	names[0] = "Vulcan"
	if cat.Names()[0] != "Mercury" {
		t.Fatal("Names must return a copy")
	}
	earth, err := cat.ElementsFor("Earth")
	if err != nil {
		t.Fatal(err)
	}
	if earth.L.Value != 100.46457166 || earth.W.Value != 102.93768193 || earth.Node != (ElementRate{}) {
		t.Fatalf("unexpected Earth elements %s", earth)
	}
}

func TestCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()
	for _, name := range []string{"earth", "EARTH", " Earth "} {
		oe, err := cat.ElementsFor(name)
		if err != nil || oe.Name != "Earth" {
			t.Fatalf("%q: %v", name, err)
		}
	}
	if _, err := cat.ElementsFor("Vulcan"); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected ErrUnknownBody, got %v", err)
	}
}

func TestCatalogWith(t *testing.T) {
	base := DefaultCatalog()
	extra, err := LoadCatalog(strings.NewReader(ceresYAML))
	if err != nil {
		t.Fatal(err)
	}
	ceres, _ := extra.ElementsFor("ceres")
	ext, err := base.With(ceres)
	if err != nil {
		t.Fatal(err)
	}
	if ext.Len() != base.Len()+1 || ext.Names()[ext.Len()-1] != "Ceres" {
		t.Fatalf("Ceres not appended: %v", ext.Names())
	}
	if _, err := base.ElementsFor("Ceres"); !errors.Is(err, ErrUnknownBody) {
		t.Fatal("With modified the receiver")
	}
	// The solver works on added bodies without any change.
	if _, err := PositionAt(J2000Time(), ceres); err != nil {
		t.Fatal(err)
	}
	if _, err := ext.With(ceres); !errors.Is(err, ErrMalformedElements) {
		t.Fatalf("expected a duplicate error, got %v", err)
	}
	if _, err := NewCatalog(ceres, ceres); !errors.Is(err, ErrMalformedElements) {
		t.Fatalf("expected a duplicate error, got %v", err)
	}
}

func TestLoadCatalogMalformed(t *testing.T) {
	for name, doc := range map[string]string{
		"missing rate":    strings.Replace(ceresYAML, "[0.0758, 0]", "[0.0758]", 1),
		"too many items":  strings.Replace(ceresYAML, "[0.0758, 0]", "[0.0758, 0, 1]", 1),
		"scalar element":  strings.Replace(ceresYAML, "[0.0758, 0]", "0.0758", 1),
		"missing element": strings.Replace(ceresYAML, "    node: [80.3, 0]\n", "", 1),
		"hyperbolic":      strings.Replace(ceresYAML, "[0.0758, 0]", "[1.2, 0]", 1),
		"no name":         strings.Replace(ceresYAML, "name: Ceres", "name: \"\"", 1),
	} {
		if _, err := LoadCatalog(strings.NewReader(doc)); !errors.Is(err, ErrMalformedElements) {
			t.Fatalf("%s: expected ErrMalformedElements, got %v", name, err)
		}
	}
	if _, err := LoadCatalog(strings.NewReader(ceresYAML + "extra: true\n")); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
	cat, err := LoadCatalog(strings.NewReader(""))
	if err != nil || cat.Len() != 0 {
		t.Fatalf("an empty file is an empty catalog: %v", err)
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, DefaultCatalog()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "planets.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ref := DefaultCatalog()
	for _, name := range ref.Names() {
		exp, _ := ref.ElementsFor(name)
		got, err := cat.ElementsFor(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != exp {
			t.Fatalf("%s: %s != %s", name, got, exp)
		}
	}
	if _, err := LoadCatalogFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
