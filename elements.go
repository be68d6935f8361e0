package helio

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ElementRate is an orbital element at J2000.0 and its secular rate per Julian century.
type ElementRate struct {
	Value float64
	Rate  float64
}

// At returns the element evaluated T Julian centuries after J2000.0.
func (e ElementRate) At(T float64) float64 {
	return e.Value + e.Rate*T
}

// UnmarshalYAML reads an element written as a `[value, rate]` pair.
// Both items are required: an element without its rate is malformed.
func (e *ElementRate) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("%w: line %d: %s", ErrMalformedElements, node.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: line %d: expected [value, rate], got %d item(s)", ErrMalformedElements, node.Line, len(pair))
	}
	e.Value = pair[0]
	e.Rate = pair[1]
	return nil
}

// MarshalYAML writes the element as a `[value, rate]` pair.
func (e ElementRate) MarshalYAML() (interface{}, error) {
	return []float64{e.Value, e.Rate}, nil
}

// OrbitalElements are the osculating elements of a body at J2000.0 with their
// secular rates. Distances are in AU, angles in degrees, rates per Julian century.
type OrbitalElements struct {
	Name string      `yaml:"name"`
	A    ElementRate `yaml:"a"`    // semi-major axis
	E    ElementRate `yaml:"e"`    // eccentricity
	I    ElementRate `yaml:"i"`    // inclination
	L    ElementRate `yaml:"l"`    // mean longitude
	W    ElementRate `yaml:"w"`    // used as the argument of perihelion; JPL tabulates the longitude of perihelion here
	Node ElementRate `yaml:"node"` // longitude of the ascending node
}

// UnmarshalYAML requires all six elements to be present.
func (o *OrbitalElements) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name string       `yaml:"name"`
		A    *ElementRate `yaml:"a"`
		E    *ElementRate `yaml:"e"`
		I    *ElementRate `yaml:"i"`
		L    *ElementRate `yaml:"l"`
		W    *ElementRate `yaml:"w"`
		Node *ElementRate `yaml:"node"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		val *ElementRate
	}{{"a", raw.A}, {"e", raw.E}, {"i", raw.I}, {"l", raw.L}, {"w", raw.W}, {"node", raw.Node}} {
		if f.val == nil {
			return fmt.Errorf("%w: line %d: %s is missing `%s`", ErrMalformedElements, node.Line, raw.Name, f.key)
		}
	}
	*o = OrbitalElements{Name: raw.Name, A: *raw.A, E: *raw.E, I: *raw.I, L: *raw.L, W: *raw.W, Node: *raw.Node}
	return nil
}

// At propagates the elements to T Julian centuries after J2000.0.
func (o OrbitalElements) At(T float64) Elements {
	return Elements{
		Name: o.Name,
		A:    o.A.At(T),
		E:    o.E.At(T),
		I:    o.I.At(T),
		L:    o.L.At(T),
		W:    o.W.At(T),
		Node: o.Node.At(T),
	}
}

// MeanMotion returns the rate of change of the mean anomaly in degrees per Julian century.
func (o OrbitalElements) MeanMotion() float64 {
	return o.L.Rate - (o.W.Rate + o.Node.Rate)
}

// WithoutDrift returns a copy of these elements where only the mean longitude moves.
func (o OrbitalElements) WithoutDrift() OrbitalElements {
	return OrbitalElements{
		Name: o.Name,
		A:    ElementRate{Value: o.A.Value},
		E:    ElementRate{Value: o.E.Value},
		I:    ElementRate{Value: o.I.Value},
		L:    o.L,
		W:    ElementRate{Value: o.W.Value},
		Node: ElementRate{Value: o.Node.Value},
	}
}

// WithArgumentOfPerihelion returns a copy where W holds ω = ϖ − Ω, reading W as
// the longitude of perihelion ϖ as JPL tabulates it. Solving the copy gives the
// physical orbit rather than the one obtained when W is taken as ω directly.
func (o OrbitalElements) WithArgumentOfPerihelion() OrbitalElements {
	o.W = ElementRate{Value: o.W.Value - o.Node.Value, Rate: o.W.Rate - o.Node.Rate}
	return o
}

// Validate returns an error if these elements cannot describe an elliptical orbit.
func (o OrbitalElements) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedElements)
	}
	for _, v := range []float64{o.A.Value, o.A.Rate, o.E.Value, o.E.Rate, o.I.Value, o.I.Rate,
		o.L.Value, o.L.Rate, o.W.Value, o.W.Rate, o.Node.Value, o.Node.Rate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has a non finite element", ErrMalformedElements, o.Name)
		}
	}
	if o.A.Value <= 0 {
		return fmt.Errorf("%w: %s semi-major axis %f <= 0", ErrMalformedElements, o.Name, o.A.Value)
	}
	if o.E.Value < 0 || o.E.Value >= 1 {
		return fmt.Errorf("%w: %s eccentricity %f not in [0, 1)", ErrMalformedElements, o.Name, o.E.Value)
	}
	return nil
}

// String implements the Stringer interface.
func (o OrbitalElements) String() string {
	return fmt.Sprintf("%s @J2000 %s", o.Name, o.At(0))
}

// Elements are osculating elements evaluated at one epoch.
type Elements struct {
	Name                string
	A, E, I, L, W, Node float64
}

// MeanAnomaly returns M = L - (w + node) in degrees. It is not normalized.
func (e Elements) MeanAnomaly() float64 {
	return e.L - (e.W + e.Node)
}

// Perihelion returns the perihelion distance in AU.
func (e Elements) Perihelion() float64 {
	return e.A * (1 - e.E)
}

// Aphelion returns the aphelion distance in AU.
func (e Elements) Aphelion() float64 {
	return e.A * (1 + e.E)
}

// SemiParameter returns the semi-latus rectum in AU.
func (e Elements) SemiParameter() float64 {
	return e.A * (1 - e.E*e.E)
}

// String implements the Stringer interface.
func (e Elements) String() string {
	return fmt.Sprintf("a=%.8f e=%.8f i=%.6f L=%.6f ω=%.6f Ω=%.6f", e.A, e.E, e.I, e.L, e.W, e.Node)
}
