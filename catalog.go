// Package helio computes heliocentric ecliptic positions of solar system bodies
// from Keplerian elements and their secular rates.
package helio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is a read-only registry of orbital elements keyed by body name.
// Lookups are case insensitive.
type Catalog struct {
	bodies map[string]OrbitalElements
	names  []string
}

// NewCatalog returns a catalog of the provided elements, in order.
func NewCatalog(elems ...OrbitalElements) (*Catalog, error) {
	c := &Catalog{bodies: make(map[string]OrbitalElements, len(elems))}
	if err := c.add(elems); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) add(elems []OrbitalElements) error {
	for _, oe := range elems {
		if err := oe.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(oe.Name)
		if _, dup := c.bodies[key]; dup {
			return fmt.Errorf("%w: duplicate body '%s'", ErrMalformedElements, oe.Name)
		}
		c.bodies[key] = oe
		c.names = append(c.names, oe.Name)
	}
	return nil
}

// With returns a new catalog with the provided bodies appended. The receiver is unchanged.
func (c *Catalog) With(elems ...OrbitalElements) (*Catalog, error) {
	nc := &Catalog{bodies: make(map[string]OrbitalElements, len(c.bodies)+len(elems))}
	for k, v := range c.bodies {
		nc.bodies[k] = v
	}
	nc.names = append(nc.names, c.names...)
	if err := nc.add(elems); err != nil {
		return nil, err
	}
	return nc, nil
}

// ElementsFor returns the elements of the requested body.
func (c *Catalog) ElementsFor(name string) (OrbitalElements, error) {
	oe, ok := c.bodies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return OrbitalElements{}, fmt.Errorf("%w '%s'", ErrUnknownBody, name)
	}
	return oe, nil
}

// Names returns the body names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Len returns the number of bodies.
func (c *Catalog) Len() int {
	return len(c.names)
}

// catalogFile is the on-disk format of a catalog.
type catalogFile struct {
	Bodies []OrbitalElements `yaml:"bodies"`
}

// LoadCatalog reads a YAML catalog such as:
//
//	bodies:
//	  - name: Ceres
//	    a:    [2.7675, 0]
//	    e:    [0.0758, 0]
//	    ...
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, err
	}
	return NewCatalog(f.Bodies...)
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// WriteCatalog writes the catalog in the format read by LoadCatalog.
func WriteCatalog(w io.Writer, c *Catalog) error {
	f := catalogFile{Bodies: make([]OrbitalElements, 0, c.Len())}
	for _, name := range c.names {
		f.Bodies = append(f.Bodies, c.bodies[strings.ToLower(name)])
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// DefaultCatalog returns a new catalog of the major planets and Pluto.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(jplTable1()...)
	if err != nil {
		panic(fmt.Errorf("built-in catalog: %s", err))
	}
	return c
}

// jplTable1 is Table 1 of "Keplerian Elements for Approximate Positions of the
// Major Planets" (E M Standish, JPL), valid from 1800 AD to 2050 AD.
// The Earth row is the Earth-Moon barycenter.
func jplTable1() []OrbitalElements {
	return []OrbitalElements{
		{
			Name: "Mercury",
			A:    ElementRate{0.38709927, 0.00000037},
			E:    ElementRate{0.20563593, 0.00001906},
			I:    ElementRate{7.00497902, -0.00594749},
			L:    ElementRate{252.25032350, 149472.67411175},
			W:    ElementRate{77.45779628, 0.16047689},
			Node: ElementRate{48.33076593, -0.12534081},
		},
		{
			Name: "Venus",
			A:    ElementRate{0.72333566, 0.00000390},
			E:    ElementRate{0.00677672, -0.00004107},
			I:    ElementRate{3.39467605, -0.00078890},
			L:    ElementRate{181.97909950, 58517.81538729},
			W:    ElementRate{131.60246718, 0.00268329},
			Node: ElementRate{76.67984255, -0.27769418},
		},
		{
			Name: "Earth",
			A:    ElementRate{1.00000261, 0.00000562},
			E:    ElementRate{0.01671123, -0.00004392},
			I:    ElementRate{-0.00001531, -0.01294668},
			L:    ElementRate{100.46457166, 35999.37244981},
			W:    ElementRate{102.93768193, 0.32327364},
			Node: ElementRate{0.0, 0.0},
		},
		{
			Name: "Mars",
			A:    ElementRate{1.52371034, 0.00001847},
			E:    ElementRate{0.09339410, 0.00007882},
			I:    ElementRate{1.84969142, -0.00813131},
			L:    ElementRate{-4.55343205, 19140.30268499},
			W:    ElementRate{-23.94362959, 0.44441088},
			Node: ElementRate{49.55953891, -0.29257343},
		},
		{
			Name: "Jupiter",
			A:    ElementRate{5.20288700, -0.00011607},
			E:    ElementRate{0.04838624, -0.00013253},
			I:    ElementRate{1.30439695, -0.00183714},
			L:    ElementRate{34.39644051, 3034.74612775},
			W:    ElementRate{14.72847983, 0.21252668},
			Node: ElementRate{100.47390909, 0.20469106},
		},
		{
			Name: "Saturn",
			A:    ElementRate{9.53667594, -0.00125060},
			E:    ElementRate{0.05386179, -0.00050991},
			I:    ElementRate{2.48599187, 0.00193609},
			L:    ElementRate{49.95424423, 1222.49362201},
			W:    ElementRate{92.59887831, -0.41897216},
			Node: ElementRate{113.66242448, -0.28867794},
		},
		{
			Name: "Uranus",
			A:    ElementRate{19.18916464, -0.00196176},
			E:    ElementRate{0.04725744, -0.00004397},
			I:    ElementRate{0.77263783, -0.00242939},
			L:    ElementRate{313.23810451, 428.48202785},
			W:    ElementRate{170.95427630, 0.40805281},
			Node: ElementRate{74.01692503, 0.04240589},
		},
		{
			Name: "Neptune",
			A:    ElementRate{30.06992276, 0.00026291},
			E:    ElementRate{0.00859048, 0.00005105},
			I:    ElementRate{1.77004347, 0.00035372},
			L:    ElementRate{-55.12002969, 218.45945325},
			W:    ElementRate{44.96476227, -0.32241464},
			Node: ElementRate{131.78422574, -0.00508664},
		},
		{
			Name: "Pluto",
			A:    ElementRate{39.48211675, -0.00031596},
			E:    ElementRate{0.24882730, 0.00005170},
			I:    ElementRate{17.14001206, 0.00004818},
			L:    ElementRate{238.92903833, 145.20780515},
			W:    ElementRate{224.06891629, -0.04062942},
			Node: ElementRate{110.30393684, -0.01183482},
		},
	}
}
