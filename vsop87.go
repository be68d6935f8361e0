package helio

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/pluto"
	"github.com/soniakeys/unit"
)

// VSOP87 computes reference heliocentric positions from the VSOP87B theory
// (Meeus' Pluto theory for Pluto). The planet files are loaded lazily from
// Directory and cached.
type VSOP87 struct {
	Directory string

	mu      sync.Mutex
	planets map[int]*planetposition.V87Planet
}

// NewVSOP87 returns a reference theory reading the VSOP87B files of dir.
func NewVSOP87(dir string) *VSOP87 {
	return &VSOP87{Directory: dir, planets: make(map[int]*planetposition.V87Planet)}
}

func vsopIndex(name string) (int, bool) {
	switch strings.ToLower(name) {
	case "mercury":
		return planetposition.Mercury, true
	case "venus":
		return planetposition.Venus, true
	case "earth":
		return planetposition.Earth, true
	case "mars":
		return planetposition.Mars, true
	case "jupiter":
		return planetposition.Jupiter, true
	case "saturn":
		return planetposition.Saturn, true
	case "uranus":
		return planetposition.Uranus, true
	case "neptune":
		return planetposition.Neptune, true
	}
	return -1, false
}

func (v *VSOP87) planet(ibody int) (*planetposition.V87Planet, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.planets == nil {
		v.planets = make(map[int]*planetposition.V87Planet)
	}
	if p, ok := v.planets[ibody]; ok {
		return p, nil
	}
	p, err := planetposition.LoadPlanetPath(ibody, v.Directory)
	if err != nil {
		return nil, fmt.Errorf("could not load planet number %d: %w", ibody+1, err)
	}
	v.planets[ibody] = p
	return p, nil
}

// Position returns the heliocentric ecliptic J2000 position of the body in AU.
func (v *VSOP87) Position(name string, dt time.Time) (Position, error) {
	jde := julian.TimeToJD(dt)
	var (
		l, b unit.Angle
		r    float64
	)
	if strings.EqualFold(name, "pluto") {
		// Special case in Sonia Keys' Meeus
		l, b, r = pluto.Heliocentric(jde)
	} else {
		ibody, ok := vsopIndex(name)
		if !ok {
			return Position{}, fmt.Errorf("%w '%s' in VSOP87", ErrUnknownBody, name)
		}
		p, err := v.planet(ibody)
		if err != nil {
			return Position{}, err
		}
		l, b, r = p.Position2000(jde)
	}
	// Get the Cartesian coordinates from L,B,R.
	sB, cB := math.Sincos(b.Rad())
	sL, cL := math.Sincos(l.Rad())
	return Position{r * cB * cL, r * cB * sL, r * sB}, nil
}

// Comparison is the difference between the Keplerian and the reference positions of a body.
type Comparison struct {
	Body      string
	Epoch     time.Time
	Kepler    Position
	Reference Position
}

// Separation returns the distance between both positions in AU.
func (c Comparison) Separation() float64 {
	return c.Kepler.Sub(c.Reference).Norm()
}

// AngularSeparation returns the heliocentric angle between both positions in degrees.
func (c Comparison) AngularSeparation() float64 {
	k, r := c.Kepler.Slice(), c.Reference.Slice()
	cos := (k[0]*r[0] + k[1]*r[1] + k[2]*r[2]) / (norm(k) * norm(r))
	return math.Acos(math.Max(-1, math.Min(1, cos))) * rad2deg
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s @ %s: Δ=%.6f AU (%.4f°)", c.Body, c.Epoch.UTC().Format(time.RFC3339), c.Separation(), c.AngularSeparation())
}

// Compare solves the body with the Keplerian elements and compares it to the reference theory.
// The W column of oe is read as the longitude of perihelion, as in JPL's tables, and
// converted with WithArgumentOfPerihelion before solving.
func (v *VSOP87) Compare(s Solver, epoch time.Time, oe OrbitalElements) (Comparison, error) {
	kep, err := s.Position(epoch, oe.WithArgumentOfPerihelion())
	if err != nil {
		return Comparison{}, err
	}
	ref, err := v.Position(oe.Name, epoch)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Body: oe.Name, Epoch: epoch, Kepler: kep, Reference: ref}, nil
}
