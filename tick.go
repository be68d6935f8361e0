package helio

import (
	"sort"
	"time"
)

// Frame holds the solutions of all tracked bodies at one epoch.
type Frame struct {
	Epoch     time.Time
	JD        float64
	Solutions map[string]Solution
}

// Positions returns the position of each body.
func (f Frame) Positions() map[string]Position {
	pos := make(map[string]Position, len(f.Solutions))
	for name, sol := range f.Solutions {
		pos[name] = sol.Position
	}
	return pos
}

// Bodies returns the sorted body names of this frame.
func (f Frame) Bodies() []string {
	names := make([]string, 0, len(f.Solutions))
	for name := range f.Solutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tick solves every requested body of the catalog at the epoch. If no body is
// requested, all the catalog bodies are solved. The first error aborts the tick.
func (s Solver) Tick(c *Catalog, epoch time.Time, bodies ...string) (Frame, error) {
	if len(bodies) == 0 {
		bodies = c.Names()
	}
	f := Frame{Epoch: epoch, JD: JulianDate(epoch), Solutions: make(map[string]Solution, len(bodies))}
	for _, name := range bodies {
		oe, err := c.ElementsFor(name)
		if err != nil {
			return Frame{}, err
		}
		sol, err := s.Solve(epoch, oe)
		if err != nil {
			return Frame{}, err
		}
		f.Solutions[oe.Name] = sol
	}
	return f, nil
}
