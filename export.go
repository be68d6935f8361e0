package helio

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// CgCatalog definition.
type CgCatalog struct {
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Items   []*CgItems `json:"items"`
	Require []string   `json:"require,omitempty"`
}

func (c *CgCatalog) String() string {
	return c.Name + "(" + c.Version + ")"
}

// CgItems definition.
type CgItems struct {
	Class           string            `json:"class"`
	Name            string            `json:"name"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	Center          string            `json:"center"`
	TrajectoryFrame string            `json:"trajectoryFrame"`
	Trajectory      *CgTrajectory     `json:"trajectory,omitempty"`
	Label           *CgLabel          `json:"label,omitempty"`
	TrajectoryPlot  *CgTrajectoryPlot `json:"trajectoryPlot,omitempty"`
}

// CgTrajectory definition.
type CgTrajectory struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// Validate validates a CgTrajectory.
func (t *CgTrajectory) Validate() error {
	if t.Type != "InterpolatedStates" || !strings.HasSuffix(t.Source, "xyzv") {
		return errors.New("only InterpolatedStates are currently supported in Cosmographia trajectory types")
	}
	return nil
}

func (t *CgTrajectory) String() string {
	return t.Source + " as " + t.Type
}

// CgLabel definition.
type CgLabel struct {
	Color    []float64 `json:"color,omitempty"`
	FadeSize int       `json:"fadeSize,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
}

func (l *CgLabel) String() string {
	return fmt.Sprintf("color %v, fade %d, show %v", l.Color, l.FadeSize, l.ShowText)
}

// CgTrajectoryPlot definition.
type CgTrajectoryPlot struct {
	Color       []float64 `json:"color,omitempty"`
	LineWidth   int       `json:"lineWidth,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Fade        int       `json:"fade,omitempty"`
	SampleCount int       `json:"sampleCount,omitempty"`
}

// CgInterpolatedState is one line of an xyzv file: position in km and velocity in km/s.
type CgInterpolatedState struct {
	JD       float64
	Position []float64
	Velocity []float64
}

// FromText initializes from text.
// The `record` parameter must be an array of seven items.
func (i *CgInterpolatedState) FromText(record []string) error {
	if len(record) != 7 {
		return fmt.Errorf("expected 7 items, got %d", len(record))
	}
	vals := make([]float64, 7)
	for k, item := range record {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return err
		}
		vals[k] = v
	}
	i.JD = vals[0]
	i.Position = vals[1:4]
	i.Velocity = vals[4:7]
	return nil
}

// ToText converts to text for written output.
func (i *CgInterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position[0], i.Position[1], i.Position[2], i.Velocity[0], i.Velocity[1], i.Velocity[2])
}

// ParseInterpolatedStates reads the states of an xyzv file.
func ParseInterpolatedStates(s string) ([]*CgInterpolatedState, error) {
	var states = []*CgInterpolatedState{}
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = ' '
	r.Comment = '#'
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		state := CgInterpolatedState{}
		if err := state.FromText(record); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, nil
}

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	OutputDir string
	Filename  string
	Cosmo     bool // Cosmographia xyzv files and catalog
	AsCSV     bool
	Timestamp bool // stamp the file names with the creation time
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Cosmo && !c.AsCSV
}

// path returns the file path of the given kind (prefix) and extension.
func (c ExportConfig) path(prefix, body, ext string) string {
	name := fmt.Sprintf("%s-%s-%s", prefix, c.Filename, strings.ToLower(body))
	if c.Timestamp {
		name += "-" + time.Now().UTC().Format("2006-01-02T15.04.05")
	}
	return filepath.Join(c.OutputDir, name+"."+ext)
}

// CatalogPath returns the path of the Cosmographia catalog.
func (c ExportConfig) CatalogPath() string {
	return filepath.Join(c.OutputDir, fmt.Sprintf("catalog-%s.json", c.Filename))
}

// CSVPath returns the path of the CSV file of a body.
func (c ExportConfig) CSVPath(body string) string {
	return c.path("states", body, "csv")
}

// XYZVPath returns the path of the Cosmographia interpolated states of a body.
func (c ExportConfig) XYZVPath(body string) string {
	return c.path("prop", body, "xyzv")
}

var csvHeader = []string{"jd", "date", "x", "y", "z", "vx", "vy", "vz", "M", "E", "iterations"}

// bodyExport holds the open files of one body.
type bodyExport struct {
	csvFile  *os.File
	csv      *csv.Writer
	xyzv     *os.File
	first    time.Time
	last     time.Time
	nWritten int
}

// StreamFrames streams the frames of the channel to the export files until the
// channel is closed. All remaining frames are drained even after an error so
// that the producer never blocks.
func StreamFrames(conf ExportConfig, frames <-chan Frame, logger log.Logger) (err error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "subsys", "export")
	bodies := map[string]*bodyExport{}
	var order []string

	defer func() {
		for range frames {
		}
		if cErr := closeExports(conf, bodies, order); err == nil {
			err = cErr
		}
		if err == nil {
			level.Info(logger).Log("status", "done", "bodies", len(order), "dir", conf.OutputDir)
		}
	}()

	if conf.IsUseless() {
		return nil
	}
	if err = os.MkdirAll(conf.OutputDir, 0755); err != nil {
		return err
	}
	for f := range frames {
		for _, name := range f.Bodies() {
			sol := f.Solutions[name]
			be, ok := bodies[name]
			if !ok {
				if be, err = openExport(conf, name, f.Epoch); err != nil {
					return err
				}
				bodies[name] = be
				order = append(order, name)
				level.Debug(logger).Log("body", name, "csv", conf.AsCSV, "cosmo", conf.Cosmo)
			}
			if err = be.write(sol); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func openExport(conf ExportConfig, body string, start time.Time) (*bodyExport, error) {
	be := &bodyExport{first: start}
	created := time.Now().UTC().Format(time.RFC3339)
	if conf.AsCSV {
		f, err := os.Create(conf.CSVPath(body))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(f, "# Creation date (UTC): %s\n# Heliocentric ecliptic J2000 states of %s.\n# Positions in AU, velocities in AU/day, anomalies in degrees.\n", created, body)
		be.csvFile = f
		be.csv = csv.NewWriter(f)
		if err := be.csv.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	if conf.Cosmo {
		f, err := os.Create(conf.XYZVPath(body))
		if err != nil {
			if be.csvFile != nil {
				be.csvFile.Close()
			}
			return nil, err
		}
		fmt.Fprintf(f, `# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a UTC Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, created, start.UTC())
		be.xyzv = f
	}
	return be, nil
}

func (be *bodyExport) write(sol Solution) error {
	be.last = sol.Epoch
	be.nWritten++
	if be.csv != nil {
		p, v := sol.Position, sol.Velocity
		rec := []string{
			strconv.FormatFloat(sol.JD, 'f', 6, 64),
			sol.Epoch.UTC().Format("2006-01-02 15:04:05"),
			fmtFloat(p.X), fmtFloat(p.Y), fmtFloat(p.Z),
			fmtFloat(v.X), fmtFloat(v.Y), fmtFloat(v.Z),
			fmtFloat(sol.M), fmtFloat(sol.E),
			strconv.Itoa(sol.Iterations),
		}
		if err := be.csv.Write(rec); err != nil {
			return err
		}
	}
	if be.xyzv != nil {
		st := CgInterpolatedState{JD: sol.JD, Position: sol.Position.Kilometers(), Velocity: sol.Velocity.KilometersPerSecond()}
		if _, err := be.xyzv.WriteString("\n" + st.ToText()); err != nil {
			return err
		}
	}
	return nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// closeExports flushes every file and writes the Cosmographia catalog.
func closeExports(conf ExportConfig, bodies map[string]*bodyExport, order []string) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	color := []float64{0.6, 1, 1}
	var items []*CgItems
	for _, name := range order {
		be := bodies[name]
		if be.csv != nil {
			be.csv.Flush()
			keep(be.csv.Error())
			keep(be.csvFile.Close())
		}
		if be.xyzv == nil {
			continue
		}
		_, err := be.xyzv.WriteString(fmt.Sprintf("\n# Simulation time end (UTC): %s\n", be.last.UTC()))
		keep(err)
		keep(be.xyzv.Close())

		longerEnd := be.last.Add(24 * time.Hour)
		traj := CgTrajectory{Type: "InterpolatedStates", Source: filepath.Base(conf.XYZVPath(name))}
		label := CgLabel{Color: color, FadeSize: 1000000, ShowText: true}
		plot := CgTrajectoryPlot{Color: color, LineWidth: 1, Duration: fmt.Sprintf("%d d", int(longerEnd.Sub(be.first).Hours()/24+1)), Lead: "0 d", Fade: 0, SampleCount: 10}
		items = append(items, &CgItems{Class: "planet", Name: name, StartTime: be.first.UTC().String(), EndTime: longerEnd.UTC().String(),
			Center: "Sun", TrajectoryFrame: "EclipticJ2000", Trajectory: &traj, Label: &label, TrajectoryPlot: &plot})
		// Shift the color for the next body.
		next := make([]float64, 3)
		for i := range color {
			next[i] = color[i] - 0.2
			if next[i] < 0 {
				next[i]++
			}
		}
		color = next
	}
	if !conf.Cosmo || len(items) == 0 {
		return firstErr
	}
	c := CgCatalog{Version: "1.0", Name: conf.Filename, Items: items}
	marsh, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		keep(err)
		return firstErr
	}
	keep(os.WriteFile(conf.CatalogPath(), marsh, 0644))
	return firstErr
}
