package helio

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

func exportFrames(t *testing.T, conf ExportConfig, n int, bodies ...string) ([]Frame, error) {
	cat := DefaultCatalog()
	frames := make(chan Frame)
	errC := make(chan error, 1)
	go func() { errC <- StreamFrames(conf, frames, nil) }()
	var sent []Frame
	for i := 0; i < n; i++ {
		f, err := Solver{}.Tick(cat, J2000Time().Add(time.Duration(i)*DefaultStep), bodies...)
		if err != nil {
			t.Fatal(err)
		}
		frames <- f
		sent = append(sent, f)
	}
	close(frames)
	return sent, <-errC
}

func TestStreamFrames(t *testing.T) {
	conf := ExportConfig{OutputDir: filepath.Join(t.TempDir(), "out"), Filename: "test", AsCSV: true, Cosmo: true}
	sent, err := exportFrames(t, conf, 4, "Earth", "Mars")
	if err != nil {
		t.Fatal(err)
	}

	// CSV
	f, err := os.Open(conf.CSVPath("Earth"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 || len(records[0]) != len(csvHeader) || records[0][0] != "jd" {
		t.Fatalf("unexpected CSV: %v", records)
	}
	for i, rec := range records[1:] {
		sol := sent[i].Solutions["Earth"]
		jd, _ := strconv.ParseFloat(rec[0], 64)
		x, _ := strconv.ParseFloat(rec[2], 64)
		it, _ := strconv.Atoi(rec[10])
		if !scalar.EqualWithinAbs(jd, sol.JD, 1e-6) || !scalar.EqualWithinAbs(x, sol.Position.X, 1e-10) || it != sol.Iterations {
			t.Fatalf("row %d: %v does not match %s", i, rec, sol)
		}
	}

	// Cosmographia interpolated states.
	data, err := os.ReadFile(conf.XYZVPath("Mars"))
	if err != nil {
		t.Fatal(err)
	}
	states, err := ParseInterpolatedStates(string(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 4 {
		t.Fatalf("expected 4 states, got %d", len(states))
	}
	for i, st := range states {
		sol := sent[i].Solutions["Mars"]
		if !vectorsEqual(st.Position, sol.Position.Kilometers(), 1e-3) {
			t.Fatalf("state %d: %v != %v", i, st.Position, sol.Position.Kilometers())
		}
		if !vectorsEqual(st.Velocity, sol.Velocity.KilometersPerSecond(), 1e-5) {
			t.Fatalf("state %d: %v != %v", i, st.Velocity, sol.Velocity.KilometersPerSecond())
		}
	}

	// Cosmographia catalog.
	data, err = os.ReadFile(conf.CatalogPath())
	if err != nil {
		t.Fatal(err)
	}
	var cg CgCatalog
	if err := json.Unmarshal(data, &cg); err != nil {
		t.Fatal(err)
	}
	if len(cg.Items) != 2 || cg.Items[0].Name != "Earth" || cg.Items[1].Name != "Mars" {
		t.Fatalf("unexpected catalog %s", data)
	}
	for _, item := range cg.Items {
		if err := item.Trajectory.Validate(); err != nil {
			t.Fatal(err)
		}
		if item.Center != "Sun" || item.TrajectoryFrame != "EclipticJ2000" {
			t.Fatalf("unexpected item %+v", item)
		}
		if _, err := os.Stat(filepath.Join(conf.OutputDir, item.Trajectory.Source)); err != nil {
			t.Fatalf("trajectory source: %s", err)
		}
	}
}

func TestStreamFramesUseless(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	if _, err := exportFrames(t, ExportConfig{OutputDir: dir}, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("nothing should have been created")
	}
}

func TestStreamFramesError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	// The frames are drained: the producer never blocks.
	if _, err := exportFrames(t, ExportConfig{OutputDir: file, AsCSV: true}, 3); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStreamFramesCosmoError(t *testing.T) {
	conf := ExportConfig{OutputDir: filepath.Join(t.TempDir(), "out"), Filename: "test", AsCSV: true, Cosmo: true}
	// A directory in place of the xyzv file fails its creation after the CSV file was opened.
	if err := os.MkdirAll(conf.XYZVPath("Earth"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := exportFrames(t, conf, 2, "Earth"); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(conf.CSVPath("Earth")); err != nil {
		t.Fatalf("the CSV file should have been created: %s", err)
	}
}

func TestInterpolatedState(t *testing.T) {
	st := CgInterpolatedState{}
	if err := st.FromText([]string{"2451545.0", "1", "2", "3", "4", "5", "6"}); err != nil {
		t.Fatal(err)
	}
	if st.JD != J2000 || st.Position[2] != 3 || st.Velocity[0] != 4 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.ToText() != "2451545.000000 1.000000 2.000000 3.000000 4.000000 5.000000 6.000000" {
		t.Fatalf("unexpected text %s", st.ToText())
	}
	if err := st.FromText([]string{"1", "2"}); err == nil {
		t.Fatal("expected an error for a short record")
	}
	if err := st.FromText([]string{"a", "2", "3", "4", "5", "6", "7"}); err == nil {
		t.Fatal("expected an error for a non number")
	}
	if err := (&CgTrajectory{Type: "Builtin", Source: "x.xyzv"}).Validate(); err == nil {
		t.Fatal("only interpolated states are supported")
	}
}
