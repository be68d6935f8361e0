package helio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "HELIO_CONFIG"

// Config is the helio configuration, read from conf.toml and HELIO_* environment variables.
type Config struct {
	Solver struct {
		MaxIterations        int
		NormalizeMeanAnomaly bool
		Strict               bool
	}
	CatalogFile string // additional bodies (YAML)
	Simulation  struct {
		Start    time.Time
		Step     time.Duration
		Interval time.Duration
		Bodies   []string
		Ticks    int
	}
	DisplayScale float64 // display units per AU
	Export       ExportConfig
	Server       struct {
		Addr  string
		Rate  float64 // requests per second per client
		Burst int
	}
	VSOP87 struct {
		Enabled   bool
		Directory string
	}
	LogLevel string
}

// SolverConfig returns the configured Solver.
func (c Config) SolverConfig() Solver {
	return Solver{
		MaxIterations:        c.Solver.MaxIterations,
		NormalizeMeanAnomaly: c.Solver.NormalizeMeanAnomaly,
		Strict:               c.Solver.Strict,
	}
}

// Catalog returns the default catalog extended with the bodies of CatalogFile, if any.
func (c Config) Catalog() (*Catalog, error) {
	cat := DefaultCatalog()
	if c.CatalogFile == "" {
		return cat, nil
	}
	extra, err := LoadCatalogFile(c.CatalogFile)
	if err != nil {
		return nil, err
	}
	elems := make([]OrbitalElements, 0, extra.Len())
	for _, name := range extra.Names() {
		oe, _ := extra.ElementsFor(name)
		elems = append(elems, oe)
	}
	return cat.With(elems...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("solver.max_iterations", DefaultMaxIterations)
	v.SetDefault("solver.normalize_mean_anomaly", false)
	v.SetDefault("solver.strict", false)
	v.SetDefault("catalog.file", "")
	v.SetDefault("simulation.start", "")
	v.SetDefault("simulation.step", DefaultStep)
	v.SetDefault("simulation.interval", DefaultInterval)
	v.SetDefault("simulation.bodies", []string{})
	v.SetDefault("simulation.ticks", 0)
	v.SetDefault("display.scale", 1.0)
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.filename", "helio")
	v.SetDefault("export.csv", true)
	v.SetDefault("export.cosmo", false)
	v.SetDefault("export.timestamp", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("vsop87.enabled", false)
	v.SetDefault("vsop87.directory", "")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads the configuration. If path is empty, conf.toml is searched
// in the directory given by HELIO_CONFIG, then in the working directory. A
// missing file is not an error: the defaults are used.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("helio")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("conf")
		v.SetConfigType("toml")
		if dir := os.Getenv(ConfigEnv); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading configuration: %w", err)
		}
	}
	return configFrom(v)
}

// ReadConfig reads a TOML configuration from r, on top of the defaults.
func ReadConfig(r io.Reader) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	if err := v.ReadConfig(r); err != nil {
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	return configFrom(v)
}

func configFrom(v *viper.Viper) (Config, error) {
	var c Config
	c.Solver.MaxIterations = v.GetInt("solver.max_iterations")
	c.Solver.NormalizeMeanAnomaly = v.GetBool("solver.normalize_mean_anomaly")
	c.Solver.Strict = v.GetBool("solver.strict")
	c.CatalogFile = v.GetString("catalog.file")

	c.Simulation.Start = time.Now().UTC()
	if start := v.GetString("simulation.start"); start != "" {
		dt, err := ParseEpoch(start)
		if err != nil {
			return Config{}, fmt.Errorf("simulation.start: %w", err)
		}
		c.Simulation.Start = dt
	}
	c.Simulation.Step = v.GetDuration("simulation.step")
	if c.Simulation.Step <= 0 {
		return Config{}, fmt.Errorf("simulation.step must be positive, got %s", c.Simulation.Step)
	}
	c.Simulation.Interval = v.GetDuration("simulation.interval")
	if c.Simulation.Interval < 0 {
		return Config{}, fmt.Errorf("simulation.interval must not be negative, got %s", c.Simulation.Interval)
	}
	c.Simulation.Bodies = v.GetStringSlice("simulation.bodies")
	c.Simulation.Ticks = v.GetInt("simulation.ticks")

	c.DisplayScale = v.GetFloat64("display.scale")
	if c.DisplayScale <= 0 {
		return Config{}, fmt.Errorf("display.scale must be positive, got %f", c.DisplayScale)
	}

	c.Export = ExportConfig{
		OutputDir: v.GetString("export.output_dir"),
		Filename:  v.GetString("export.filename"),
		AsCSV:     v.GetBool("export.csv"),
		Cosmo:     v.GetBool("export.cosmo"),
		Timestamp: v.GetBool("export.timestamp"),
	}

	c.Server.Addr = v.GetString("server.addr")
	c.Server.Rate = v.GetFloat64("server.rate")
	c.Server.Burst = v.GetInt("server.burst")

	c.VSOP87.Enabled = v.GetBool("vsop87.enabled")
	c.VSOP87.Directory = v.GetString("vsop87.directory")
	if c.VSOP87.Enabled && c.VSOP87.Directory == "" {
		return Config{}, errors.New("vsop87 is enabled but vsop87.directory is empty")
	}
	c.LogLevel = v.GetString("log.level")
	return c, nil
}

// NewLogger returns a logfmt logger on w filtered at the configured level
// (debug, info, warn or error).
func NewLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	var opt level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		opt = level.AllowDebug()
	case "warn", "warning":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return level.NewFilter(logger, opt)
}

// ParseEpoch parses RFC3339, "2006-01-02 15:04:05", "2006-01-02" or a Julian date.
func ParseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if dt, err := time.Parse(layout, s); err == nil {
			return dt.UTC(), nil
		}
	}
	if jd, err := strconv.ParseFloat(s, 64); err == nil && jd > 0 {
		return JDToTime(jd), nil
	}
	return time.Time{}, fmt.Errorf("could not parse epoch `%s`", s)
}
