package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ChristopherRabotin/helio"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

const dateFormat = "2006-01-02 15:04:05"

var (
	cfgFile  string
	logLevel string

	conf   helio.Config
	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "helio",
	Short: "Heliocentric positions of the planets from Keplerian elements",
	Long: `helio computes heliocentric ecliptic J2000 positions of the planets and
Pluto from their Keplerian elements and secular rates. It can print positions,
run a simulated clock, export the trajectories and serve them over HTTP.

The configuration is read from conf.toml in $HELIO_CONFIG or the working
directory, and from HELIO_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if conf, err = helio.LoadConfig(cfgFile); err != nil {
			return err
		}
		if logLevel != "" {
			conf.LogLevel = logLevel
		}
		logger = helio.NewLogger(os.Stderr, conf.LogLevel)
		return nil
	},
}

var bodiesCmd = &cobra.Command{
	Use:   "bodies",
	Short: "List the bodies of the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := conf.Catalog()
		if err != nil {
			return err
		}
		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			return helio.WriteCatalog(cmd.OutOrStdout(), cat)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tA (AU)\tE\tI (deg)\tL (deg)\tW (deg)\tNODE (deg)")
		for _, name := range cat.Names() {
			oe, _ := cat.ElementsFor(name)
			el := oe.At(0)
			fmt.Fprintf(w, "%s\t%.8f\t%.8f\t%.6f\t%.6f\t%.6f\t%.6f\n", el.Name, el.A, el.E, el.I, el.L, el.W, el.Node)
		}
		return w.Flush()
	},
}

var positionCmd = &cobra.Command{
	Use:   "position [body...]",
	Short: "Print the heliocentric position of bodies at a date",
	Long: `Print the heliocentric ecliptic J2000 position of the requested bodies (all
of them if none is given) at the provided date, Julian date or now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := conf.Catalog()
		if err != nil {
			return err
		}
		epoch, err := epochFlag(cmd)
		if err != nil {
			return err
		}
		scale, _ := cmd.Flags().GetFloat64("scale")
		if scale <= 0 {
			scale = conf.DisplayScale
		}
		equatorial, _ := cmd.Flags().GetBool("equatorial")

		f, err := conf.SolverConfig().Tick(cat, epoch, args...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s (JD %.6f, T=%.10f)\n", epoch.Format(dateFormat), f.JD, helio.CenturiesSinceJ2000(epoch))
		var ref *helio.VSOP87
		header := "BODY\tX\tY\tZ\t|R| (AU)\tLON (deg)\tLAT (deg)\tM (deg)\tE (deg)\tIT."
		if conf.VSOP87.Enabled {
			ref = helio.NewVSOP87(conf.VSOP87.Directory)
			header += "\tVSOP87 Δ (deg)"
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, header)
		for _, name := range f.Bodies() {
			sol := f.Solutions[name]
			p := sol.Position
			if equatorial {
				p = helio.EclipticToEquatorial(p)
			}
			p = p.Scale(scale)
			fmt.Fprintf(w, "%s\t%.8f\t%.8f\t%.8f\t%.8f\t%.4f\t%.4f\t%.6f\t%.6f\t%d",
				name, p.X, p.Y, p.Z, sol.Distance(), sol.Position.Longitude(), sol.Position.Latitude(), sol.M, sol.E, sol.Iterations)
			if ref != nil {
				oe, _ := cat.ElementsFor(name)
				c, err := ref.Compare(conf.SolverConfig(), epoch, oe)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\t%.4f", c.AngularSeparation())
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	},
}

// epochFlag reads the --date or --jd flags, defaulting to now.
func epochFlag(cmd *cobra.Command) (time.Time, error) {
	date, _ := cmd.Flags().GetString("date")
	jd, _ := cmd.Flags().GetFloat64("jd")
	switch {
	case date != "" && jd != 0:
		return time.Time{}, fmt.Errorf("only one of --date and --jd may be provided")
	case date != "":
		return helio.ParseEpoch(date)
	case jd != 0:
		if jd < 0 {
			return time.Time{}, fmt.Errorf("invalid julian date %f", jd)
		}
		return helio.JDToTime(jd), nil
	}
	return time.Now().UTC(), nil
}

// bodiesFlag returns the --body flag, or the configured bodies.
func bodiesFlag(cmd *cobra.Command) []string {
	bodies, _ := cmd.Flags().GetStringSlice("body")
	if len(bodies) == 0 {
		bodies = conf.Simulation.Bodies
	}
	for i := range bodies {
		bodies[i] = strings.TrimSpace(bodies[i])
	}
	return bodies
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is conf.toml in $HELIO_CONFIG or the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	bodiesCmd.Flags().Bool("yaml", false, "write the catalog as YAML")

	positionCmd.Flags().String("date", "", "date (RFC3339, \"2006-01-02 15:04:05\" or \"2006-01-02\")")
	positionCmd.Flags().Float64("jd", 0, "Julian date")
	positionCmd.Flags().Float64("scale", 0, "display units per AU (default display.scale)")
	positionCmd.Flags().Bool("equatorial", false, "rotate the positions to the J2000 equatorial frame")

	rootCmd.AddCommand(bodiesCmd, positionCmd, runCmd, exportCmd, serveCmd, compareCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		} else {
			level.Error(logger).Log("err", err)
		}
		os.Exit(1)
	}
}
