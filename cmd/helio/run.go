package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChristopherRabotin/helio"
	"github.com/ChristopherRabotin/helio/server"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// newScheduler builds the scheduler from the configuration and the flags of the command.
func newScheduler(cmd *cobra.Command, metrics *helio.Metrics) (*helio.Scheduler, error) {
	cat, err := conf.Catalog()
	if err != nil {
		return nil, err
	}
	start := conf.Simulation.Start
	if date, _ := cmd.Flags().GetString("start"); date != "" {
		if start, err = helio.ParseEpoch(date); err != nil {
			return nil, err
		}
	}
	bodies := bodiesFlag(cmd)
	for _, name := range bodies {
		if _, err := cat.ElementsFor(name); err != nil {
			return nil, err
		}
	}
	sched := helio.NewScheduler(cat, conf.SolverConfig(), start, logger, metrics, bodies...)
	sched.Step = conf.Simulation.Step
	sched.Interval = conf.Simulation.Interval
	sched.MaxTicks = conf.Simulation.Ticks
	if cmd.Flags().Changed("step") {
		sched.Step, _ = cmd.Flags().GetDuration("step")
	}
	if cmd.Flags().Changed("interval") {
		sched.Interval, _ = cmd.Flags().GetDuration("interval")
	}
	if cmd.Flags().Changed("ticks") {
		sched.MaxTicks, _ = cmd.Flags().GetInt("ticks")
	}
	if sched.Step <= 0 {
		return nil, fmt.Errorf("the step must be positive, got %s", sched.Step)
	}
	if sched.Interval < 0 {
		return nil, fmt.Errorf("the interval must not be negative, got %s", sched.Interval)
	}
	return sched, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ignoreCanceled treats an interruption as a normal end of the simulation.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated clock and print the positions at each tick",
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := newScheduler(cmd, nil)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		frames := make(chan helio.Frame, 1)
		sched.Subscribe(frames)
		done := make(chan struct{})
		out := cmd.OutOrStdout()
		go func() {
			defer close(done)
			for f := range frames {
				for _, name := range f.Bodies() {
					sol := f.Solutions[name]
					fmt.Fprintf(out, "%s\t%.6f\t%s\t%s\n", f.Epoch.Format(dateFormat), f.JD, name, sol.Position.Scale(conf.DisplayScale))
				}
			}
		}()
		err = sched.Run(ctx)
		<-done
		return ignoreCanceled(err)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run the simulation as fast as possible and export the trajectories",
	Long: `Run the simulation without waiting between ticks and export the states of
each body as CSV and/or Cosmographia interpolated states, per the [export]
section of the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := newScheduler(cmd, nil)
		if err != nil {
			return err
		}
		sched.Interval = 0
		if sched.MaxTicks <= 0 {
			return errors.New("export requires a number of ticks (--ticks or simulation.ticks)")
		}
		exp := conf.Export
		if dir, _ := cmd.Flags().GetString("output"); dir != "" {
			exp.OutputDir = dir
		}
		if cmd.Flags().Changed("cosmo") {
			exp.Cosmo, _ = cmd.Flags().GetBool("cosmo")
		}
		if cmd.Flags().Changed("csv") {
			exp.AsCSV, _ = cmd.Flags().GetBool("csv")
		}
		if exp.IsUseless() {
			return errors.New("nothing to export: enable export.csv or export.cosmo")
		}
		ctx, cancel := signalContext()
		defer cancel()

		frames := make(chan helio.Frame, 64)
		sched.Subscribe(frames)
		exported := make(chan error, 1)
		go func() {
			exported <- helio.StreamFrames(exp, frames, logger)
		}()
		start := time.Now()
		runErr := sched.Run(ctx)
		expErr := <-exported
		if runErr = ignoreCanceled(runErr); runErr != nil {
			return runErr
		}
		if expErr != nil {
			return expErr
		}
		level.Info(logger).Log("status", "exported", "ticks", sched.Ticks(), "took", time.Since(start), "dir", exp.OutputDir)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the positions over HTTP and stream the simulation over a websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		metrics := helio.NewMetrics(reg)
		sched, err := newScheduler(cmd, metrics)
		if err != nil {
			return err
		}
		addr := conf.Server.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		srv := server.New(server.Config{
			Catalog:  sched.Catalog,
			Solver:   sched.Solver,
			Scale:    conf.DisplayScale,
			Rate:     conf.Server.Rate,
			Burst:    conf.Server.Burst,
			Logger:   logger,
			Registry: reg,
		})
		ctx, cancel := signalContext()
		defer cancel()

		frames := make(chan helio.Frame, 1)
		sched.Subscribe(frames)
		go srv.Hub().Run(ctx, frames)
		go func() {
			if err := sched.Run(ctx); ignoreCanceled(err) != nil {
				level.Error(logger).Log("subsys", "sched", "err", err)
			}
		}()
		return srv.ListenAndServe(ctx, addr)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare [body...]",
	Short: "Compare the Keplerian positions to VSOP87",
	Long: `Compare the positions computed from the Keplerian elements to those of the
VSOP87 theory (Meeus' theory for Pluto). The W element is read as JPL's
longitude of perihelion for this comparison, so the separations show the
accuracy of the elements (arcminutes within 1800-2050) rather than the offset
of the argument of perihelion convention used by the position command.
The VSOP87B files are read from --vsop87 or vsop87.directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := conf.Catalog()
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("vsop87")
		if dir == "" {
			dir = conf.VSOP87.Directory
		}
		if dir == "" {
			return errors.New("no VSOP87 directory: use --vsop87 or vsop87.directory")
		}
		epoch, err := epochFlag(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			args = cat.Names()
		}
		ref := helio.NewVSOP87(dir)
		solver := conf.SolverConfig()
		for _, name := range args {
			oe, err := cat.ElementsFor(name)
			if err != nil {
				return err
			}
			c, err := ref.Compare(solver, epoch, oe)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, exportCmd, serveCmd} {
		cmd.Flags().String("start", "", "simulation start (default simulation.start or now)")
		cmd.Flags().StringSlice("body", nil, "bodies to simulate (default simulation.bodies or all)")
		cmd.Flags().Duration("step", helio.DefaultStep, "simulated time per tick")
		cmd.Flags().Duration("interval", helio.DefaultInterval, "wall time between ticks")
		cmd.Flags().Int("ticks", 0, "number of ticks, zero runs forever")
	}
	exportCmd.Flags().String("output", "", "output directory (default export.output_dir)")
	exportCmd.Flags().Bool("cosmo", false, "export Cosmographia files")
	exportCmd.Flags().Bool("csv", true, "export CSV files")
	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")

	compareCmd.Flags().String("vsop87", "", "directory of the VSOP87B files")
	compareCmd.Flags().String("date", "", "date (RFC3339, \"2006-01-02 15:04:05\" or \"2006-01-02\")")
	compareCmd.Flags().Float64("jd", 0, "Julian date")
}
