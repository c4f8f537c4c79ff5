package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/gene-expression-sim/core"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/internal/observability"
	"github.com/signalsfoundry/gene-expression-sim/timectrl"
)

type runOptions struct {
	ScenarioPath string

	// Seed overrides the scenario's seed when SeedSet is true.
	Seed        int64
	SeedSet     bool
	Duration    time.Duration
	Tick        time.Duration
	Speed       float64
	Accelerated bool
	HTTPAddr    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and print a protein report",
	Long: `Loads a scenario file, steps the cell frame by frame and applies its schedule.
While running, /metrics, /snapshot and /ledger are served on --http-addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions{}
		opts.ScenarioPath, _ = cmd.Flags().GetString("scenario")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
		opts.SeedSet = cmd.Flags().Changed("seed")
		opts.Duration, _ = cmd.Flags().GetDuration("duration")
		opts.Tick, _ = cmd.Flags().GetDuration("tick")
		opts.Speed, _ = cmd.Flags().GetFloat64("speed")
		opts.Accelerated, _ = cmd.Flags().GetBool("accelerated")
		opts.HTTPAddr, _ = cmd.Flags().GetString("http-addr")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSimulation(ctx, opts, cmd.OutOrStdout(), loggerFor(cmd))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("scenario", "s", "configs/scenario.yaml", "Scenario file to run")
	runCmd.Flags().Int64("seed", 0, "Override the scenario's random seed")
	runCmd.Flags().Duration("duration", 60*time.Second, "Simulated time to run for (0 runs until interrupted)")
	runCmd.Flags().Duration("tick", timectrl.DefaultTick, "Frame length")
	runCmd.Flags().Float64("speed", 1, "Simulated seconds per wall-clock second")
	runCmd.Flags().Bool("accelerated", false, "Step as fast as possible instead of in real time")
	runCmd.Flags().String("http-addr", ":9090", "Address for /metrics and snapshots (empty disables)")
}

// runSimulation runs one scenario to completion or cancellation and writes
// the final report to out.
func runSimulation(ctx context.Context, opts runOptions, out io.Writer, log logging.Logger) error {
	if log == nil {
		log = logging.Noop()
	}
	ctx, log = logging.WithRunLogger(ctx, log)

	scenario, err := core.LoadScenarioFile(opts.ScenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Scenario = scenario.Name
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	simMetrics, err := observability.NewSimulationCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	loopMetrics, err := observability.NewRunLoopCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	engineOpts := []core.EngineOption{
		core.WithLogger(log),
		core.WithMetricsRecorder(simMetrics),
	}
	if opts.SeedSet {
		engineOpts = append(engineOpts, core.WithSeed(opts.Seed))
	}
	engine, err := scenario.NewEngine(engineOpts...)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	clock := timectrl.NewFrameClock(opts.Tick, mode)
	clock.SetMultiplier(opts.Speed)

	sim := newSimulation(ctx, engine, core.NewSchedule(scenario.Schedule, log), clock, loopMetrics, log)
	srv := serveHTTP(opts.HTTPAddr, newRouter(sim, simMetrics), log)

	log.Info(ctx, "starting simulation",
		logging.String("scenario", scenario.Name),
		logging.String("duration", opts.Duration.String()),
		logging.String("tick", clock.Tick.String()),
		logging.Float("speed", clock.Multiplier()),
		logging.Bool("accelerated", opts.Accelerated),
	)
	<-clock.Start(ctx, opts.Duration)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "http server shutdown failed", logging.Err(err))
		}
	}

	snap := sim.snapshot()
	log.Info(ctx, "simulation finished",
		logging.Float("sim_time", snap.SimTime),
		logging.Uint64("frames", snap.Frame),
		logging.Bool("interrupted", ctx.Err() != nil),
	)
	return writeReport(out, scenario.Name, snap)
}
