// Package main runs the cutoff test: every (lower, upper) pair from the
// candidate lists is evaluated in one pass per replicate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lipid-site-lab/internal/cli"
	"lipid-site-lab/internal/config"
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/cutoff"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/observability"
	"lipid-site-lab/internal/orchestrator"
	"lipid-site-lab/internal/reporting"
	"lipid-site-lab/internal/trajectory"
)

func main() {
	if err := cli.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	analysis := cli.RegisterAnalysisFlags(flag.CommandLine)
	replicates := cli.RegisterReplicateFlags(flag.CommandLine)
	lowers := flag.String("lowers", "0.4,0.45,0.5,0.55", "Candidate binding cutoffs (nm)")
	uppers := flag.String("uppers", "0.6,0.7,0.8", "Candidate unbinding cutoffs (nm)")
	minFrames := flag.Int("min-frames", 0, "Keep only intervals with at least this many bound frames")
	mustReach := flag.Float64("must-reach", 0, "Keep only intervals reaching this distance (nm, 0 disables)")
	densityThreshold := flag.Float64("density-threshold", cutoff.DefaultDensityOptions().Threshold, "Distance (nm) a pair must come within to enter the density")
	densityFrames := flag.Int("density-frames", cutoff.DefaultDensityOptions().ContactFrames, "Close frames a pair needs to enter the density")
	outputDir := flag.String("output-dir", cli.Env("OUTPUT_DIR", "output/cutoffs"), "Directory for the scan tables (empty disables)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (cutoff scan rows)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (run records)")
	metricsAddr := flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "Prometheus metrics HTTP address (empty disables)")
	debug := flag.Bool("debug", cli.EnvBool("DEBUG", false), "Debug logging")
	flag.Parse()

	log := logger.New(logger.Options{Debug: *debug})

	cfg, err := analysis.Config()
	if err != nil {
		log.Fatal("invalid parameters", "err", err)
	}
	lo, err := config.ParseFloatList(*lowers)
	if err != nil {
		log.Fatal("invalid -lowers", "err", err)
	}
	up, err := config.ParseFloatList(*uppers)
	if err != nil {
		log.Fatal("invalid -uppers", "err", err)
	}
	reps, err := replicates.Replicates()
	if err != nil {
		log.Fatal("no replicates", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *metricsAddr != "" {
		go observability.Serve(ctx, *metricsAddr, log)
	}

	stores, cleanup, err := cli.OpenStores(ctx, cli.Backends{PostgresDSN: *postgresDSN, ClickhouseDSN: *clickhouseDSN}, log)
	if err != nil {
		log.Fatal("failed to open stores", "err", err)
	}
	defer cleanup()

	sink, err := cli.OpenSink(ctx, *outputDir, cli.S3FromEnv())
	if err != nil {
		log.Fatal("failed to open artifact sink", "err", err)
	}

	density := cutoff.DefaultDensityOptions()
	density.Threshold = *densityThreshold
	density.ContactFrames = *densityFrames

	orch := orchestrator.New(orchestrator.Options{
		Config:     cfg,
		Opener:     trajectory.FileOpener{FallbackStep: analysis.FrameStep()},
		Replicates: reps,
		Stores:     stores,
		Sink:       sink,
		Metrics:    observability.DefaultMetrics,
		Logger:     log,
	})
	result, err := orch.RunCutoffs(ctx, orchestrator.CutoffOptions{
		Lowers:  lo,
		Uppers:  up,
		Filter:  contact.Filter{MinFrames: *minFrames, MustReach: *mustReach},
		Density: density,
	})
	if err != nil {
		log.Error("cutoff scan failed", "err", err)
		cancel()
		cleanup()
		os.Exit(1)
	}

	fmt.Print(reporting.RenderCutoffCSV(result.Report.Cutoffs, cfg.TimeUnit))
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  - %s\n", e)
	}
}
