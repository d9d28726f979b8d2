// Package main runs the binding site analysis:
// detection → clustering → kinetics → screening → correspondence → export
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lipid-site-lab/internal/cli"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/observability"
	"lipid-site-lab/internal/orchestrator"
	"lipid-site-lab/internal/trajectory"
)

func main() {
	if err := cli.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (env vars as defaults)
	analysis := cli.RegisterAnalysisFlags(flag.CommandLine)
	replicates := cli.RegisterReplicateFlags(flag.CommandLine)
	outputDir := flag.String("output-dir", cli.Env("OUTPUT_DIR", "output"), "Directory for tables, poses and report.md (empty disables)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (sites, kinetics, rankings, correspondence)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (contact intervals)")
	keepIntervals := flag.Bool("keep-intervals", false, "Write every contact interval to the report and interval store")
	interactive := flag.Bool("interactive", false, "Review the suggested correspondence before it is used")
	corrFile := flag.String("correspondence", "", "Correspondence CSV replacing the automatic result")
	metricsAddr := flag.String("metrics-addr", os.Getenv("METRICS_ADDR"), "Prometheus metrics HTTP address (empty disables)")
	runID := flag.String("run-id", "", "Run id (generated when empty)")
	debug := flag.Bool("debug", cli.EnvBool("DEBUG", false), "Debug logging")
	flag.Parse()

	log := logger.New(logger.Options{Debug: *debug})

	cfg, err := analysis.Config()
	if err != nil {
		log.Fatal("invalid parameters", "err", err)
	}
	reps, err := replicates.Replicates()
	if err != nil {
		log.Fatal("no replicates", "err", err)
	}
	if *interactive && *corrFile != "" {
		log.Fatal("-interactive and -correspondence are exclusive")
	}

	// Create context with cancellation for graceful shutdown
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

	var override orchestrator.OverrideFunc
	switch {
	case *interactive:
		override = cli.InteractiveOverride(os.Stdin, os.Stdout)
	case *corrFile != "":
		override = cli.FileOverride(*corrFile)
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:        cfg,
		Opener:        trajectory.FileOpener{FallbackStep: analysis.FrameStep()},
		Replicates:    reps,
		Stores:        stores,
		Sink:          sink,
		Metrics:       observability.DefaultMetrics,
		Override:      override,
		KeepIntervals: *keepIntervals,
		RunID:         *runID,
		Logger:        log,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		code := 1
		if errors.Is(err, domain.ErrInputData) || errors.Is(err, domain.ErrInvalidCorrespondence) {
			code = 2
		}
		log.Error("analysis failed", "err", err)
		if result != nil {
			printErrors(result.Errors)
		}
		cancel()
		cleanup()
		os.Exit(code)
	}

	fmt.Printf("Analysis completed (run %s):\n", result.RunID)
	fmt.Printf("  Replicates: %d used, %d dropped\n", result.ReplicatesUsed, result.ReplicatesDropped)
	fmt.Printf("  Intervals: %d\n", result.IntervalsDetected)
	fmt.Printf("  Sites: %d (%d with insufficient data)\n", result.SitesFound, result.InsufficientSites)
	fmt.Printf("  Shared locations: %d (%s)\n", result.Correspondence.Shared(), result.Correspondence.Source)
	fmt.Printf("  Poses: %d\n", result.PosesExported)
	if sink != nil && *outputDir != "" {
		fmt.Printf("  Artifacts: %d under %s\n", len(result.Artifacts), *outputDir)
	}
	printErrors(result.Errors)
}

func printErrors(errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Printf("  Errors: %d\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    - %s\n", e)
	}
}
