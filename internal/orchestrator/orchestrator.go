// Package orchestrator runs the end-to-end analysis.
// It coordinates: detection → clustering → kinetics → screening →
// correspondence → export → persistence
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/artifacts"
	"lipid-site-lab/internal/config"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/idhash"
	"lipid-site-lab/internal/kinetics"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/observability"
	"lipid-site-lab/internal/reporting"
	"lipid-site-lab/internal/storage"
	"lipid-site-lab/internal/trajectory"
)

// OverrideFunc is consulted once with the automatic correspondence. It
// returns the entry that replaces it, or nil to keep the automatic one.
type OverrideFunc func(ctx context.Context, auto *domain.CorrespondenceEntry) (*domain.CorrespondenceEntry, error)

// Options for creating Orchestrator.
type Options struct {
	Config     config.Analysis
	Opener     trajectory.Opener
	Replicates []trajectory.Replicate

	// Optional outputs; nil members are skipped
	Stores  storage.Stores
	Sink    artifacts.Sink
	Metrics *observability.Metrics

	Override OverrideFunc

	// KeepIntervals adds every contact interval to the report and the
	// interval store.
	KeepIntervals bool

	RunID  string           // generated when empty
	Now    func() time.Time // defaults to time.Now
	Logger *log.Logger
}

// Orchestrator coordinates the E2E pipeline execution.
type Orchestrator struct {
	cfg      config.Analysis
	opener   trajectory.Opener
	reps     []trajectory.Replicate
	stores   storage.Stores
	sink     artifacts.Sink
	metrics  *observability.Metrics
	override OverrideFunc
	keepIvs  bool
	runID    string
	now      func() time.Time
	log      *log.Logger
	parent   *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		cfg:      opts.Config,
		opener:   opts.Opener,
		reps:     opts.Replicates,
		stores:   opts.Stores,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		override: opts.Override,
		keepIvs:  opts.KeepIntervals,
		runID:    opts.RunID,
		now:      now,
		log:      logger.Component(opts.Logger, "orchestrator"),
		parent:   opts.Logger,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID             string
	ReplicatesUsed    int
	ReplicatesDropped int
	IntervalsDetected int
	SitesFound        int
	InsufficientSites int
	PosesExported     int
	Artifacts         []string
	Correspondence    *domain.CorrespondenceEntry
	Report            *reporting.Report
	Errors            []string
}

// analysis is the state passed from stage to stage.
type analysis struct {
	topo      *domain.Topology
	reps      []trajectory.Replicate // replicates that passed detection
	spans     []domain.ReplicateSpan
	intervals map[string][]domain.ContactInterval
	sampler   *kinetics.FrameSampler

	sections map[string]*reporting.SpeciesSection
	sites    map[string][]*domain.BindingSite
}

// Run executes the full pipeline.
// Phases:
//  1. Detect contact intervals per replicate
//  2. Cluster residues into binding sites per species
//  3. Estimate site kinetics
//  4. Rank sites per species
//  5. Match sites across species, then apply the override
//  6. Export poses and tables
//  7. Persist records
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	started := o.now()
	result, err := o.run(ctx)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	if o.metrics != nil {
		o.metrics.RecordRun("analysis", status, o.now().Unix())
	}
	o.log.Info("pipeline finished", "status", status, "elapsed", o.now().Sub(started).Round(time.Millisecond))
	return result, err
}

func (o *Orchestrator) run(ctx context.Context) (*RunResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(o.reps) == 0 {
		return nil, fmt.Errorf("%w: no replicates", domain.ErrInputData)
	}
	if o.runID == "" {
		id, err := idhash.NewRunID()
		if err != nil {
			return nil, fmt.Errorf("generate run id: %w", err)
		}
		o.runID = id
	}
	result := &RunResult{RunID: o.runID}
	species := o.cfg.Species

	// Phase 1: Detection
	o.log.Info("phase 1: detecting contacts", "replicates", len(o.reps), "species", species)
	var a *analysis
	errs, err := o.stage("detection", func() ([]string, error) {
		var errs []string
		var err error
		a, errs, err = o.detect(ctx)
		return errs, err
	})
	result.Errors = append(result.Errors, errs...)
	if err != nil {
		return result, fmt.Errorf("phase 1 (detection) failed: %w", err)
	}
	result.ReplicatesUsed = len(a.reps)
	result.ReplicatesDropped = len(o.reps) - len(a.reps)
	for _, ivs := range a.intervals {
		result.IntervalsDetected += len(ivs)
	}
	o.log.Info("  detected intervals", "count", result.IntervalsDetected, "dropped", result.ReplicatesDropped)

	// Phase 2: Clustering
	o.log.Info("phase 2: clustering binding sites")
	if _, err := o.stage("clustering", func() ([]string, error) {
		return nil, o.cluster(ctx, a)
	}); err != nil {
		return result, fmt.Errorf("phase 2 (clustering) failed: %w", err)
	}
	for _, sp := range species {
		result.SitesFound += len(a.sites[sp])
	}
	o.log.Info("  found sites", "count", result.SitesFound)

	// Phase 3: Kinetics
	o.log.Info("phase 3: estimating kinetics")
	errs, err = o.stage("kinetics", func() ([]string, error) {
		return o.estimate(ctx, a)
	})
	result.Errors = append(result.Errors, errs...)
	if err != nil {
		return result, fmt.Errorf("phase 3 (kinetics) failed: %w", err)
	}
	for _, sp := range species {
		for _, k := range a.sections[sp].Kinetics {
			if k.Insufficient() {
				result.InsufficientSites++
			}
		}
	}
	o.log.Info("  estimated kinetics", "insufficient", result.InsufficientSites)

	// Phase 4: Screening
	o.log.Info("phase 4: ranking sites")
	o.stage("screening", func() ([]string, error) {
		o.rank(a)
		return nil, nil
	})

	// Phase 5: Correspondence (barrier: every species is clustered)
	o.log.Info("phase 5: matching sites across species")
	var entry *domain.CorrespondenceEntry
	if _, err := o.stage("correspondence", func() ([]string, error) {
		var err error
		entry, err = o.correspond(ctx, a)
		return nil, err
	}); err != nil {
		return result, fmt.Errorf("phase 5 (correspondence) failed: %w", err)
	}
	result.Correspondence = entry
	o.log.Info("  correspondence", "source", entry.Source, "locations", entry.Locations, "shared", entry.Shared())

	report := o.buildReport(a, entry)
	result.Report = report

	// Phase 6: Export
	if o.sink != nil {
		o.log.Info("phase 6: exporting poses and tables")
		errs, _ = o.stage("export", func() ([]string, error) {
			var errs []string
			result.PosesExported, result.Artifacts, errs = o.export(ctx, a, report)
			return errs, nil
		})
		result.Errors = append(result.Errors, errs...)
		o.log.Info("  exported", "poses", result.PosesExported, "artifacts", len(result.Artifacts))
	} else {
		o.log.Info("phase 6: skipping export (no sink)")
	}

	// Phase 7: Persistence
	o.log.Info("phase 7: persisting records")
	errs, _ = o.stage("persist", func() ([]string, error) {
		return o.persist(ctx, a, report), nil
	})
	result.Errors = append(result.Errors, errs...)

	o.log.Info("pipeline completed",
		"run", result.RunID, "sites", result.SitesFound, "poses", result.PosesExported, "errors", len(result.Errors))
	return result, nil
}

// stage times fn, records the duration and logs collected unit errors.
func (o *Orchestrator) stage(name string, fn func() ([]string, error)) ([]string, error) {
	start := time.Now()
	errs, err := fn()
	if o.metrics != nil {
		o.metrics.RecordStage(name, time.Since(start).Seconds())
	}
	for _, e := range errs {
		o.log.Warn("stage error", "stage", name, "err", e)
	}
	return errs, err
}
