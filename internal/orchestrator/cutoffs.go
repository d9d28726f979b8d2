package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lipid-site-lab/internal/binding"
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/cutoff"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/idhash"
	"lipid-site-lab/internal/reporting"
	"lipid-site-lab/internal/trajectory"
)

// CutoffOptions selects the candidate pairs of a cutoff scan.
type CutoffOptions struct {
	Lowers  []float64
	Uppers  []float64
	Filter  contact.Filter
	Density cutoff.DensityOptions
}

// RunCutoffs evaluates every candidate cutoff pair in one pass per
// replicate and publishes the scan table and distance densities.
func (o *Orchestrator) RunCutoffs(ctx context.Context, co CutoffOptions) (*RunResult, error) {
	started := o.now()
	result, err := o.runCutoffs(ctx, co)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	if o.metrics != nil {
		o.metrics.RecordRun("cutoffs", status, o.now().Unix())
	}
	o.log.Info("cutoff scan finished", "status", status, "elapsed", o.now().Sub(started).Round(time.Millisecond))
	return result, err
}

func (o *Orchestrator) runCutoffs(ctx context.Context, co CutoffOptions) (*RunResult, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(o.reps) == 0 {
		return nil, fmt.Errorf("%w: no replicates", domain.ErrInputData)
	}
	pairs := cutoff.Pairs(co.Lowers, co.Uppers)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no cutoff pair with lower <= upper", domain.ErrInputData)
	}
	if o.runID == "" {
		id, err := idhash.NewRunID()
		if err != nil {
			return nil, fmt.Errorf("generate run id: %w", err)
		}
		o.runID = id
	}
	result := &RunResult{RunID: o.runID}

	// The topology comes from the first replicate that can be read.
	var (
		topo *domain.Topology
		reps = o.reps
	)
	for len(reps) > 0 {
		var err error
		topo, err = o.topology(ctx, reps[0])
		if err == nil {
			break
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrInputData) {
			return result, err
		}
		o.log.Warn("dropping replicate", "replicate", reps[0].Index, "path", reps[0].Path, "err", err)
		result.Errors = append(result.Errors, err.Error())
		reps = reps[1:]
	}
	if topo == nil {
		result.ReplicatesDropped = len(o.reps)
		return result, fmt.Errorf("%w: no usable replicate", domain.ErrInputData)
	}

	o.log.Info("scanning cutoffs", "pairs", len(pairs), "replicates", len(reps))
	var rep *cutoff.Report
	if _, err := o.stage("cutoff_scan", func() ([]string, error) {
		var err error
		rep, err = cutoff.Scan(ctx, o.opener, reps, topo, o.cfg.Species, cutoff.Options{
			Pairs:        pairs,
			Grace:        o.cfg.Contact.GraceFrames,
			FallbackStep: o.cfg.Contact.FrameStep,
			Filter:       co.Filter,
			Clustering: binding.Options{
				MinSiteSize:   o.cfg.Clustering.MinSiteSize,
				Tolerance:     o.cfg.Clustering.Tolerance,
				MinEdgeWeight: o.cfg.Clustering.MinEdgeWeight,
				MaxIterations: o.cfg.Clustering.MaxIterations,
			},
			Unit:    o.cfg.TimeUnit,
			Workers: o.cfg.Workers,
			Density: co.Density,
			Logger:  o.parent,
		})
		return nil, err
	}); err != nil {
		return result, fmt.Errorf("cutoff scan failed: %w", err)
	}
	result.Errors = append(result.Errors, rep.Dropped...)
	result.ReplicatesUsed = len(rep.Replicates)
	result.ReplicatesDropped = len(o.reps) - len(rep.Replicates)
	if o.metrics != nil {
		o.metrics.ReplicatesDropped.Add(float64(result.ReplicatesDropped))
	}

	report := &reporting.Report{
		GeneratedAt: o.now().UTC(),
		Run:         o.runRecord(&analysis{reps: rep.Replicates}),
		Cutoffs:     rep.Results,
		Density:     rep.Density,
	}
	result.Report = report

	if o.sink != nil {
		names, err := reporting.Publish(ctx, o.sink, report)
		result.Artifacts = names
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		if o.metrics != nil {
			o.metrics.ArtifactsPublished.Add(float64(len(names)))
		}
	}

	if o.stores.Runs != nil {
		if err := o.stores.Runs.Insert(ctx, report.Run); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist runs: %v", err))
		}
	}
	if o.stores.Cutoffs != nil && len(rep.Results) > 0 {
		if err := o.stores.Cutoffs.InsertBulk(ctx, o.runID, rep.Results); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist cutoffs: %v", err))
		}
	}
	for _, e := range result.Errors {
		o.log.Warn("cutoff scan error", "err", e)
	}
	return result, nil
}

// topology reads the atom table of one replicate.
func (o *Orchestrator) topology(ctx context.Context, rep trajectory.Replicate) (*domain.Topology, error) {
	src, err := o.opener.Open(ctx, rep)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	topo, err := trajectory.BuildTopology(src.Atoms(), trajectory.Selection{
		Species:      o.cfg.Species,
		ContactAtoms: o.cfg.Contact.ContactAtoms,
	})
	if err != nil {
		return nil, &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
	}
	return topo, nil
}
