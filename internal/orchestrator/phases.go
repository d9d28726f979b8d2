package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"lipid-site-lab/internal/binding"
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/correspondence"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/kinetics"
	"lipid-site-lab/internal/reporting"
	"lipid-site-lab/internal/screening"
	"lipid-site-lab/internal/trajectory"
	"lipid-site-lab/internal/workpool"
)

// detect streams every replicate once. Replicates failing with an input
// data error are dropped and reported; the run fails only when none remain.
func (o *Orchestrator) detect(ctx context.Context) (*analysis, []string, error) {
	a := &analysis{
		intervals: make(map[string][]domain.ContactInterval, len(o.cfg.Species)),
		sections:  make(map[string]*reporting.SpeciesSection, len(o.cfg.Species)),
		sites:     make(map[string][]*domain.BindingSite, len(o.cfg.Species)),
	}

	var errs []string
	for _, rep := range o.reps {
		if err := ctx.Err(); err != nil {
			return nil, errs, err
		}
		err := o.detectReplicate(ctx, a, rep)
		if err == nil {
			continue
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrInputData) {
			return nil, errs, err
		}
		o.log.Warn("dropping replicate", "replicate", rep.Index, "path", rep.Path, "err", err)
		errs = append(errs, err.Error())
		if o.metrics != nil {
			o.metrics.ReplicatesDropped.Inc()
		}
	}
	if len(a.reps) == 0 {
		return nil, errs, fmt.Errorf("%w: no usable replicate", domain.ErrInputData)
	}
	for _, sp := range o.cfg.Species {
		contact.SortIntervals(a.intervals[sp])
		if o.metrics != nil {
			o.metrics.IntervalsDetected.WithLabelValues(sp).Add(float64(len(a.intervals[sp])))
		}
	}
	return a, errs, nil
}

func (o *Orchestrator) detectReplicate(ctx context.Context, a *analysis, rep trajectory.Replicate) error {
	src, err := o.opener.Open(ctx, rep)
	if err != nil {
		if errors.Is(err, domain.ErrInputData) {
			return err
		}
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
	}
	defer src.Close()

	topo, err := trajectory.BuildTopology(src.Atoms(), trajectory.Selection{
		Species:      o.cfg.Species,
		ContactAtoms: o.cfg.Contact.ContactAtoms,
	})
	if err != nil {
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
	}
	if a.topo != nil {
		if !trajectory.SameLayout(a.topo, topo) {
			return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path,
				Err: fmt.Errorf("atom layout differs from replicate %d", a.reps[0].Index)}
		}
		topo = a.topo
	}

	opts := contact.Options{
		Thresholds: contact.Thresholds{
			Lower: o.cfg.Contact.Lower,
			Upper: o.cfg.Contact.Upper,
			Grace: o.cfg.Contact.GraceFrames,
		},
		Workers:      o.cfg.Workers,
		FallbackStep: o.cfg.Contact.FrameStep,
		Logger:       o.parent,
	}
	// Surface areas are sampled from the first accepted replicate.
	var sampler *kinetics.FrameSampler
	if a.sampler == nil {
		sampler = kinetics.NewFrameSampler(o.cfg.Kinetics.SurfaceFrames)
		opts.OnFrame = sampler.Offer
	}

	res, err := contact.NewDetector(topo, o.cfg.Species, opts).Run(ctx, src, rep)
	if err != nil {
		return err
	}

	if a.topo == nil {
		a.topo = topo
	}
	if sampler != nil {
		a.sampler = sampler
	}
	a.reps = append(a.reps, rep)
	a.spans = append(a.spans, res.Span)
	for sp, ivs := range res.Intervals {
		a.intervals[sp] = append(a.intervals[sp], ivs...)
	}
	if o.metrics != nil {
		o.metrics.FramesRead.WithLabelValues(strconv.Itoa(rep.Index)).Add(float64(res.Span.Frames))
	}
	o.log.Debug("replicate detected", "replicate", rep.Index, "frames", res.Span.Frames)
	return nil
}

// cluster partitions each species independently on the pool.
func (o *Orchestrator) cluster(ctx context.Context, a *analysis) error {
	species := o.cfg.Species
	results := make([]*domain.ClusterResult, len(species))
	opts := binding.Options{
		MinSiteSize:   o.cfg.Clustering.MinSiteSize,
		Tolerance:     o.cfg.Clustering.Tolerance,
		MinEdgeWeight: o.cfg.Clustering.MinEdgeWeight,
		MaxIterations: o.cfg.Clustering.MaxIterations,
		Logger:        o.parent,
	}
	err := workpool.Run(ctx, o.cfg.Workers, len(species), func(_ context.Context, i int) error {
		results[i] = binding.Cluster(species[i], a.intervals[species[i]], opts)
		return nil
	})
	if err != nil {
		return err
	}

	for i, sp := range species {
		res := results[i]
		a.sites[sp] = res.Sites
		sec := &reporting.SpeciesSection{
			Species:    sp,
			Sites:      res.Sites,
			Background: res.Background,
			Modularity: res.Modularity,
			Flags:      res.Flags,
		}
		if o.keepIvs {
			sec.Intervals = a.intervals[sp]
		}
		a.sections[sp] = sec
		if o.metrics != nil {
			o.metrics.SitesFound.WithLabelValues(sp).Add(float64(len(res.Sites)))
			if len(res.Sites) == 0 {
				o.metrics.DegenerateClusters.Inc()
			}
		}
	}
	return nil
}

type siteUnit struct {
	species string
	site    *domain.BindingSite
}

type siteOutcome struct {
	kin  *domain.SiteKinetics
	suff kinetics.SufficiencyResult
}

// estimate computes kinetics for every site of every species. Sites are
// independent and run on the pool.
func (o *Orchestrator) estimate(ctx context.Context, a *analysis) ([]string, error) {
	var errs []string
	areas, err := o.residueAreas(ctx, a)
	if err != nil {
		if ctx.Err() != nil {
			return errs, err
		}
		errs = append(errs, fmt.Sprintf("surface area: %v", err))
	}

	var units []siteUnit
	for _, sp := range o.cfg.Species {
		for _, site := range a.sites[sp] {
			units = append(units, siteUnit{species: sp, site: site})
		}
	}

	est := kinetics.NewEstimator(kinetics.Options{
		Unit:                o.cfg.TimeUnit,
		MinClosedIntervals:  o.cfg.Kinetics.MinClosedIntervals,
		BootstrapIterations: o.cfg.Kinetics.BootstrapIterations,
		BootstrapSeed:       o.cfg.Kinetics.BootstrapSeed,
		SurvivalPoints:      o.cfg.Kinetics.SurvivalPoints,
		Workers:             o.cfg.Workers,
		Logger:              o.parent,
	})
	outcomes := make([]siteOutcome, len(units))
	err = workpool.Run(ctx, o.cfg.Workers, len(units), func(ctx context.Context, i int) error {
		u := units[i]
		in := kinetics.SiteInput{
			Site:      u.site,
			Events:    binding.SiteEvents(u.site, o.cfg.Clustering.Tolerance),
			Spans:     a.spans,
			Instances: len(a.topo.Instances[u.species]),
		}
		if areas != nil {
			in.SurfaceArea = kinetics.SiteArea(areas, u.site.Residues)
		}
		k, suff, err := est.Estimate(ctx, in)
		if err != nil {
			return fmt.Errorf("site %s/%d: %w", u.species, u.site.SiteID, err)
		}
		outcomes[i] = siteOutcome{kin: k, suff: suff}
		return nil
	})
	if err != nil {
		return errs, err
	}

	for _, sp := range o.cfg.Species {
		sec := a.sections[sp]
		sec.Sufficiency = make(map[int]kinetics.SufficiencyResult, len(a.sites[sp]))
		sec.Residues = kinetics.ResidueStats(sp, a.intervals[sp], a.spans, o.cfg.TimeUnit)
	}
	for i, u := range units {
		out := outcomes[i]
		sec := a.sections[u.species]
		sec.Kinetics = append(sec.Kinetics, out.kin)
		sec.Sufficiency[u.site.SiteID] = out.suff
		if o.metrics == nil {
			continue
		}
		if out.kin.Insufficient() {
			o.metrics.InsufficientSites.WithLabelValues(u.species).Inc()
		} else {
			o.metrics.RecordFit(out.kin.FitModel)
		}
	}
	return errs, nil
}

// residueAreas returns the mean accessible area per residue over the
// sampled frames, or nil when nothing was sampled.
func (o *Orchestrator) residueAreas(ctx context.Context, a *analysis) ([]float64, error) {
	if a.sampler == nil {
		return nil, nil
	}
	frames := a.sampler.Frames()
	if len(frames) == 0 {
		return nil, nil
	}
	calc := kinetics.NewSurfaceCalculator(a.topo,
		kinetics.NewRadiusTable(o.cfg.Kinetics.RadiusOverrides),
		o.cfg.Kinetics.ProbeRadius, o.cfg.Kinetics.SpherePoints, o.cfg.Workers)
	return kinetics.MeanResidueAreas(ctx, calc, frames)
}

func (o *Orchestrator) rank(a *analysis) {
	criteria := screening.Criteria{
		MaxDeltaRatio: o.cfg.Screening.MaxDeltaRatio,
		MinR2:         o.cfg.Screening.MinR2,
	}
	for _, sp := range o.cfg.Species {
		sec := a.sections[sp]
		sec.Ranking = screening.Rank(sec.Kinetics, criteria)
		if o.metrics == nil {
			continue
		}
		for _, r := range sec.Ranking {
			if r.Unreliable {
				o.metrics.UnreliableSites.WithLabelValues(sp).Inc()
			}
		}
	}
}

// correspond runs the matcher once every species is clustered, then gives
// the override a single chance to replace the result.
func (o *Orchestrator) correspond(ctx context.Context, a *analysis) (*domain.CorrespondenceEntry, error) {
	sim, err := correspondence.PolicyByName(o.cfg.Correspondence.Policy)
	if err != nil {
		return nil, err
	}
	auto := correspondence.Match(o.cfg.Species, a.sites, correspondence.Options{
		Similarity: sim,
		Threshold:  o.cfg.Correspondence.Threshold,
		Logger:     o.parent,
	})
	if o.metrics != nil {
		o.metrics.AmbiguousMatches.Add(float64(len(auto.Warnings)))
	}
	if o.override == nil {
		o.markAmbiguous(a, auto)
		return auto, nil
	}

	user, err := o.override(ctx, auto)
	if err != nil {
		return nil, fmt.Errorf("correspondence override: %w", err)
	}
	entry, err := correspondence.Finalize(auto, user, a.sites)
	if err != nil {
		return nil, err
	}
	if entry == auto {
		o.markAmbiguous(a, auto)
	} else {
		o.log.Info("using user correspondence", "locations", entry.Locations)
	}
	return entry, nil
}

// markAmbiguous flags the sites whose automatic match was decided by the
// tie-break. A user entry replaces the tie-break, so it is not applied then.
func (o *Orchestrator) markAmbiguous(a *analysis, auto *domain.CorrespondenceEntry) {
	if len(auto.Warnings) == 0 {
		return
	}
	a.sites = correspondence.MarkAmbiguous(a.sites, auto.Warnings)
	for sp, sec := range a.sections {
		sec.Sites = a.sites[sp]
	}
}

func (o *Orchestrator) runRecord(a *analysis) *domain.Run {
	return &domain.Run{
		RunID:      o.runID,
		CreatedAt:  o.now().UnixMilli(),
		Species:    append([]string(nil), o.cfg.Species...),
		Lower:      o.cfg.Contact.Lower,
		Upper:      o.cfg.Contact.Upper,
		MinSite:    o.cfg.Clustering.MinSiteSize,
		TimeUnit:   o.cfg.TimeUnit,
		Replicates: len(a.reps),
	}
}

// buildReport assembles the report from the final correspondence. The
// residence comparison is always derived from entry, never from the
// automatic result it may have replaced.
func (o *Orchestrator) buildReport(a *analysis, entry *domain.CorrespondenceEntry) *reporting.Report {
	r := &reporting.Report{
		GeneratedAt:    o.now().UTC(),
		Run:            o.runRecord(a),
		Correspondence: entry,
	}
	kin := make(map[string][]*domain.SiteKinetics, len(o.cfg.Species))
	for _, sp := range o.cfg.Species {
		sec := a.sections[sp]
		r.Species = append(r.Species, *sec)
		kin[sp] = sec.Kinetics
	}
	r.Comparison = correspondence.ResidenceComparison(entry, kin)
	return r
}
