// Package cutoff evaluates candidate (lower, upper) contact cutoff pairs in a
// single pass over each replicate and builds the minimum-distance density
// used to choose them.
package cutoff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/binding"
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/kinetics"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/trajectory"
	"lipid-site-lab/internal/workpool"
)

// Pair is one candidate cutoff pair.
type Pair struct {
	Lower float64
	Upper float64
}

// Pairs returns the product of lowers and uppers without pairs where
// lower > upper, ordered by lower then upper. Duplicates are removed.
func Pairs(lowers, uppers []float64) []Pair {
	seen := make(map[Pair]struct{})
	var out []Pair
	for _, l := range lowers {
		for _, u := range uppers {
			p := Pair{Lower: l, Upper: u}
			if l > u {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lower != out[j].Lower {
			return out[i].Lower < out[j].Lower
		}
		return out[i].Upper < out[j].Upper
	})
	return out
}

// Options configures a scan.
type Options struct {
	Pairs        []Pair
	Grace        int
	FallbackStep float64
	// Filter drops diagnostic spans before aggregation.
	Filter     contact.Filter
	Clustering binding.Options
	Unit       domain.TimeUnit
	Workers    int
	Density    DensityOptions
	Logger     *log.Logger
}

// Report is the outcome of a scan.
type Report struct {
	Results []domain.CutoffResult           // by species, then pair order
	Density map[string][]domain.DistanceBin // by species
	Spans   []domain.ReplicateSpan

	Replicates []trajectory.Replicate // replicates that were scanned
	Dropped    []string               // input data errors of dropped replicates
}

// Scanner accumulates intervals for every pair across replicates.
type Scanner struct {
	topo    *domain.Topology
	species []string
	opts    Options
	log     *log.Logger

	comp      *contact.DistanceComputer
	mats      map[string]*contact.Matrix
	intervals [][]map[string][]domain.ContactInterval // per pair, per replicate call
	spans     []domain.ReplicateSpan
	density   *Density
}

// NewScanner prepares a scanner. Pairs with Lower > Upper are rejected.
func NewScanner(topo *domain.Topology, species []string, opts Options) (*Scanner, error) {
	if len(opts.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no cutoff pairs", domain.ErrInputData)
	}
	for _, p := range opts.Pairs {
		if p.Lower <= 0 || p.Lower > p.Upper {
			return nil, fmt.Errorf("%w: invalid cutoff pair %.3f/%.3f", domain.ErrInputData, p.Lower, p.Upper)
		}
	}
	comp := contact.NewDistanceComputer(topo, species, opts.Workers)
	return &Scanner{
		topo:      topo,
		species:   species,
		opts:      opts,
		log:       logger.Component(opts.Logger, "cutoff"),
		comp:      comp,
		mats:      comp.NewMatrices(),
		intervals: make([][]map[string][]domain.ContactInterval, len(opts.Pairs)),
		density:   NewDensity(topo, species, opts.Density),
	}, nil
}

// Replicate consumes one replicate in a single forward pass, stepping one
// tracker bank per pair.
func (s *Scanner) Replicate(ctx context.Context, src trajectory.Source, rep trajectory.Replicate) error {
	banks := make([]map[string][]contact.Tracker, len(s.opts.Pairs))
	out := make([]map[string][]domain.ContactInterval, len(s.opts.Pairs))
	for p, pair := range s.opts.Pairs {
		th := contact.Thresholds{Lower: pair.Lower, Upper: pair.Upper, Grace: s.opts.Grace}
		banks[p] = make(map[string][]contact.Tracker, len(s.species))
		out[p] = make(map[string][]domain.ContactInterval, len(s.species))
		for _, sp := range s.species {
			m := s.mats[sp]
			ts := make([]contact.Tracker, m.Residues*m.Instances)
			for i := range ts {
				ts[i] = contact.NewTracker(th)
			}
			banks[p][sp] = ts
		}
	}

	emit := func(p int, sp string, idx int, span contact.Span) {
		if !s.opts.Filter.Keep(span) {
			return
		}
		m := s.mats[sp]
		out[p][sp] = append(out[p][sp], domain.ContactInterval{
			Species:     sp,
			Replicate:   rep.Index,
			ResidueID:   idx / m.Instances,
			InstanceID:  idx % m.Instances,
			Start:       span.Start,
			End:         span.End,
			StartFrame:  span.StartFrame,
			EndFrame:    span.EndFrame,
			Censored:    span.Censored,
			MinDistance: span.MinDistance,
		})
	}

	wrap := func(err error) error {
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
	}

	s.density.BeginReplicate()
	clock := contact.NewFrameClock(s.opts.FallbackStep)
	for {
		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return wrap(err)
		}
		if err := clock.Observe(f); err != nil {
			return wrap(err)
		}
		if err := s.comp.Compute(ctx, f, s.mats); err != nil {
			return wrap(err)
		}
		s.density.Observe(s.mats)
		for p := range banks {
			for _, sp := range s.species {
				ts := banks[p][sp]
				dist := s.mats[sp].D
				for i := range ts {
					if span, ok := ts[i].Step(f.Index, f.Time, dist[i]); ok {
						emit(p, sp, i, span)
					}
				}
			}
		}
	}
	if clock.Frames == 0 {
		return wrap(fmt.Errorf("no frames"))
	}

	end := clock.End()
	for p := range banks {
		for _, sp := range s.species {
			ts := banks[p][sp]
			for i := range ts {
				if span, ok := ts[i].Finish(end); ok {
					emit(p, sp, i, span)
				}
			}
		}
		s.intervals[p] = append(s.intervals[p], out[p])
	}
	s.density.EndReplicate()

	step := clock.Step
	if clock.Frames < 2 {
		step = end - clock.Last
	}
	s.spans = append(s.spans, domain.ReplicateSpan{
		Replicate: rep.Index, Path: rep.Path, Frames: clock.Frames,
		Start: clock.First, End: end, Step: step,
	})
	s.log.Debug("replicate scanned", "replicate", rep.Index, "frames", clock.Frames, "pairs", len(s.opts.Pairs))
	return nil
}

// Report evaluates every pair. Pairs are independent and run on the pool.
func (s *Scanner) Report(ctx context.Context) (*Report, error) {
	results := make([][]domain.CutoffResult, len(s.opts.Pairs))
	err := workpool.Run(ctx, s.opts.Workers, len(s.opts.Pairs), func(_ context.Context, p int) error {
		pair := s.opts.Pairs[p]
		for _, sp := range s.species {
			var ivs []domain.ContactInterval
			for _, rep := range s.intervals[p] {
				ivs = append(ivs, rep[sp]...)
			}
			results[p] = append(results[p], s.evaluate(sp, pair, ivs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rep := &Report{Density: s.density.Bins(), Spans: append([]domain.ReplicateSpan(nil), s.spans...)}
	for _, sp := range s.species {
		for p := range s.opts.Pairs {
			for _, r := range results[p] {
				if r.Species == sp {
					rep.Results = append(rep.Results, r)
				}
			}
		}
	}
	return rep, nil
}

func (s *Scanner) evaluate(species string, pair Pair, ivs []domain.ContactInterval) domain.CutoffResult {
	res := domain.CutoffResult{Species: species, Lower: pair.Lower, Upper: pair.Upper}
	if len(ivs) == 0 {
		return res
	}
	copts := s.opts.Clustering
	copts.Logger = nil
	cl := binding.Cluster(species, ivs, copts)
	res.NumSites = len(cl.Sites)

	stats := kinetics.ResidueStats(species, ivs, s.spans, s.opts.Unit)
	res.ContactingResidues = len(stats)
	var sum float64
	for _, st := range stats {
		sum += st.DurationMean
	}
	if len(stats) > 0 {
		res.DurationMean = sum / float64(len(stats))
	}
	return res
}

// Scan runs a scanner over every replicate. A replicate failing with an
// input data error is dropped and listed in Report.Dropped; the scan fails
// only when no replicate remains.
func Scan(ctx context.Context, opener trajectory.Opener, reps []trajectory.Replicate,
	topo *domain.Topology, species []string, opts Options) (*Report, error) {
	l := logger.Component(opts.Logger, "cutoff")
	sc, err := NewScanner(topo, species, opts)
	if err != nil {
		return nil, err
	}
	var (
		used    []trajectory.Replicate
		dropped []string
	)
	for _, rep := range reps {
		err := scanReplicate(ctx, opener, rep, topo, sc)
		if err == nil {
			used = append(used, rep)
			continue
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrInputData) {
			return nil, err
		}
		l.Warn("dropping replicate", "replicate", rep.Index, "path", rep.Path, "err", err)
		dropped = append(dropped, err.Error())
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("%w: no usable replicate", domain.ErrInputData)
	}
	rep, err := sc.Report(ctx)
	if err != nil {
		return nil, err
	}
	rep.Replicates = used
	rep.Dropped = dropped
	l.Info("cutoff scan complete", "pairs", len(opts.Pairs), "replicates", len(used), "dropped", len(dropped))
	return rep, nil
}

func scanReplicate(ctx context.Context, opener trajectory.Opener, rep trajectory.Replicate, topo *domain.Topology, sc *Scanner) error {
	src, err := opener.Open(ctx, rep)
	if err != nil {
		if errors.Is(err, domain.ErrInputData) || ctx.Err() != nil {
			return err
		}
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
	}
	defer src.Close()
	if n := len(src.Atoms()); n != topo.NumAtoms() {
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path,
			Err: fmt.Errorf("%d atoms, topology has %d", n, topo.NumAtoms())}
	}
	return sc.Replicate(ctx, src, rep)
}
