package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/trajectory"
)

// Options configures a Detector.
type Options struct {
	Thresholds Thresholds
	Workers    int
	// FallbackStep (ps) closes censored intervals of single-frame replicates.
	FallbackStep float64
	// OnFrame, when set, sees every frame after its distances are computed.
	// It runs on the reading goroutine.
	OnFrame func(f *domain.Frame)
	Logger  *log.Logger
}

// Detector streams one replicate and emits contact intervals for every
// residue/instance pair of the selected species.
type Detector struct {
	topo    *domain.Topology
	species []string
	opts    Options
	log     *log.Logger
}

// NewDetector creates a detector for a topology.
func NewDetector(topo *domain.Topology, species []string, opts Options) *Detector {
	return &Detector{
		topo:    topo,
		species: species,
		opts:    opts,
		log:     logger.Component(opts.Logger, "contact"),
	}
}

// Result is the detector output for one replicate.
type Result struct {
	Span      domain.ReplicateSpan
	Intervals map[string][]domain.ContactInterval // keyed by species, sorted
}

// FrameClock tracks frame times, the frame step and the end of the covered
// time range of a stream.
type FrameClock struct {
	Frames   int
	First    float64
	Last     float64
	Step     float64
	fallback float64
}

// NewFrameClock creates a clock with a fallback step for single-frame streams.
func NewFrameClock(fallback float64) FrameClock {
	return FrameClock{fallback: fallback}
}

// Observe records a frame time. Times must be strictly increasing.
func (c *FrameClock) Observe(f *domain.Frame) error {
	switch c.Frames {
	case 0:
		c.First = f.Time
	case 1:
		c.Step = f.Time - c.Last
	}
	if c.Frames > 0 && f.Time <= c.Last {
		return fmt.Errorf("frame %d time %.3f not after previous %.3f", f.Index, f.Time, c.Last)
	}
	c.Last = f.Time
	c.Frames++
	return nil
}

// End returns the time just past the last frame.
func (c *FrameClock) End() float64 {
	step := c.Step
	if c.Frames < 2 || step <= 0 {
		step = c.fallback
		if step <= 0 {
			step = 1
		}
	}
	return c.Last + step
}

// Run consumes src to the end. Any read or ordering failure is returned as a
// *domain.InputDataError for the replicate.
func (d *Detector) Run(ctx context.Context, src trajectory.Source, rep trajectory.Replicate) (*Result, error) {
	comp := NewDistanceComputer(d.topo, d.species, d.opts.Workers)
	mats := comp.NewMatrices()

	trackers := make(map[string][]Tracker, len(d.species))
	for _, sp := range d.species {
		m := mats[sp]
		ts := make([]Tracker, m.Residues*m.Instances)
		for i := range ts {
			ts[i] = NewTracker(d.opts.Thresholds)
		}
		trackers[sp] = ts
	}

	out := make(map[string][]domain.ContactInterval, len(d.species))
	emit := func(sp string, idx int, s Span) {
		m := mats[sp]
		out[sp] = append(out[sp], domain.ContactInterval{
			Species:     sp,
			Replicate:   rep.Index,
			ResidueID:   idx / m.Instances,
			InstanceID:  idx % m.Instances,
			Start:       s.Start,
			End:         s.End,
			StartFrame:  s.StartFrame,
			EndFrame:    s.EndFrame,
			Censored:    s.Censored,
			MinDistance: s.MinDistance,
		})
	}

	clock := NewFrameClock(d.opts.FallbackStep)
	for {
		f, err := src.Next(ctx)
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
		}
		if err := clock.Observe(f); err != nil {
			return nil, &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
		}
		if err := comp.Compute(ctx, f, mats); err != nil {
			return nil, &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
		}
		if d.opts.OnFrame != nil {
			d.opts.OnFrame(f)
		}
		for _, sp := range d.species {
			ts := trackers[sp]
			dist := mats[sp].D
			for i := range ts {
				if s, ok := ts[i].Step(f.Index, f.Time, dist[i]); ok {
					emit(sp, i, s)
				}
			}
		}
	}

	if clock.Frames == 0 {
		return nil, &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: fmt.Errorf("no frames")}
	}

	end := clock.End()
	for _, sp := range d.species {
		ts := trackers[sp]
		for i := range ts {
			if s, ok := ts[i].Finish(end); ok {
				emit(sp, i, s)
			}
		}
		SortIntervals(out[sp])
		d.log.Debug("intervals detected", "replicate", rep.Index, "species", sp, "count", len(out[sp]))
	}

	step := clock.Step
	if clock.Frames < 2 {
		step = end - clock.Last
	}
	return &Result{
		Span: domain.ReplicateSpan{
			Replicate: rep.Index,
			Path:      rep.Path,
			Frames:    clock.Frames,
			Start:     clock.First,
			End:       end,
			Step:      step,
		},
		Intervals: out,
	}, nil
}

// SortIntervals orders intervals by replicate, residue, instance, start.
func SortIntervals(ivs []domain.ContactInterval) {
	sort.Slice(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Replicate != b.Replicate {
			return a.Replicate < b.Replicate
		}
		if a.ResidueID != b.ResidueID {
			return a.ResidueID < b.ResidueID
		}
		if a.InstanceID != b.InstanceID {
			return a.InstanceID < b.InstanceID
		}
		return a.Start < b.Start
	})
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
