package cutoff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipid-site-lab/internal/binding"
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/trajectory"
)

func TestPairs(t *testing.T) {
	got := Pairs([]float64{0.5, 0.4, 0.8}, []float64{0.7, 0.5, 0.7})
	assert.Equal(t, []Pair{
		{0.4, 0.5}, {0.4, 0.7},
		{0.5, 0.5}, {0.5, 0.7},
	}, got)
	assert.Empty(t, Pairs([]float64{1}, []float64{0.5}))
}

func TestNewScanner_RejectsBadPairs(t *testing.T) {
	sys := trajectory.DefaultSyntheticSystem()
	topo, err := trajectory.BuildTopology(sys.Atoms(), trajectory.Selection{Species: []string{"POPC"}})
	require.NoError(t, err)

	_, err = NewScanner(topo, []string{"POPC"}, Options{})
	assert.True(t, errors.Is(err, domain.ErrInputData))
	_, err = NewScanner(topo, []string{"POPC"}, Options{Pairs: []Pair{{0.7, 0.5}}})
	assert.True(t, errors.Is(err, domain.ErrInputData))
}

func scanOptions() Options {
	return Options{
		Pairs:      Pairs([]float64{0.4, 0.5}, []float64{0.5, 0.7}),
		Clustering: binding.Options{MinSiteSize: 4, MinEdgeWeight: 1, MaxIterations: 100},
		Unit:       domain.TimeUnitNanosecond,
		Workers:    2,
		Density:    DefaultDensityOptions(),
	}
}

func TestScan_MatchesDetectorAndIsMonotone(t *testing.T) {
	sys := trajectory.DefaultSyntheticSystem()
	sys.Frames = 1500
	species := []string{"POPC"}
	topo, err := trajectory.BuildTopology(sys.Atoms(), trajectory.Selection{Species: species})
	require.NoError(t, err)

	sc, err := NewScanner(topo, species, scanOptions())
	require.NoError(t, err)
	src, err := sys.Open(context.Background(), trajectory.Replicate{Index: 0})
	require.NoError(t, err)
	require.NoError(t, sc.Replicate(context.Background(), src, trajectory.Replicate{Index: 0}))

	// the (0.5, 0.7) bank must agree with a standalone detector
	src, err = sys.Open(context.Background(), trajectory.Replicate{Index: 0})
	require.NoError(t, err)
	det := contact.NewDetector(topo, species, contact.Options{Thresholds: contact.Thresholds{Lower: 0.5, Upper: 0.7}})
	want, err := det.Run(context.Background(), src, trajectory.Replicate{Index: 0})
	require.NoError(t, err)

	var idx = -1
	for p, pair := range sc.opts.Pairs {
		if pair == (Pair{0.5, 0.7}) {
			idx = p
		}
	}
	require.NotEqual(t, -1, idx)
	got := append([]domain.ContactInterval(nil), sc.intervals[idx][0]["POPC"]...)
	contact.SortIntervals(got)
	assert.Equal(t, want.Intervals["POPC"], got)

	rep, err := sc.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 4)
	byPair := make(map[Pair]domain.CutoffResult)
	for _, r := range rep.Results {
		assert.Equal(t, "POPC", r.Species)
		byPair[Pair{r.Lower, r.Upper}] = r
	}
	assert.GreaterOrEqual(t, byPair[Pair{0.5, 0.7}].ContactingResidues, byPair[Pair{0.4, 0.7}].ContactingResidues)
	assert.Positive(t, byPair[Pair{0.5, 0.7}].ContactingResidues)
	assert.Positive(t, byPair[Pair{0.5, 0.7}].DurationMean)
	require.Len(t, rep.Spans, 1)
	assert.Equal(t, 1500, rep.Spans[0].Frames)
}

type failingOpener struct {
	trajectory.SyntheticSystem
	bad int
}

func (f failingOpener) Open(ctx context.Context, r trajectory.Replicate) (trajectory.Source, error) {
	if r.Index == f.bad {
		return nil, errors.New("trajectory file missing")
	}
	return f.SyntheticSystem.Open(ctx, r)
}

func TestScan_DropsUnreadableReplicate(t *testing.T) {
	sys := trajectory.DefaultSyntheticSystem()
	sys.Frames = 300
	species := []string{"POPC"}
	topo, err := trajectory.BuildTopology(sys.Atoms(), trajectory.Selection{Species: species})
	require.NoError(t, err)
	reps := []trajectory.Replicate{{Index: 0}, {Index: 1, Path: "run2"}, {Index: 2}}

	rep, err := Scan(context.Background(), failingOpener{SyntheticSystem: sys, bad: 1}, reps, topo, species, scanOptions())
	require.NoError(t, err)
	assert.Equal(t, []trajectory.Replicate{{Index: 0}, {Index: 2}}, rep.Replicates)
	require.Len(t, rep.Dropped, 1)
	assert.Contains(t, rep.Dropped[0], "trajectory file missing")
	require.Len(t, rep.Spans, 2)
	assert.Len(t, rep.Results, len(scanOptions().Pairs))

	_, err = Scan(context.Background(), failingOpener{SyntheticSystem: sys, bad: 0}, reps[:1], topo, species, scanOptions())
	assert.True(t, errors.Is(err, domain.ErrInputData))
}

func TestScan_FilterDropsShortSpans(t *testing.T) {
	sys := trajectory.DefaultSyntheticSystem()
	sys.Frames = 600
	species := []string{"POPC"}
	topo, err := trajectory.BuildTopology(sys.Atoms(), trajectory.Selection{Species: species})
	require.NoError(t, err)

	opts := scanOptions()
	opts.Pairs = []Pair{{0.5, 0.7}}
	opts.Filter = contact.Filter{MinFrames: 5}
	sc, err := NewScanner(topo, species, opts)
	require.NoError(t, err)
	src, err := sys.Open(context.Background(), trajectory.Replicate{})
	require.NoError(t, err)
	require.NoError(t, sc.Replicate(context.Background(), src, trajectory.Replicate{}))
	for _, iv := range sc.intervals[0][0]["POPC"] {
		assert.GreaterOrEqual(t, iv.Frames(), 5)
	}
}

func TestDensity(t *testing.T) {
	sys := trajectory.DefaultSyntheticSystem()
	topo, err := trajectory.BuildTopology(sys.Atoms(), trajectory.Selection{Species: []string{"CHOL"}})
	require.NoError(t, err)
	d := NewDensity(topo, []string{"CHOL"}, DensityOptions{Threshold: 0.65, ContactFrames: 2, Bins: 10, MaxDistance: 1})

	nInst := len(topo.Instances["CHOL"])
	m := &contact.Matrix{Residues: len(topo.Residues), Instances: nInst, D: make([]float64, len(topo.Residues)*nInst)}
	frame := func(close, other float64) map[string]*contact.Matrix {
		for i := range m.D {
			m.D[i] = 5
		}
		m.D[0] = close // residue 0, instance 0
		m.D[1] = other // residue 0, instance 1
		return map[string]*contact.Matrix{"CHOL": m}
	}

	d.BeginReplicate()
	d.Observe(frame(0.35, 0.6))
	d.Observe(frame(0.45, 0.9))
	d.Observe(frame(0.55, 0.9))
	d.EndReplicate()

	bins := d.Bins()["CHOL"]
	require.Len(t, bins, 10)
	// only pair (0,0) was close for two frames; pair (0,1) once
	assert.Equal(t, 1, bins[3].Count)
	assert.Equal(t, 1, bins[4].Count)
	assert.Equal(t, 1, bins[5].Count)
	assert.Zero(t, bins[6].Count)
	assert.Zero(t, bins[9].Count)

	var integral float64
	for _, b := range bins {
		integral += b.Density * 0.1
	}
	assert.InDelta(t, 1.0, integral, 1e-9)
	assert.InDelta(t, 0.35, bins[3].Center, 1e-12)
}
