package contact

import (
	"math/rand/v2"
	"testing"
)

func series(n int) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 10
	}
	return times
}

func TestDetectSeries_SingleExcursion(t *testing.T) {
	d := []float64{1.0, 0.9, 0.45, 0.6, 0.65, 0.4, 0.68, 0.8, 1.0, 0.9}
	spans := DetectSeries(series(len(d)), d, Thresholds{Lower: 0.5, Upper: 0.7}, 100)
	if len(spans) != 1 {
		t.Fatalf("expected 1 interval, got %d: %+v", len(spans), spans)
	}
	s := spans[0]
	if s.StartFrame != 2 || s.EndFrame != 6 {
		t.Errorf("unexpected frames %d..%d", s.StartFrame, s.EndFrame)
	}
	if s.Start != 20 || s.End != 70 {
		t.Errorf("unexpected times [%v,%v)", s.Start, s.End)
	}
	if s.Censored {
		t.Error("closed interval marked censored")
	}
	if s.MinDistance != 0.4 {
		t.Errorf("min distance = %v, want 0.4", s.MinDistance)
	}
}

func TestDetectSeries_BetweenThresholdsNeverBinds(t *testing.T) {
	d := []float64{0.6, 0.65, 0.55, 0.69, 0.6}
	if spans := DetectSeries(series(len(d)), d, Thresholds{Lower: 0.5, Upper: 0.7}, 50); len(spans) != 0 {
		t.Errorf("expected no interval, got %+v", spans)
	}
}

func TestDetectSeries_Censored(t *testing.T) {
	d := []float64{1.0, 0.4, 0.45, 0.6}
	spans := DetectSeries(series(len(d)), d, Thresholds{Lower: 0.5, Upper: 0.7}, 40)
	if len(spans) != 1 || !spans[0].Censored {
		t.Fatalf("expected one censored interval, got %+v", spans)
	}
	if spans[0].End != 40 {
		t.Errorf("censored end = %v, want 40", spans[0].End)
	}
}

func TestDetectSeries_Grace(t *testing.T) {
	d := []float64{0.4, 0.8, 0.4, 0.8, 0.8, 0.4}
	th := Thresholds{Lower: 0.5, Upper: 0.7}

	if got := DetectSeries(series(len(d)), d, th, 60); len(got) != 3 {
		t.Errorf("grace 0: expected 3 intervals, got %d", len(got))
	}

	th.Grace = 1
	got := DetectSeries(series(len(d)), d, th, 60)
	if len(got) != 2 {
		t.Fatalf("grace 1: expected 2 intervals, got %+v", got)
	}
	if got[0].StartFrame != 0 || got[0].EndFrame != 2 || got[0].End != 30 {
		t.Errorf("grace 1: unexpected first interval %+v", got[0])
	}

	th.Grace = 2
	if got := DetectSeries(series(len(d)), d, th, 60); len(got) != 1 || !got[0].Censored {
		t.Errorf("grace 2: expected one censored interval, got %+v", got)
	}
}

func TestDetectSeries_GraceAtEnd(t *testing.T) {
	d := []float64{0.4, 0.8}
	got := DetectSeries(series(len(d)), d, Thresholds{Lower: 0.5, Upper: 0.7, Grace: 3}, 20)
	if len(got) != 1 || got[0].Censored || got[0].End != 10 {
		t.Errorf("expected closed interval ending at 10, got %+v", got)
	}
}

// With equal thresholds the detector must match plain runs of d <= c.
func TestDetectSeries_EqualThresholdsMatchSingleThreshold(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	const c = 0.6
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(60)
		d := make([]float64, n)
		for i := range d {
			d[i] = 0.3 + rng.Float64()*0.6
		}
		times := series(n)
		got := DetectSeries(times, d, Thresholds{Lower: c, Upper: c}, float64(n)*10)

		var want []Span
		start := -1
		for i := 0; i <= n; i++ {
			in := i < n && d[i] <= c
			if in && start < 0 {
				start = i
			}
			if !in && start >= 0 {
				want = append(want, Span{StartFrame: start, EndFrame: i - 1, Censored: i == n})
				start = -1
			}
		}

		if len(got) != len(want) {
			t.Fatalf("trial %d: got %d intervals, want %d", trial, len(got), len(want))
		}
		for i := range got {
			if got[i].StartFrame != want[i].StartFrame || got[i].EndFrame != want[i].EndFrame || got[i].Censored != want[i].Censored {
				t.Fatalf("trial %d interval %d: got %+v, want %+v", trial, i, got[i], want[i])
			}
		}
	}
}

func TestDetectSeries_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := 0; trial < 100; trial++ {
		n := 2 + rng.IntN(100)
		d := make([]float64, n)
		for i := range d {
			d[i] = rng.Float64()
		}
		spans := DetectSeries(series(n), d, Thresholds{Lower: 0.4, Upper: 0.6, Grace: rng.IntN(3)}, float64(n)*10)
		for i, s := range spans {
			if !(s.Start < s.End) {
				t.Fatalf("trial %d: start %v not before end %v", trial, s.Start, s.End)
			}
			if i > 0 && spans[i-1].End > s.Start {
				t.Fatalf("trial %d: intervals overlap: %+v %+v", trial, spans[i-1], s)
			}
			if s.Censored && i != len(spans)-1 {
				t.Fatalf("trial %d: censored interval not last", trial)
			}
		}
	}
}

func TestFilter(t *testing.T) {
	f := Filter{MinFrames: 3, MustReach: 0.5}
	if f.Keep(Span{StartFrame: 0, EndFrame: 1, MinDistance: 0.3}) {
		t.Error("short span kept")
	}
	if f.Keep(Span{StartFrame: 0, EndFrame: 5, MinDistance: 0.55}) {
		t.Error("span that never reached threshold kept")
	}
	if !f.Keep(Span{StartFrame: 0, EndFrame: 5, MinDistance: 0.45}) {
		t.Error("valid span dropped")
	}
	if !(Filter{}).Keep(Span{}) {
		t.Error("zero filter must keep everything")
	}
}
