// Package contact turns per-frame residue/instance minimum distances into
// contact intervals using dual-threshold hysteresis.
package contact

import "math"

// Thresholds are the hysteresis parameters. A pair becomes bound at the
// first frame with d <= Lower and stays bound while d <= Upper. Grace is the
// number of consecutive frames above Upper tolerated before the interval is
// closed. Lower == Upper reduces to a single-threshold detector.
type Thresholds struct {
	Lower float64
	Upper float64
	Grace int
}

// Span is one detected interval, before it is attributed to a
// residue/instance pair.
type Span struct {
	StartFrame  int
	EndFrame    int     // last bound frame, inclusive
	Start       float64 // time of StartFrame
	End         float64 // time of the frame after EndFrame
	Censored    bool
	MinDistance float64
}

// Tracker is the hysteresis state machine of one pair. The zero value is
// not usable; use NewTracker.
type Tracker struct {
	th Thresholds

	bound      bool
	startFrame int
	startTime  float64
	lastFrame  int     // last frame with d <= Upper
	endTime    float64 // time of the first frame above Upper after lastFrame
	above      int     // consecutive frames above Upper
	minDist    float64
}

// NewTracker creates an unbound tracker.
func NewTracker(th Thresholds) Tracker {
	return Tracker{th: th}
}

// Bound reports whether the pair is currently bound.
func (t *Tracker) Bound() bool {
	return t.bound
}

// Step consumes one frame. It returns a closed span when this frame ends a
// binding interval.
func (t *Tracker) Step(frame int, time, d float64) (Span, bool) {
	if !t.bound {
		if d <= t.th.Lower {
			t.bound = true
			t.startFrame = frame
			t.startTime = time
			t.lastFrame = frame
			t.above = 0
			t.minDist = d
		}
		return Span{}, false
	}

	if d <= t.th.Upper {
		t.lastFrame = frame
		t.above = 0
		if d < t.minDist {
			t.minDist = d
		}
		return Span{}, false
	}

	t.above++
	if t.above == 1 {
		t.endTime = time
	}
	if t.above <= t.th.Grace {
		return Span{}, false
	}
	return t.close(false, t.endTime), true
}

// Finish ends the stream. endTime is the time just past the last frame
// (last frame time plus one frame step). A pair still bound at the last
// frame yields a right-censored span; a pair inside its grace window is
// closed at the first frame above Upper.
func (t *Tracker) Finish(endTime float64) (Span, bool) {
	if !t.bound {
		return Span{}, false
	}
	if t.above > 0 {
		return t.close(false, t.endTime), true
	}
	return t.close(true, endTime), true
}

func (t *Tracker) close(censored bool, end float64) Span {
	s := Span{
		StartFrame:  t.startFrame,
		EndFrame:    t.lastFrame,
		Start:       t.startTime,
		End:         end,
		Censored:    censored,
		MinDistance: t.minDist,
	}
	t.bound = false
	t.above = 0
	t.minDist = math.Inf(1)
	return s
}

// DetectSeries runs a tracker over a single distance series. times must be
// increasing; endTime is the time just past the last frame.
func DetectSeries(times, dists []float64, th Thresholds, endTime float64) []Span {
	tr := NewTracker(th)
	var out []Span
	for i := range dists {
		if s, ok := tr.Step(i, times[i], dists[i]); ok {
			out = append(out, s)
		}
	}
	if s, ok := tr.Finish(endTime); ok {
		out = append(out, s)
	}
	return out
}

// Filter is the diagnostic interval filter used when selecting cutoffs.
type Filter struct {
	MinFrames int     // keep spans with at least this many bound frames
	MustReach float64 // keep spans whose closest approach is <= this (0 disables)
}

// Keep reports whether a span passes the filter.
func (f Filter) Keep(s Span) bool {
	if f.MinFrames > 0 && s.EndFrame-s.StartFrame+1 < f.MinFrames {
		return false
	}
	if f.MustReach > 0 && s.MinDistance > f.MustReach {
		return false
	}
	return true
}
