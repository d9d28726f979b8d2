package domain

// ContactInterval is a maximal span during which a residue and a mobile
// species instance are bound under the dual-threshold rule.
// Start < End always holds; End is the time of the frame following the last
// bound frame, so End-Start equals the number of bound frames times the
// frame step.
type ContactInterval struct {
	Species     string  // mobile species name
	Replicate   int     // replicate index
	ResidueID   int     // Residue.Index
	InstanceID  int     // Instance.ID within the species
	Start       float64 // ps
	End         float64 // ps
	StartFrame  int     // first bound frame
	EndFrame    int     // last bound frame (inclusive)
	Censored    bool    // trajectory ended while bound (right-censored)
	MinDistance float64 // closest approach during the interval (nm)
}

// Duration returns End - Start in ps.
func (c ContactInterval) Duration() float64 {
	return c.End - c.Start
}

// Frames returns the number of bound frames.
func (c ContactInterval) Frames() int {
	return c.EndFrame - c.StartFrame + 1
}

// Overlaps reports whether two intervals overlap in time, allowing a
// tolerance (ps) for near-overlap.
func (c ContactInterval) Overlaps(o ContactInterval, tolerance float64) bool {
	if c.Replicate != o.Replicate {
		return false
	}
	return c.Start < o.End+tolerance && o.Start < c.End+tolerance
}

// ReplicateSpan describes the time covered by one replicate.
type ReplicateSpan struct {
	Replicate int
	Path      string
	Frames    int
	Start     float64 // ps, time of first frame
	End       float64 // ps, time of last frame plus one frame step
	Step      float64 // ps per frame
}

// Length returns the covered time in ps.
func (r ReplicateSpan) Length() float64 {
	return r.End - r.Start
}
