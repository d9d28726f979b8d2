package domain

// Flag is a structured annotation attached to a record. Downstream ranking
// and export consult flags rather than console output.
type Flag string

// Record flags
const (
	FlagInsufficientData     Flag = "INSUFFICIENT_DATA"     // fewer closed intervals than required for kinetics
	FlagFitReducedModel      Flag = "FIT_REDUCED_MODEL"     // bi-exponential fit failed, single-exponential reported
	FlagFitFailed            Flag = "FIT_FAILED"            // no survival model could be reported
	FlagUnreliableKOff       Flag = "UNRELIABLE_KOFF"       // fit and bootstrap k_off disagree
	FlagLowFitQuality        Flag = "LOW_FIT_QUALITY"       // R² below screening threshold
	FlagClusteringDegenerate Flag = "CLUSTERING_DEGENERATE" // species produced no residue above threshold
	FlagAmbiguousMatch       Flag = "AMBIGUOUS_MATCH"       // correspondence tie resolved by tie-break
)

// HasFlag reports whether f is present in flags.
func HasFlag(flags []Flag, f Flag) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}

// BindingSite is a group of residues that collectively and repeatedly
// engage instances of one mobile species.
type BindingSite struct {
	SiteID    int               // 0-based, unique within species
	Species   string            // mobile species name
	Key       string            // stable content key (see idhash.SiteKey)
	Residues  []int             // sorted Residue.Index values
	Intervals []ContactInterval // residue intervals attributed to the site
	Flags     []Flag
}

// Size returns the number of residues.
func (s *BindingSite) Size() int {
	return len(s.Residues)
}

// Contains reports whether residue r belongs to the site.
func (s *BindingSite) Contains(r int) bool {
	lo, hi := 0, len(s.Residues)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.Residues[mid] == r:
			return true
		case s.Residues[mid] < r:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// SiteEvent is a site-level binding event: the union of one instance's
// residue intervals within the site.
type SiteEvent struct {
	Replicate  int
	InstanceID int
	Start      float64 // ps
	End        float64 // ps
	Censored   bool
}

// Duration returns End - Start in ps.
func (e SiteEvent) Duration() float64 {
	return e.End - e.Start
}

// ClusterResult is the outcome of clustering for one species.
type ClusterResult struct {
	Species    string
	Sites      []*BindingSite
	Background []int   // contacted residues not assigned to any site
	Modularity float64 // modularity of the full partition
	Flags      []Flag
}
