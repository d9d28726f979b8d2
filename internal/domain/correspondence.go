package domain

import (
	"fmt"
	"sort"
)

// NoSite marks a location with no corresponding site for a species.
const NoSite = -1

// Correspondence sources
const (
	CorrespondenceAuto = "AUTO"
	CorrespondenceUser = "USER"
)

// CorrespondenceEntry maps each species to an ordered sequence of site ids
// indexed by a shared location ordinal.
type CorrespondenceEntry struct {
	Species     []string         // column order
	Locations   int              // number of shared locations
	Assignments map[string][]int // species -> site id (or NoSite) per location
	Source      string           // CorrespondenceAuto | CorrespondenceUser
	Warnings    []AmbiguityWarning
}

// SiteAt returns the site id of species at location loc.
func (e *CorrespondenceEntry) SiteAt(species string, loc int) int {
	seq := e.Assignments[species]
	if loc < 0 || loc >= len(seq) {
		return NoSite
	}
	return seq[loc]
}

// Shared returns the number of locations with a site for at least two species.
func (e *CorrespondenceEntry) Shared() int {
	n := 0
	for loc := 0; loc < e.Locations; loc++ {
		present := 0
		for _, sp := range e.Species {
			if e.SiteAt(sp, loc) != NoSite {
				present++
			}
		}
		if present >= 2 {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants: every species column has
// exactly Locations entries and no site id appears twice within a species.
// When known is non-nil, every site id must exist in known[species].
func (e *CorrespondenceEntry) Validate(known map[string][]int) error {
	if e.Locations < 0 {
		return fmt.Errorf("%w: negative location count", ErrInvalidCorrespondence)
	}
	seenSpecies := make(map[string]struct{}, len(e.Species))
	for _, sp := range e.Species {
		if _, dup := seenSpecies[sp]; dup {
			return fmt.Errorf("%w: species %s listed twice", ErrInvalidCorrespondence, sp)
		}
		seenSpecies[sp] = struct{}{}

		seq, ok := e.Assignments[sp]
		if !ok {
			return fmt.Errorf("%w: no column for species %s", ErrInvalidCorrespondence, sp)
		}
		if len(seq) != e.Locations {
			return fmt.Errorf("%w: species %s has %d entries, want %d",
				ErrInvalidCorrespondence, sp, len(seq), e.Locations)
		}

		var valid map[int]struct{}
		if known != nil {
			valid = make(map[int]struct{}, len(known[sp]))
			for _, id := range known[sp] {
				valid[id] = struct{}{}
			}
		}

		used := make(map[int]int)
		for loc, id := range seq {
			if id == NoSite {
				continue
			}
			if id < 0 {
				return fmt.Errorf("%w: species %s location %d has invalid site id %d",
					ErrInvalidCorrespondence, sp, loc, id)
			}
			if prev, dup := used[id]; dup {
				return fmt.Errorf("%w: species %s site %d at locations %d and %d",
					ErrInvalidCorrespondence, sp, id, prev, loc)
			}
			used[id] = loc
			if valid != nil {
				if _, ok := valid[id]; !ok {
					return fmt.Errorf("%w: species %s has no site %d", ErrInvalidCorrespondence, sp, id)
				}
			}
		}
	}
	if len(e.Assignments) != len(e.Species) {
		extra := make([]string, 0)
		for sp := range e.Assignments {
			if _, ok := seenSpecies[sp]; !ok {
				extra = append(extra, sp)
			}
		}
		sort.Strings(extra)
		return fmt.Errorf("%w: columns without species header: %v", ErrInvalidCorrespondence, extra)
	}
	return nil
}

// AmbiguityWarning records a similarity tie resolved by the deterministic
// tie-break (larger residue set, then lower site id).
type AmbiguityWarning struct {
	Species  string // species of the contested site
	SiteID   int    // contested site
	Chosen   string // "SPECIES:site" that won
	Rejected string // "SPECIES:site" that lost
	Score    float64
}

func (w AmbiguityWarning) String() string {
	return fmt.Sprintf("%s site %d: %s preferred over %s at score %.4f (tie-break)",
		w.Species, w.SiteID, w.Chosen, w.Rejected, w.Score)
}

// ResidenceComparisonRow is one location of the cross-species residence
// time comparison. Missing species have no value.
type ResidenceComparisonRow struct {
	Location      int
	SiteIDs       map[string]int
	ResidenceTime map[string]*float64 // TimeUnit, nil when NoSite or insufficient
}
