package reporting

import (
	"time"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/kinetics"
)

// Report is the full result of one analysis run.
type Report struct {
	GeneratedAt time.Time
	Run         *domain.Run

	// Species sections, in the run's species order
	Species []SpeciesSection

	Correspondence *domain.CorrespondenceEntry
	Comparison     []domain.ResidenceComparisonRow

	// Cutoff scan output, present only for cutoff runs
	Cutoffs []domain.CutoffResult
	Density map[string][]domain.DistanceBin

	Poses  int
	Errors []string
}

// SpeciesSection holds everything computed for one mobile species.
type SpeciesSection struct {
	Species     string
	Sites       []*domain.BindingSite
	Background  []int
	Modularity  float64
	Kinetics    []*domain.SiteKinetics
	Ranking     []domain.RankedSite
	Residues    []domain.ResidueStats
	Sufficiency map[int]kinetics.SufficiencyResult // keyed by site id
	Intervals   []domain.ContactInterval
	Flags       []domain.Flag
}

// KineticsFor returns the kinetics of a site, or nil.
func (s *SpeciesSection) KineticsFor(siteID int) *domain.SiteKinetics {
	for _, k := range s.Kinetics {
		if k.SiteID == siteID {
			return k
		}
	}
	return nil
}

// Section returns the section of a species, or nil.
func (r *Report) Section(species string) *SpeciesSection {
	for i := range r.Species {
		if r.Species[i].Species == species {
			return &r.Species[i]
		}
	}
	return nil
}
