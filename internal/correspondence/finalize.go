package correspondence

import (
	"fmt"
	"sort"

	"lipid-site-lab/internal/domain"
)

// Finalize selects the correspondence used downstream. A user-supplied
// override replaces the automatic result wholesale: it is validated against
// the known sites and returned as is, never re-derived or merged. known
// holds every species of the run, including species without sites, and
// the override must list exactly those species.
func Finalize(auto, override *domain.CorrespondenceEntry, known map[string][]*domain.BindingSite) (*domain.CorrespondenceEntry, error) {
	if override == nil {
		return auto, nil
	}
	if err := sameSpecies(override.Species, known); err != nil {
		return nil, fmt.Errorf("user correspondence: %w", err)
	}
	if err := override.Validate(KnownSiteIDs(known)); err != nil {
		return nil, fmt.Errorf("user correspondence: %w", err)
	}
	return override, nil
}

func sameSpecies(listed []string, known map[string][]*domain.BindingSite) error {
	seen := make(map[string]struct{}, len(listed))
	var unknown []string
	for _, sp := range listed {
		seen[sp] = struct{}{}
		if _, ok := known[sp]; !ok {
			unknown = append(unknown, sp)
		}
	}
	var missing []string
	for sp := range known {
		if _, ok := seen[sp]; !ok {
			missing = append(missing, sp)
		}
	}
	sort.Strings(missing)
	switch {
	case len(unknown) > 0:
		return fmt.Errorf("%w: species %v are not part of the run", domain.ErrInvalidCorrespondence, unknown)
	case len(missing) > 0:
		return fmt.Errorf("%w: species %v missing", domain.ErrInvalidCorrespondence, missing)
	}
	return nil
}

// MarkAmbiguous returns sites with FlagAmbiguousMatch added to every site
// contested by a warning. Flagged sites are copies; the others are shared
// with sites, which is left unchanged.
func MarkAmbiguous(sites map[string][]*domain.BindingSite, warnings []domain.AmbiguityWarning) map[string][]*domain.BindingSite {
	if len(warnings) == 0 {
		return sites
	}
	contested := make(map[string]map[int]bool)
	for _, w := range warnings {
		if contested[w.Species] == nil {
			contested[w.Species] = make(map[int]bool)
		}
		contested[w.Species][w.SiteID] = true
	}

	out := make(map[string][]*domain.BindingSite, len(sites))
	for sp, ss := range sites {
		ids := contested[sp]
		if len(ids) == 0 {
			out[sp] = ss
			continue
		}
		marked := make([]*domain.BindingSite, len(ss))
		for i, s := range ss {
			if !ids[s.SiteID] || domain.HasFlag(s.Flags, domain.FlagAmbiguousMatch) {
				marked[i] = s
				continue
			}
			c := *s
			c.Flags = append(append([]domain.Flag(nil), s.Flags...), domain.FlagAmbiguousMatch)
			marked[i] = &c
		}
		out[sp] = marked
	}
	return out
}

// KnownSiteIDs lists site ids per species.
func KnownSiteIDs(sites map[string][]*domain.BindingSite) map[string][]int {
	out := make(map[string][]int, len(sites))
	for sp, ss := range sites {
		ids := make([]int, len(ss))
		for i, s := range ss {
			ids[i] = s.SiteID
		}
		sort.Ints(ids)
		out[sp] = ids
	}
	return out
}

// ResidenceComparison tabulates residence_time_mean per species for every
// shared location. Missing sites and insufficient sites have no value.
func ResidenceComparison(entry *domain.CorrespondenceEntry, kinetics map[string][]*domain.SiteKinetics) []domain.ResidenceComparisonRow {
	index := make(map[string]map[int]*domain.SiteKinetics, len(kinetics))
	for sp, ks := range kinetics {
		m := make(map[int]*domain.SiteKinetics, len(ks))
		for _, k := range ks {
			m[k.SiteID] = k
		}
		index[sp] = m
	}

	rows := make([]domain.ResidenceComparisonRow, entry.Locations)
	for loc := 0; loc < entry.Locations; loc++ {
		row := domain.ResidenceComparisonRow{
			Location:      loc,
			SiteIDs:       make(map[string]int, len(entry.Species)),
			ResidenceTime: make(map[string]*float64, len(entry.Species)),
		}
		for _, sp := range entry.Species {
			id := entry.SiteAt(sp, loc)
			row.SiteIDs[sp] = id
			if id == domain.NoSite {
				row.ResidenceTime[sp] = nil
				continue
			}
			if k := index[sp][id]; k != nil && !k.Insufficient() {
				v := k.ResidenceTimeMean
				row.ResidenceTime[sp] = &v
			} else {
				row.ResidenceTime[sp] = nil
			}
		}
		rows[loc] = row
	}
	return rows
}
