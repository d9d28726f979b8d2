// Package screening ranks binding sites by residence time and kinetic
// consistency.
package screening

import (
	"math"
	"sort"

	"lipid-site-lab/internal/domain"
)

// Criteria decides which sites are flagged unreliable. A site is unreliable
// when delta_k_off/k_off_fit exceeds MaxDeltaRatio, when its fit R² is below
// MinR2, or when only the reduced fit model was available.
type Criteria struct {
	MaxDeltaRatio float64
	MinR2         float64
}

// Rank orders sites by residence_time_mean descending, then delta_k_off
// ascending, then fit R² descending, then site id ascending. Sites with
// insufficient data come last. Inputs are not modified.
func Rank(kinetics []*domain.SiteKinetics, c Criteria) []domain.RankedSite {
	sorted := make([]*domain.SiteKinetics, len(kinetics))
	copy(sorted, kinetics)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Insufficient() != b.Insufficient() {
			return !a.Insufficient()
		}
		if a.ResidenceTimeMean != b.ResidenceTimeMean {
			return a.ResidenceTimeMean > b.ResidenceTimeMean
		}
		if da, db := valueOr(a.DeltaKOff, inf), valueOr(b.DeltaKOff, inf); da != db {
			return da < db
		}
		if ra, rb := valueOr(a.FitR2, -inf), valueOr(b.FitR2, -inf); ra != rb {
			return ra > rb
		}
		return a.SiteID < b.SiteID
	})

	out := make([]domain.RankedSite, len(sorted))
	for i, k := range sorted {
		r := domain.RankedSite{
			Rank:     i + 1,
			SiteID:   k.SiteID,
			Species:  k.Species,
			Kinetics: k,
			Flags:    append([]domain.Flag(nil), k.Flags...),
		}
		if !k.Insufficient() {
			r.Flags, r.Unreliable = assess(k, c, r.Flags)
		}
		out[i] = r
	}
	return out
}

func assess(k *domain.SiteKinetics, c Criteria, flags []domain.Flag) ([]domain.Flag, bool) {
	unreliable := domain.HasFlag(flags, domain.FlagFitReducedModel) || domain.HasFlag(flags, domain.FlagFitFailed)
	if k.KOffFit == nil || k.DeltaKOff == nil {
		unreliable = true
	} else if *k.KOffFit > 0 && *k.DeltaKOff / *k.KOffFit > c.MaxDeltaRatio {
		flags = append(flags, domain.FlagUnreliableKOff)
		unreliable = true
	}
	if k.FitR2 == nil || *k.FitR2 < c.MinR2 {
		flags = append(flags, domain.FlagLowFitQuality)
		unreliable = true
	}
	return flags, unreliable
}

var inf = math.Inf(1)

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
