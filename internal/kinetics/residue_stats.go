package kinetics

import (
	"sort"

	"lipid-site-lab/internal/domain"
)

// ResidueStats computes per-residue contact statistics for one species.
// Residues without intervals are omitted. Output is ordered by residue.
func ResidueStats(species string, intervals []domain.ContactInterval, spans []domain.ReplicateSpan, unit domain.TimeUnit) []domain.ResidueStats {
	var total float64
	for _, s := range spans {
		total += s.Length()
	}

	type acc struct {
		n     int
		sum   float64
		byRep map[int][][2]float64
	}
	per := make(map[int]*acc)
	for _, iv := range intervals {
		a := per[iv.ResidueID]
		if a == nil {
			a = &acc{byRep: make(map[int][][2]float64)}
			per[iv.ResidueID] = a
		}
		a.n++
		a.sum += iv.Duration()
		a.byRep[iv.Replicate] = append(a.byRep[iv.Replicate], [2]float64{iv.Start, iv.End})
	}

	out := make([]domain.ResidueStats, 0, len(per))
	for r, a := range per {
		var covered float64
		for _, ivs := range a.byRep {
			covered += unionLength(ivs)
		}
		st := domain.ResidueStats{
			ResidueID:    r,
			Species:      species,
			NumContacts:  a.n,
			DurationMean: unit.FromPicoseconds(a.sum / float64(a.n)),
		}
		if total > 0 {
			st.Occupancy = covered / total
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResidueID < out[j].ResidueID })
	return out
}
