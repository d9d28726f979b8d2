// Package kinetics estimates occupancy, residence times, dissociation rates
// and surface areas of binding sites.
package kinetics

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"lipid-site-lab/internal/domain"
)

// ErrNoEvents is returned when a statistic needs at least one event.
var ErrNoEvents = errors.New("no binding events")

// Occupancy returns the fraction of total trajectory time during which at
// least one event is active. Events are attributed to spans by replicate.
func Occupancy(events []domain.SiteEvent, spans []domain.ReplicateSpan) float64 {
	var total float64
	for _, s := range spans {
		total += s.Length()
	}
	if total <= 0 {
		return 0
	}

	byRep := make(map[int][][2]float64)
	for _, e := range events {
		byRep[e.Replicate] = append(byRep[e.Replicate], [2]float64{e.Start, e.End})
	}
	var covered float64
	for _, ivs := range byRep {
		covered += unionLength(ivs)
	}
	return covered / total
}

func unionLength(ivs [][2]float64) float64 {
	if len(ivs) == 0 {
		return 0
	}
	sorted := append([][2]float64(nil), ivs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })

	var total float64
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv[0] <= cur[1] {
			if iv[1] > cur[1] {
				cur[1] = iv[1]
			}
			continue
		}
		total += cur[1] - cur[0]
		cur = iv
	}
	return total + cur[1] - cur[0]
}

// Durations returns event durations converted to unit.
func Durations(events []domain.SiteEvent, unit domain.TimeUnit) []float64 {
	out := make([]float64, len(events))
	for i, e := range events {
		out[i] = unit.FromPicoseconds(e.Duration())
	}
	return out
}

// MeanResidence returns the mean duration. Returns ErrNoEvents on empty input.
func MeanResidence(durations []float64) (float64, error) {
	if len(durations) == 0 {
		return 0, ErrNoEvents
	}
	return stat.Mean(durations, nil), nil
}

// ModeResidence returns the most frequent duration after binning with the
// given width; ties go to the shorter duration. The lower edge of the
// winning bin is returned, which equals the duration itself when durations
// are whole multiples of the frame step.
func ModeResidence(durations []float64, binWidth float64) (float64, error) {
	if len(durations) == 0 {
		return 0, ErrNoEvents
	}
	if binWidth <= 0 {
		return 0, errors.New("bin width must be positive")
	}
	counts := make(map[int64]int)
	for _, d := range durations {
		// relative guard against float noise just below a bin edge
		counts[int64(math.Floor(d/binWidth+1e-9))]++
	}
	var best int64
	bestCount := -1
	for bin, c := range counts {
		if c > bestCount || (c == bestCount && bin < best) {
			best, bestCount = bin, c
		}
	}
	return float64(best) * binWidth, nil
}

// ClosedCount returns the number of events that are not right-censored.
func ClosedCount(events []domain.SiteEvent) int {
	n := 0
	for _, e := range events {
		if !e.Censored {
			n++
		}
	}
	return n
}

// RateMLE is the censored-exponential maximum-likelihood dissociation rate:
// closed events divided by total bound time. Durations are in the report unit.
func RateMLE(durations []float64, censored []bool) (float64, bool) {
	var sum float64
	closed := 0
	for i, d := range durations {
		sum += d
		if !censored[i] {
			closed++
		}
	}
	if sum <= 0 || closed == 0 {
		return 0, false
	}
	return float64(closed) / sum, true
}
