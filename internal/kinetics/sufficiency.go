package kinetics

import (
	"fmt"

	"lipid-site-lab/internal/domain"
)

// SufficiencyCheck represents one data sufficiency criterion for a site.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks for one site.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
}

// CheckSufficiency decides whether a site has enough sampling for rate
// estimation. Occupancy and residence times are reported regardless.
func CheckSufficiency(events []domain.SiteEvent, minClosed int) SufficiencyResult {
	result := SufficiencyResult{AllPass: true}

	closed := ClosedCount(events)
	check1 := SufficiencyCheck{
		Name:      "closed_intervals",
		Threshold: fmt.Sprintf(">= %d", minClosed),
		Actual:    fmt.Sprintf("%d", closed),
		Pass:      closed >= minClosed,
	}
	result.Checks = append(result.Checks, check1)
	if !check1.Pass {
		result.AllPass = false
	}

	bound := 0.0
	for _, e := range events {
		bound += e.Duration()
	}
	check2 := SufficiencyCheck{
		Name:      "bound_time",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%.3f ps", bound),
		Pass:      bound > 0,
	}
	result.Checks = append(result.Checks, check2)
	if !check2.Pass {
		result.AllPass = false
	}

	replicates := make(map[int]struct{})
	for _, e := range events {
		replicates[e.Replicate] = struct{}{}
	}
	result.Checks = append(result.Checks, SufficiencyCheck{
		Name:      "replicates_with_events",
		Threshold: "informational",
		Actual:    fmt.Sprintf("%d", len(replicates)),
		Pass:      true,
	})

	return result
}
