package reporting

import (
	"fmt"
	"strings"
	"time"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/kinetics"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Binding Site Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	unit := domain.TimeUnitMicrosecond
	if r.Run != nil {
		unit = r.Run.TimeUnit
		sb.WriteString("## Run\n\n")
		sb.WriteString("| Parameter | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Species | %s |\n", strings.Join(r.Run.Species, ", ")))
		sb.WriteString(fmt.Sprintf("| Cutoffs (nm) | %.3f / %.3f |\n", r.Run.Lower, r.Run.Upper))
		sb.WriteString(fmt.Sprintf("| Min site size | %d |\n", r.Run.MinSite))
		sb.WriteString(fmt.Sprintf("| Replicates | %d |\n", r.Run.Replicates))
		sb.WriteString(fmt.Sprintf("| Time unit | %s |\n", r.Run.TimeUnit))
		if r.Poses > 0 {
			sb.WriteString(fmt.Sprintf("| Poses exported | %d |\n", r.Poses))
		}
		sb.WriteString("\n")
	}

	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	for i := range r.Species {
		renderSpecies(&sb, &r.Species[i], unit)
	}

	if r.Correspondence != nil {
		renderCorrespondence(&sb, r, unit)
	}

	if len(r.Cutoffs) > 0 {
		sb.WriteString("## Cutoff Scan\n\n")
		sb.WriteString(fmt.Sprintf("| Species | Lower | Upper | Sites | Mean duration (%s) | Contacting residues |\n", unit))
		sb.WriteString("|---------|-------|-------|-------|--------------------|---------------------|\n")
		for _, c := range r.Cutoffs {
			sb.WriteString(fmt.Sprintf("| %s | %.3f | %.3f | %d | %.4f | %d |\n",
				c.Species, c.Lower, c.Upper, c.NumSites, c.DurationMean, c.ContactingResidues))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderSpecies(sb *strings.Builder, s *SpeciesSection, unit domain.TimeUnit) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", s.Species))
	if domain.HasFlag(s.Flags, domain.FlagClusteringDegenerate) || len(s.Sites) == 0 {
		sb.WriteString(fmt.Sprintf("**%s**: no residue group reached the minimum site size.\n\n", domain.FlagClusteringDegenerate))
		return
	}
	sb.WriteString(fmt.Sprintf("Sites: %d | Background residues: %d | Modularity: %.4f\n\n",
		len(s.Sites), len(s.Background), s.Modularity))

	sb.WriteString("### Ranking\n\n")
	sb.WriteString(fmt.Sprintf("| Rank | Site | Residues | Residence (%s) | Occupancy | k_off fit | k_off boot | R² | Flags |\n", unit))
	sb.WriteString("|------|------|----------|----------------|-----------|-----------|------------|----|-------|\n")
	for _, rk := range s.Ranking {
		k := rk.Kinetics
		if k == nil {
			k = s.KineticsFor(rk.SiteID)
		}
		size := 0
		for _, site := range s.Sites {
			if site.SiteID == rk.SiteID {
				size = site.Size()
			}
		}
		if k == nil {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | NA | NA | NA | NA | NA | %s |\n",
				rk.Rank, rk.SiteID, size, flagCell(rk.Flags)))
			continue
		}
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %.4f | %.4f | %s | %s | %s | %s |\n",
			rk.Rank, rk.SiteID, size, k.ResidenceTimeMean, k.Occupancy,
			kinetics.FormatRate(k.KOffFit), kinetics.FormatRate(k.KOffBootstrap),
			kinetics.FormatRate(k.FitR2), flagCell(rk.Flags)))
	}
	sb.WriteString("\n")

	if len(s.Sufficiency) == 0 {
		return
	}
	var failing []int
	for _, rk := range s.Ranking {
		if res, ok := s.Sufficiency[rk.SiteID]; ok && !res.AllPass {
			failing = append(failing, rk.SiteID)
		}
	}
	if len(failing) == 0 {
		return
	}
	sb.WriteString("### Sufficiency Checks\n\n")
	sb.WriteString("| Site | Check | Threshold | Actual | Status |\n")
	sb.WriteString("|------|-------|-----------|--------|--------|\n")
	for _, id := range failing {
		for _, check := range s.Sufficiency[id].Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				id, check.Name, check.Threshold, check.Actual, status))
		}
	}
	sb.WriteString("\n")
}

func renderCorrespondence(sb *strings.Builder, r *Report, unit domain.TimeUnit) {
	e := r.Correspondence
	sb.WriteString("## Cross-Species Correspondence\n\n")
	sb.WriteString(fmt.Sprintf("Source: %s | Locations: %d | Shared: %d\n\n", e.Source, e.Locations, e.Shared()))

	sb.WriteString("| Location |")
	sep := "|----------|"
	for _, sp := range e.Species {
		sb.WriteString(fmt.Sprintf(" %s | %s residence (%s) |", sp, sp, unit))
		sep += "------|------|"
	}
	sb.WriteString("\n" + sep + "\n")
	for loc := 0; loc < e.Locations; loc++ {
		sb.WriteString(fmt.Sprintf("| %d |", loc))
		var row *domain.ResidenceComparisonRow
		if loc < len(r.Comparison) {
			row = &r.Comparison[loc]
		}
		for _, sp := range e.Species {
			site := "NA"
			if id := e.SiteAt(sp, loc); id != domain.NoSite {
				site = fmt.Sprintf("%d", id)
			}
			rt := "NA"
			if row != nil {
				rt = kinetics.FormatRate(row.ResidenceTime[sp])
			}
			sb.WriteString(fmt.Sprintf(" %s | %s |", site, rt))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(e.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("### %s\n\n", domain.FlagAmbiguousMatch))
		for _, w := range e.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w.String()))
		}
		sb.WriteString("\n")
	}
}

func flagCell(flags []domain.Flag) string {
	if len(flags) == 0 {
		return "-"
	}
	return joinFlags(flags)
}
