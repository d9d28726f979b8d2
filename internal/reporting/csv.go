package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"lipid-site-lab/internal/correspondence"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/kinetics"
)

func joinFlags(flags []domain.Flag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ";")
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, " ")
}

// RenderSitesCSV renders the binding sites of a species.
func RenderSitesCSV(sites []*domain.BindingSite) string {
	var sb strings.Builder
	sb.WriteString("species,site_id,site_key,size,residues,flags\n")
	for _, s := range sites {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%d,%s,%s\n",
			s.Species, s.SiteID, s.Key, s.Size(), joinInts(s.Residues), joinFlags(s.Flags)))
	}
	return sb.String()
}

// RenderKineticsCSV renders site kinetics. Times are in unit; rates in 1/unit.
// Rates that were not computed are written as NA.
func RenderKineticsCSV(rows []*domain.SiteKinetics, unit domain.TimeUnit) string {
	var sb strings.Builder
	sb.WriteString("species,site_id,num_events,num_closed,occupancy,")
	sb.WriteString(fmt.Sprintf("residence_time_mean_%s,residence_time_mode_%s,", unit, unit))
	sb.WriteString("surface_area_nm2,fit_model,k_off_fit,k_off_fast,k_off_slow,fit_r2,")
	sb.WriteString("k_off_bootstrap,k_off_boot_std,delta_k_off,flags\n")
	for _, k := range rows {
		model := k.FitModel
		if model == domain.FitModelNone {
			model = "NA"
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			k.Species, k.SiteID, k.NumEvents, k.NumClosed, k.Occupancy,
			k.ResidenceTimeMean, k.ResidenceTimeMode, k.SurfaceArea, model,
			kinetics.FormatRate(k.KOffFit),
			kinetics.FormatRate(k.KOffFast),
			kinetics.FormatRate(k.KOffSlow),
			kinetics.FormatRate(k.FitR2),
			kinetics.FormatRate(k.KOffBootstrap),
			kinetics.FormatRate(k.KOffBootStd),
			kinetics.FormatRate(k.DeltaKOff),
			joinFlags(k.Flags),
		))
	}
	return sb.String()
}

// RenderRankingCSV renders a ranking, best site first.
func RenderRankingCSV(rows []domain.RankedSite) string {
	var sb strings.Builder
	sb.WriteString("rank,species,site_id,residence_time_mean,delta_k_off,unreliable,flags\n")
	for _, r := range rows {
		mean := "NA"
		delta := "NA"
		if r.Kinetics != nil {
			mean = fmt.Sprintf("%.6f", r.Kinetics.ResidenceTimeMean)
			delta = kinetics.FormatRate(r.Kinetics.DeltaKOff)
		}
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%s,%s,%t,%s\n",
			r.Rank, r.Species, r.SiteID, mean, delta, r.Unreliable, joinFlags(r.Flags)))
	}
	return sb.String()
}

// RenderCorrespondenceCSV renders the correspondence in the format
// accepted back as a user override.
func RenderCorrespondenceCSV(e *domain.CorrespondenceEntry) (string, error) {
	var buf bytes.Buffer
	if err := correspondence.WriteCSV(&buf, e); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderComparisonCSV renders residence times per location side by side.
func RenderComparisonCSV(species []string, rows []domain.ResidenceComparisonRow, unit domain.TimeUnit) string {
	var sb strings.Builder
	sb.WriteString("location")
	for _, sp := range species {
		sb.WriteString(fmt.Sprintf(",%s_site,%s_residence_time_%s", sp, sp, unit))
	}
	sb.WriteString("\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d", r.Location))
		for _, sp := range species {
			site := correspondence.MissingToken
			if id, ok := r.SiteIDs[sp]; ok && id != domain.NoSite {
				site = fmt.Sprintf("%d", id)
			}
			sb.WriteString(fmt.Sprintf(",%s,%s", site, kinetics.FormatRate(r.ResidenceTime[sp])))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderIntervalsCSV renders raw contact intervals. Times are in ps.
func RenderIntervalsCSV(ivs []domain.ContactInterval) string {
	var sb strings.Builder
	sb.WriteString("species,replicate,residue_id,instance_id,start_ps,end_ps,start_frame,end_frame,censored,min_distance_nm\n")
	for _, iv := range ivs {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.3f,%.3f,%d,%d,%t,%.4f\n",
			iv.Species, iv.Replicate, iv.ResidueID, iv.InstanceID,
			iv.Start, iv.End, iv.StartFrame, iv.EndFrame, iv.Censored, iv.MinDistance))
	}
	return sb.String()
}

// RenderResiduesCSV renders per-residue statistics.
func RenderResiduesCSV(rows []domain.ResidueStats, unit domain.TimeUnit) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("species,residue_id,num_contacts,duration_mean_%s,occupancy\n", unit))
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f\n",
			r.Species, r.ResidueID, r.NumContacts, r.DurationMean, r.Occupancy))
	}
	return sb.String()
}

// RenderCutoffCSV renders the cutoff scan.
func RenderCutoffCSV(rows []domain.CutoffResult, unit domain.TimeUnit) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("species,lower_nm,upper_nm,num_sites,duration_mean_%s,contacting_residues\n", unit))
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.3f,%.3f,%d,%.6f,%d\n",
			r.Species, r.Lower, r.Upper, r.NumSites, r.DurationMean, r.ContactingResidues))
	}
	return sb.String()
}

// RenderDensityCSV renders the minimum-distance probability density of
// one species.
func RenderDensityCSV(bins []domain.DistanceBin) string {
	var sb strings.Builder
	sb.WriteString("distance_nm,density,count\n")
	for _, b := range bins {
		sb.WriteString(fmt.Sprintf("%.4f,%.6f,%d\n", b.Center, b.Density, b.Count))
	}
	return sb.String()
}
