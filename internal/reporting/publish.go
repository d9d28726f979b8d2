package reporting

import (
	"context"
	"fmt"

	"lipid-site-lab/internal/artifacts"
)

// Publish writes every table of the report and report.md to sink.
// Returns the artifact names written, in write order.
func Publish(ctx context.Context, sink artifacts.Sink, r *Report) ([]string, error) {
	unit := r.Run.TimeUnit
	var names []string
	put := func(name, body string) error {
		if err := sink.Put(ctx, name, []byte(body)); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
		names = append(names, name)
		return nil
	}

	for i := range r.Species {
		s := &r.Species[i]
		tables := []struct{ name, body string }{
			{"tables/sites_" + s.Species + ".csv", RenderSitesCSV(s.Sites)},
			{"tables/kinetics_" + s.Species + ".csv", RenderKineticsCSV(s.Kinetics, unit)},
			{"tables/ranking_" + s.Species + ".csv", RenderRankingCSV(s.Ranking)},
			{"tables/residues_" + s.Species + ".csv", RenderResiduesCSV(s.Residues, unit)},
		}
		if len(s.Intervals) > 0 {
			tables = append(tables, struct{ name, body string }{
				"tables/intervals_" + s.Species + ".csv", RenderIntervalsCSV(s.Intervals),
			})
		}
		for _, t := range tables {
			if err := put(t.name, t.body); err != nil {
				return names, err
			}
		}
	}

	if r.Correspondence != nil {
		body, err := RenderCorrespondenceCSV(r.Correspondence)
		if err != nil {
			return names, fmt.Errorf("render correspondence: %w", err)
		}
		if err := put("tables/correspondence.csv", body); err != nil {
			return names, err
		}
		if err := put("tables/residence_comparison.csv", RenderComparisonCSV(r.Correspondence.Species, r.Comparison, unit)); err != nil {
			return names, err
		}
	}

	if len(r.Cutoffs) > 0 {
		if err := put("tables/cutoff_scan.csv", RenderCutoffCSV(r.Cutoffs, unit)); err != nil {
			return names, err
		}
	}
	for _, sp := range r.Run.Species {
		if bins := r.Density[sp]; len(bins) > 0 {
			if err := put("tables/distance_pdf_"+sp+".csv", RenderDensityCSV(bins)); err != nil {
				return names, err
			}
		}
	}

	if err := put("report.md", RenderMarkdown(r)); err != nil {
		return names, err
	}
	return names, nil
}
