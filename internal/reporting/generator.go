package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lipid-site-lab/internal/correspondence"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// Generator rebuilds reports of persisted runs.
type Generator struct {
	stores storage.Stores
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(stores storage.Stores) *Generator {
	return &Generator{
		stores: stores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a stored run and everything persisted for it. Stores that
// are nil are skipped. Sufficiency details and poses are not persisted and
// stay empty.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.stores.Runs == nil {
		return nil, fmt.Errorf("generate report: %w: no run store", storage.ErrInvalidInput)
	}
	run, err := g.stores.Runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	r := &Report{GeneratedAt: g.now(), Run: run}
	kin := make(map[string][]*domain.SiteKinetics, len(run.Species))

	for _, sp := range run.Species {
		s := SpeciesSection{Species: sp}

		if g.stores.Sites != nil {
			if s.Sites, err = g.stores.Sites.GetByRun(ctx, runID, sp); err != nil {
				return nil, fmt.Errorf("load sites %s: %w", sp, err)
			}
			if len(s.Sites) == 0 {
				s.Flags = append(s.Flags, domain.FlagClusteringDegenerate)
			}
		}
		if g.stores.Kinetics != nil {
			if s.Kinetics, err = g.stores.Kinetics.GetByRun(ctx, runID, sp); err != nil {
				return nil, fmt.Errorf("load kinetics %s: %w", sp, err)
			}
			kin[sp] = s.Kinetics
		}
		if g.stores.Rankings != nil {
			if s.Ranking, err = g.stores.Rankings.GetByRun(ctx, runID, sp); err != nil {
				return nil, fmt.Errorf("load ranking %s: %w", sp, err)
			}
			for i := range s.Ranking {
				s.Ranking[i].Kinetics = s.KineticsFor(s.Ranking[i].SiteID)
			}
		}
		if g.stores.Intervals != nil {
			if s.Intervals, err = g.stores.Intervals.GetBySpecies(ctx, runID, sp); err != nil {
				return nil, fmt.Errorf("load intervals %s: %w", sp, err)
			}
		}
		r.Species = append(r.Species, s)
	}

	if g.stores.Correspondence != nil {
		e, err := g.stores.Correspondence.GetByRun(ctx, runID)
		switch {
		case err == nil:
			r.Correspondence = e
			r.Comparison = correspondence.ResidenceComparison(e, kin)
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, fmt.Errorf("load correspondence: %w", err)
		}
	}

	if g.stores.Cutoffs != nil {
		if r.Cutoffs, err = g.stores.Cutoffs.GetByRun(ctx, runID); err != nil {
			return nil, fmt.Errorf("load cutoff scan: %w", err)
		}
	}
	return r, nil
}
