package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// KineticsStore implements storage.KineticsStore using PostgreSQL.
type KineticsStore struct {
	pool *Pool
}

// NewKineticsStore creates a new KineticsStore.
func NewKineticsStore(pool *Pool) *KineticsStore {
	return &KineticsStore{pool: pool}
}

var _ storage.KineticsStore = (*KineticsStore)(nil)

// InsertBulk adds kinetics rows in one transaction.
func (s *KineticsStore) InsertBulk(ctx context.Context, runID string, rows []*domain.SiteKinetics) error {
	if len(rows) == 0 {
		return nil
	}
	query := `
		INSERT INTO site_kinetics (
			run_id, species, site_id, time_unit, num_events, num_closed,
			occupancy, residence_time_mean, residence_time_mode, surface_area,
			fit_model, koff_fit, koff_fast, koff_slow, fit_r2,
			koff_bootstrap, koff_boot_std, delta_koff, flags
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`
	batch := &pgx.Batch{}
	for _, k := range rows {
		batch.Queue(query,
			runID, k.Species, k.SiteID, string(k.TimeUnit), k.NumEvents, k.NumClosed,
			k.Occupancy, k.ResidenceTimeMean, k.ResidenceTimeMode, k.SurfaceArea,
			k.FitModel, k.KOffFit, k.KOffFast, k.KOffSlow, k.FitR2,
			k.KOffBootstrap, k.KOffBootStd, k.DeltaKOff, flagsToText(k.Flags),
		)
	}
	return sendBatch(ctx, s.pool, batch, "site kinetics")
}

// GetByRun retrieves the kinetics of a species in a run, ordered by site_id ASC.
func (s *KineticsStore) GetByRun(ctx context.Context, runID, species string) ([]*domain.SiteKinetics, error) {
	query := `
		SELECT
			species, site_id, time_unit, num_events, num_closed,
			occupancy, residence_time_mean, residence_time_mode, surface_area,
			fit_model, koff_fit, koff_fast, koff_slow, fit_r2,
			koff_bootstrap, koff_boot_std, delta_koff, flags
		FROM site_kinetics
		WHERE run_id = $1 AND species = $2
		ORDER BY site_id ASC
	`
	rows, err := s.pool.Query(ctx, query, runID, species)
	if err != nil {
		return nil, fmt.Errorf("get kinetics by run: %w", err)
	}
	defer rows.Close()

	var result []*domain.SiteKinetics
	for rows.Next() {
		var k domain.SiteKinetics
		var unit string
		var flags []string
		err := rows.Scan(
			&k.Species, &k.SiteID, &unit, &k.NumEvents, &k.NumClosed,
			&k.Occupancy, &k.ResidenceTimeMean, &k.ResidenceTimeMode, &k.SurfaceArea,
			&k.FitModel, &k.KOffFit, &k.KOffFast, &k.KOffSlow, &k.FitR2,
			&k.KOffBootstrap, &k.KOffBootStd, &k.DeltaKOff, &flags,
		)
		if err != nil {
			return nil, fmt.Errorf("scan kinetics row: %w", err)
		}
		k.TimeUnit = domain.TimeUnit(unit)
		k.Flags = textToFlags(flags)
		result = append(result, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinetics rows: %w", err)
	}
	return result, nil
}
