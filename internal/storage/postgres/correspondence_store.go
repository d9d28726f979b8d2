package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// CorrespondenceStore implements storage.CorrespondenceStore using PostgreSQL.
// Warnings are not persisted.
type CorrespondenceStore struct {
	pool *Pool
}

// NewCorrespondenceStore creates a new CorrespondenceStore.
func NewCorrespondenceStore(pool *Pool) *CorrespondenceStore {
	return &CorrespondenceStore{pool: pool}
}

var _ storage.CorrespondenceStore = (*CorrespondenceStore)(nil)

// Insert stores the header row and one cell per (location, species).
func (s *CorrespondenceStore) Insert(ctx context.Context, runID string, e *domain.CorrespondenceEntry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(nil); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO site_correspondence (run_id, species_order, locations, source)
		VALUES ($1, $2, $3, $4)
	`, runID, e.Species, e.Locations, e.Source)
	for loc := 0; loc < e.Locations; loc++ {
		for _, sp := range e.Species {
			batch.Queue(`
				INSERT INTO site_correspondence_cells (run_id, location, species, site_id)
				VALUES ($1, $2, $3, $4)
			`, runID, loc, sp, e.SiteAt(sp, loc))
		}
	}
	return sendBatch(ctx, s.pool, batch, "correspondence")
}

// GetByRun retrieves the correspondence of a run. Returns ErrNotFound if not exists.
func (s *CorrespondenceStore) GetByRun(ctx context.Context, runID string) (*domain.CorrespondenceEntry, error) {
	e := &domain.CorrespondenceEntry{Assignments: make(map[string][]int)}
	err := s.pool.QueryRow(ctx, `
		SELECT species_order, locations, source FROM site_correspondence WHERE run_id = $1
	`, runID).Scan(&e.Species, &e.Locations, &e.Source)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get correspondence: %w", err)
	}
	for _, sp := range e.Species {
		seq := make([]int, e.Locations)
		for i := range seq {
			seq[i] = domain.NoSite
		}
		e.Assignments[sp] = seq
	}

	rows, err := s.pool.Query(ctx, `
		SELECT location, species, site_id
		FROM site_correspondence_cells
		WHERE run_id = $1
		ORDER BY location ASC, species ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get correspondence cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var loc, id int
		var sp string
		if err := rows.Scan(&loc, &sp, &id); err != nil {
			return nil, fmt.Errorf("scan correspondence cell: %w", err)
		}
		seq, ok := e.Assignments[sp]
		if !ok || loc < 0 || loc >= len(seq) {
			return nil, errors.New("correspondence cell outside stored layout")
		}
		seq[loc] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate correspondence cells: %w", err)
	}
	return e, nil
}
