package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.Run) error {
	query := `
		INSERT INTO analysis_runs (
			run_id, created_at_ms, species, lower_nm, upper_nm, min_site, time_unit, replicates
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID,
		r.CreatedAt,
		r.Species,
		r.Lower,
		r.Upper,
		r.MinSite,
		string(r.TimeUnit),
		r.Replicates,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `run_id, created_at_ms, species, lower_nm, upper_nm, min_site, time_unit, replicates`

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE run_id = $1`, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// List retrieves all runs, newest first.
func (s *RunStore) List(ctx context.Context) ([]*domain.Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM analysis_runs ORDER BY created_at_ms DESC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var r domain.Run
	var unit string
	if err := row.Scan(&r.RunID, &r.CreatedAt, &r.Species, &r.Lower, &r.Upper, &r.MinSite, &unit, &r.Replicates); err != nil {
		return nil, err
	}
	r.TimeUnit = domain.TimeUnit(unit)
	return &r, nil
}
