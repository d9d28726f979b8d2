package clickhouse

import (
	"context"
	"fmt"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// CutoffStore implements storage.CutoffStore using ClickHouse.
type CutoffStore struct {
	conn *Conn
}

// NewCutoffStore creates a new CutoffStore.
func NewCutoffStore(conn *Conn) *CutoffStore {
	return &CutoffStore{conn: conn}
}

var _ storage.CutoffStore = (*CutoffStore)(nil)

// InsertBulk adds scan rows atomically. Fails entire batch on any duplicate.
func (s *CutoffStore) InsertBulk(ctx context.Context, runID string, rows []domain.CutoffResult) error {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.Species == "" || r.Lower > r.Upper {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%g|%g", r.Species, r.Lower, r.Upper)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// ReplacingMergeTree would collapse a re-insert; keep append-only semantics
	for _, r := range rows {
		exists, err := s.exists(ctx, runID, r)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO cutoff_scan (
			run_id, species, lower_nm, upper_nm, num_sites, duration_mean, contacting_residues
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			runID, r.Species, r.Lower, r.Upper,
			uint32(r.NumSites), r.DurationMean, uint32(r.ContactingResidues),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves scan rows ordered by species, lower, upper ASC.
func (s *CutoffStore) GetByRun(ctx context.Context, runID string) ([]domain.CutoffResult, error) {
	query := `
		SELECT species, lower_nm, upper_nm, num_sites, duration_mean, contacting_residues
		FROM cutoff_scan FINAL
		WHERE run_id = ?
		ORDER BY species ASC, lower_nm ASC, upper_nm ASC
	`
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query cutoff scan: %w", err)
	}
	defer rows.Close()

	return scanCutoffs(rows)
}

func (s *CutoffStore) exists(ctx context.Context, runID string, r domain.CutoffResult) (bool, error) {
	query := `
		SELECT count() FROM cutoff_scan FINAL
		WHERE run_id = ? AND species = ? AND lower_nm = ? AND upper_nm = ?
	`
	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, r.Species, r.Lower, r.Upper).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanCutoffs(rows chRows) ([]domain.CutoffResult, error) {
	var result []domain.CutoffResult
	for rows.Next() {
		var r domain.CutoffResult
		var sites, residues uint32
		if err := rows.Scan(&r.Species, &r.Lower, &r.Upper, &sites, &r.DurationMean, &residues); err != nil {
			return nil, fmt.Errorf("scan cutoff row: %w", err)
		}
		r.NumSites = int(sites)
		r.ContactingResidues = int(residues)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cutoff rows: %w", err)
	}
	return result, nil
}
