package clickhouse

import (
	"context"
	"fmt"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/idhash"
	"lipid-site-lab/internal/storage"
)

// existsChunk bounds the id array bound into one duplicate check.
const existsChunk = 1000

// IntervalStore implements storage.IntervalStore using ClickHouse.
type IntervalStore struct {
	conn *Conn
}

// NewIntervalStore creates a new IntervalStore.
func NewIntervalStore(conn *Conn) *IntervalStore {
	return &IntervalStore{conn: conn}
}

var _ storage.IntervalStore = (*IntervalStore)(nil)

// InsertBulk adds intervals atomically. Fails entire batch on any duplicate.
func (s *IntervalStore) InsertBulk(ctx context.Context, runID string, intervals []domain.ContactInterval) error {
	if len(intervals) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	ids := make([]string, len(intervals))
	seen := make(map[string]struct{}, len(intervals))
	for i, iv := range intervals {
		if iv.Species == "" || !(iv.Start < iv.End) {
			return storage.ErrInvalidInput
		}
		id := idhash.ComputeIntervalID(runID, iv.Species, iv.Replicate, iv.ResidueID, iv.InstanceID, iv.StartFrame)
		if _, exists := seen[id]; exists {
			return storage.ErrDuplicateKey
		}
		seen[id] = struct{}{}
		ids[i] = id
	}

	for start := 0; start < len(ids); start += existsChunk {
		end := min(start+existsChunk, len(ids))
		exists, err := s.anyExists(ctx, runID, ids[start:end])
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO contact_intervals (
			run_id, interval_id, species, replicate, residue_id, instance_id,
			start_ps, end_ps, start_frame, end_frame, censored, min_distance
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, iv := range intervals {
		var censored uint8
		if iv.Censored {
			censored = 1
		}
		err = batch.Append(
			runID, ids[i], iv.Species,
			uint32(iv.Replicate), uint32(iv.ResidueID), uint32(iv.InstanceID),
			iv.Start, iv.End, uint32(iv.StartFrame), uint32(iv.EndFrame),
			censored, iv.MinDistance,
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

// GetBySpecies retrieves the intervals of a species, ordered by
// replicate, residue, instance, start ASC.
func (s *IntervalStore) GetBySpecies(ctx context.Context, runID, species string) ([]domain.ContactInterval, error) {
	query := `
		SELECT
			species, replicate, residue_id, instance_id,
			start_ps, end_ps, start_frame, end_frame, censored, min_distance
		FROM contact_intervals
		WHERE run_id = ? AND species = ?
		ORDER BY replicate ASC, residue_id ASC, instance_id ASC, start_ps ASC
	`
	rows, err := s.conn.Query(ctx, query, runID, species)
	if err != nil {
		return nil, fmt.Errorf("query by species: %w", err)
	}
	defer rows.Close()

	return scanIntervals(rows)
}

// GetByResidue retrieves the intervals of one residue with a species.
func (s *IntervalStore) GetByResidue(ctx context.Context, runID, species string, residue int) ([]domain.ContactInterval, error) {
	query := `
		SELECT
			species, replicate, residue_id, instance_id,
			start_ps, end_ps, start_frame, end_frame, censored, min_distance
		FROM contact_intervals
		WHERE run_id = ? AND species = ? AND residue_id = ?
		ORDER BY replicate ASC, instance_id ASC, start_ps ASC
	`
	rows, err := s.conn.Query(ctx, query, runID, species, uint32(residue))
	if err != nil {
		return nil, fmt.Errorf("query by residue: %w", err)
	}
	defer rows.Close()

	return scanIntervals(rows)
}

func (s *IntervalStore) anyExists(ctx context.Context, runID string, ids []string) (bool, error) {
	query := `SELECT count() FROM contact_intervals WHERE run_id = ? AND has(?, interval_id)`
	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, ids).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanIntervals(rows chRows) ([]domain.ContactInterval, error) {
	var result []domain.ContactInterval
	for rows.Next() {
		var iv domain.ContactInterval
		var replicate, residue, instance, startFrame, endFrame uint32
		var censored uint8
		err := rows.Scan(
			&iv.Species, &replicate, &residue, &instance,
			&iv.Start, &iv.End, &startFrame, &endFrame, &censored, &iv.MinDistance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan interval row: %w", err)
		}
		iv.Replicate = int(replicate)
		iv.ResidueID = int(residue)
		iv.InstanceID = int(instance)
		iv.StartFrame = int(startFrame)
		iv.EndFrame = int(endFrame)
		iv.Censored = censored == 1
		result = append(result, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interval rows: %w", err)
	}
	return result, nil
}
