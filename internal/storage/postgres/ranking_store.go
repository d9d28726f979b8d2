package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// RankingStore implements storage.RankingStore using PostgreSQL.
type RankingStore struct {
	pool *Pool
}

// NewRankingStore creates a new RankingStore.
func NewRankingStore(pool *Pool) *RankingStore {
	return &RankingStore{pool: pool}
}

var _ storage.RankingStore = (*RankingStore)(nil)

// InsertBulk adds a species ranking in one transaction.
func (s *RankingStore) InsertBulk(ctx context.Context, runID string, rows []domain.RankedSite) error {
	if len(rows) == 0 {
		return nil
	}
	query := `
		INSERT INTO site_rankings (run_id, species, site_id, rank, unreliable, flags)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, runID, r.Species, r.SiteID, r.Rank, r.Unreliable, flagsToText(r.Flags))
	}
	return sendBatch(ctx, s.pool, batch, "site rankings")
}

// GetByRun retrieves a species ranking, ordered by rank ASC.
func (s *RankingStore) GetByRun(ctx context.Context, runID, species string) ([]domain.RankedSite, error) {
	query := `
		SELECT species, site_id, rank, unreliable, flags
		FROM site_rankings
		WHERE run_id = $1 AND species = $2
		ORDER BY rank ASC
	`
	rows, err := s.pool.Query(ctx, query, runID, species)
	if err != nil {
		return nil, fmt.Errorf("get rankings by run: %w", err)
	}
	defer rows.Close()

	var result []domain.RankedSite
	for rows.Next() {
		var r domain.RankedSite
		var flags []string
		if err := rows.Scan(&r.Species, &r.SiteID, &r.Rank, &r.Unreliable, &flags); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		r.Flags = textToFlags(flags)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}
	return result, nil
}
