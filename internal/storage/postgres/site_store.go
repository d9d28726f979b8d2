package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// SiteStore implements storage.SiteStore using PostgreSQL.
type SiteStore struct {
	pool *Pool
}

// NewSiteStore creates a new SiteStore.
func NewSiteStore(pool *Pool) *SiteStore {
	return &SiteStore{pool: pool}
}

var _ storage.SiteStore = (*SiteStore)(nil)

// InsertBulk adds the sites of a run in one transaction.
func (s *SiteStore) InsertBulk(ctx context.Context, runID string, sites []*domain.BindingSite) error {
	if len(sites) == 0 {
		return nil
	}
	query := `
		INSERT INTO binding_sites (run_id, species, site_id, site_key, residues, flags)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	batch := &pgx.Batch{}
	for _, site := range sites {
		batch.Queue(query, runID, site.Species, site.SiteID, site.Key,
			intsToInt4(site.Residues), flagsToText(site.Flags))
	}
	return sendBatch(ctx, s.pool, batch, "binding sites")
}

// GetByRun retrieves the sites of a species in a run, ordered by site_id ASC.
func (s *SiteStore) GetByRun(ctx context.Context, runID, species string) ([]*domain.BindingSite, error) {
	query := `
		SELECT species, site_id, site_key, residues, flags
		FROM binding_sites
		WHERE run_id = $1 AND species = $2
		ORDER BY site_id ASC
	`
	rows, err := s.pool.Query(ctx, query, runID, species)
	if err != nil {
		return nil, fmt.Errorf("get sites by run: %w", err)
	}
	defer rows.Close()
	return scanSites(rows)
}

// GetByKey retrieves every stored site with the given content key.
func (s *SiteStore) GetByKey(ctx context.Context, key string) ([]*domain.BindingSite, error) {
	query := `
		SELECT species, site_id, site_key, residues, flags
		FROM binding_sites
		WHERE site_key = $1
		ORDER BY run_id ASC, site_id ASC
	`
	rows, err := s.pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("get sites by key: %w", err)
	}
	defer rows.Close()
	return scanSites(rows)
}

func scanSites(rows pgx.Rows) ([]*domain.BindingSite, error) {
	var sites []*domain.BindingSite
	for rows.Next() {
		var site domain.BindingSite
		var residues []int32
		var flags []string
		if err := rows.Scan(&site.Species, &site.SiteID, &site.Key, &residues, &flags); err != nil {
			return nil, fmt.Errorf("scan site row: %w", err)
		}
		site.Residues = int4ToInts(residues)
		site.Flags = textToFlags(flags)
		sites = append(sites, &site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site rows: %w", err)
	}
	return sites, nil
}
