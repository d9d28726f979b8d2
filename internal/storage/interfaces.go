package storage

import (
	"context"

	"lipid-site-lab/internal/domain"
)

// RunStore provides access to analysis_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Run) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.Run, error)

	// List retrieves all runs, newest first.
	List(ctx context.Context) ([]*domain.Run, error)
}

// SiteStore provides access to binding_sites storage. Site intervals are
// not stored here; see IntervalStore.
type SiteStore interface {
	// InsertBulk adds the sites of a run atomically. Fails entire batch on
	// duplicate (run_id, species, site_id).
	InsertBulk(ctx context.Context, runID string, sites []*domain.BindingSite) error

	// GetByRun retrieves the sites of a species in a run, ordered by site_id ASC.
	GetByRun(ctx context.Context, runID, species string) ([]*domain.BindingSite, error)

	// GetByKey retrieves every stored site with the given content key,
	// across runs, ordered by run_id ASC.
	GetByKey(ctx context.Context, key string) ([]*domain.BindingSite, error)
}

// KineticsStore provides access to site_kinetics storage.
type KineticsStore interface {
	// InsertBulk adds kinetics rows atomically. Fails entire batch on
	// duplicate (run_id, species, site_id).
	InsertBulk(ctx context.Context, runID string, rows []*domain.SiteKinetics) error

	// GetByRun retrieves the kinetics of a species in a run, ordered by site_id ASC.
	GetByRun(ctx context.Context, runID, species string) ([]*domain.SiteKinetics, error)
}

// RankingStore provides access to site_rankings storage. Stored rows carry
// no kinetics; join with KineticsStore by site id.
type RankingStore interface {
	// InsertBulk adds a species ranking atomically. Fails entire batch on
	// duplicate (run_id, species, site_id).
	InsertBulk(ctx context.Context, runID string, rows []domain.RankedSite) error

	// GetByRun retrieves a species ranking, ordered by rank ASC.
	GetByRun(ctx context.Context, runID, species string) ([]domain.RankedSite, error)
}

// CorrespondenceStore provides access to site_correspondence storage.
type CorrespondenceStore interface {
	// Insert stores the final correspondence of a run. Returns ErrDuplicateKey
	// if the run already has one.
	Insert(ctx context.Context, runID string, e *domain.CorrespondenceEntry) error

	// GetByRun retrieves the correspondence of a run. Returns ErrNotFound if not exists.
	GetByRun(ctx context.Context, runID string) (*domain.CorrespondenceEntry, error)
}

// IntervalStore provides access to contact_intervals storage.
type IntervalStore interface {
	// InsertBulk adds intervals atomically. Fails entire batch on duplicate
	// (run_id, species, replicate, residue, instance, start_frame).
	InsertBulk(ctx context.Context, runID string, intervals []domain.ContactInterval) error

	// GetBySpecies retrieves the intervals of a species, ordered by
	// replicate, residue, instance, start ASC.
	GetBySpecies(ctx context.Context, runID, species string) ([]domain.ContactInterval, error)

	// GetByResidue retrieves the intervals of one residue with a species.
	GetByResidue(ctx context.Context, runID, species string, residue int) ([]domain.ContactInterval, error)
}

// CutoffStore provides access to cutoff_scan storage.
type CutoffStore interface {
	// InsertBulk adds scan rows atomically. Fails entire batch on duplicate
	// (run_id, species, lower, upper).
	InsertBulk(ctx context.Context, runID string, rows []domain.CutoffResult) error

	// GetByRun retrieves scan rows ordered by species, lower, upper ASC.
	GetByRun(ctx context.Context, runID string) ([]domain.CutoffResult, error)
}

// Stores groups every store used by a run. Nil members are skipped.
type Stores struct {
	Runs           RunStore
	Sites          SiteStore
	Kinetics       KineticsStore
	Rankings       RankingStore
	Correspondence CorrespondenceStore
	Intervals      IntervalStore
	Cutoffs        CutoffStore
}
