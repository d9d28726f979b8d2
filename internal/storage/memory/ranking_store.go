package memory

import (
	"context"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

type storedRank struct {
	runID string
	row   domain.RankedSite
}

// RankingStore is an in-memory implementation of storage.RankingStore.
type RankingStore struct {
	mu   sync.RWMutex
	data map[string]storedRank // keyed by run|species|site
}

// NewRankingStore creates a new in-memory ranking store.
func NewRankingStore() *RankingStore {
	return &RankingStore{data: make(map[string]storedRank)}
}

// InsertBulk adds a species ranking atomically. Kinetics are not stored.
func (s *RankingStore) InsertBulk(_ context.Context, runID string, rows []domain.RankedSite) error {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.Species == "" || r.Rank < 1 {
			return storage.ErrInvalidInput
		}
		key := siteKey(runID, r.Species, r.SiteID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		r.Kinetics = nil
		r.Flags = copyFlags(r.Flags)
		s.data[siteKey(runID, r.Species, r.SiteID)] = storedRank{runID: runID, row: r}
	}
	return nil
}

// GetByRun retrieves a species ranking, ordered by rank ASC.
func (s *RankingStore) GetByRun(_ context.Context, runID, species string) ([]domain.RankedSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.RankedSite
	for _, st := range s.data {
		if st.runID == runID && st.row.Species == species {
			r := st.row
			r.Flags = copyFlags(r.Flags)
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Rank < result[j].Rank })
	return result, nil
}

var _ storage.RankingStore = (*RankingStore)(nil)
