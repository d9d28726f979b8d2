package memory

import (
	"context"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

type storedKinetics struct {
	runID string
	row   *domain.SiteKinetics
}

// KineticsStore is an in-memory implementation of storage.KineticsStore.
type KineticsStore struct {
	mu   sync.RWMutex
	data map[string]storedKinetics // keyed by run|species|site
}

// NewKineticsStore creates a new in-memory kinetics store.
func NewKineticsStore() *KineticsStore {
	return &KineticsStore{data: make(map[string]storedKinetics)}
}

// InsertBulk adds kinetics rows atomically.
func (s *KineticsStore) InsertBulk(_ context.Context, runID string, rows []*domain.SiteKinetics) error {
	if len(rows) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, k := range rows {
		if k == nil || k.Species == "" {
			return storage.ErrInvalidInput
		}
		key := siteKey(runID, k.Species, k.SiteID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, k := range rows {
		s.data[siteKey(runID, k.Species, k.SiteID)] = storedKinetics{runID: runID, row: copyKinetics(k)}
	}
	return nil
}

// GetByRun retrieves the kinetics of a species in a run, ordered by site_id ASC.
func (s *KineticsStore) GetByRun(_ context.Context, runID, species string) ([]*domain.SiteKinetics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SiteKinetics
	for _, st := range s.data {
		if st.runID == runID && st.row.Species == species {
			result = append(result, copyKinetics(st.row))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SiteID < result[j].SiteID })
	return result, nil
}

var _ storage.KineticsStore = (*KineticsStore)(nil)
