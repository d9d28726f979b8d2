package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// CutoffStore is an in-memory implementation of storage.CutoffStore.
type CutoffStore struct {
	mu   sync.RWMutex
	data map[string][]domain.CutoffResult // keyed by run_id
	keys map[string]struct{}
}

// NewCutoffStore creates a new in-memory cutoff store.
func NewCutoffStore() *CutoffStore {
	return &CutoffStore{
		data: make(map[string][]domain.CutoffResult),
		keys: make(map[string]struct{}),
	}
}

func cutoffKey(runID string, r domain.CutoffResult) string {
	return fmt.Sprintf("%s|%s|%g|%g", runID, r.Species, r.Lower, r.Upper)
}

// InsertBulk adds scan rows atomically.
func (s *CutoffStore) InsertBulk(_ context.Context, runID string, rows []domain.CutoffResult) error {
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
		if r.Species == "" || r.Lower > r.Upper {
			return storage.ErrInvalidInput
		}
		key := cutoffKey(runID, r)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	s.data[runID] = append(s.data[runID], rows...)
	for key := range batchKeys {
		s.keys[key] = struct{}{}
	}
	return nil
}

// GetByRun retrieves scan rows ordered by species, lower, upper ASC.
func (s *CutoffStore) GetByRun(_ context.Context, runID string) ([]domain.CutoffResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]domain.CutoffResult(nil), s.data[runID]...)
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		if a.Lower != b.Lower {
			return a.Lower < b.Lower
		}
		return a.Upper < b.Upper
	})
	return result, nil
}

var _ storage.CutoffStore = (*CutoffStore)(nil)
