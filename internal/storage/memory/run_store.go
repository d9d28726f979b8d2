package memory

import (
	"context"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Run
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{data: make(map[string]*domain.Run)}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.Run) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	runCopy := *r
	runCopy.Species = append([]string(nil), r.Species...)
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	runCopy := *r
	runCopy.Species = append([]string(nil), r.Species...)
	return &runCopy, nil
}

// List retrieves all runs, newest first.
func (s *RunStore) List(_ context.Context) ([]*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Run, 0, len(s.data))
	for _, r := range s.data {
		runCopy := *r
		runCopy.Species = append([]string(nil), r.Species...)
		result = append(result, &runCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

var _ storage.RunStore = (*RunStore)(nil)
