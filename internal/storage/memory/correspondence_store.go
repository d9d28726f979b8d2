package memory

import (
	"context"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// CorrespondenceStore is an in-memory implementation of storage.CorrespondenceStore.
type CorrespondenceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CorrespondenceEntry // keyed by run_id
}

// NewCorrespondenceStore creates a new in-memory correspondence store.
func NewCorrespondenceStore() *CorrespondenceStore {
	return &CorrespondenceStore{data: make(map[string]*domain.CorrespondenceEntry)}
}

// Insert stores the final correspondence of a run.
func (s *CorrespondenceStore) Insert(_ context.Context, runID string, e *domain.CorrespondenceEntry) error {
	if runID == "" || e == nil {
		return storage.ErrInvalidInput
	}
	if err := e.Validate(nil); err != nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[runID] = copyEntry(e)
	return nil
}

// GetByRun retrieves the correspondence of a run. Returns ErrNotFound if not exists.
func (s *CorrespondenceStore) GetByRun(_ context.Context, runID string) (*domain.CorrespondenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyEntry(e), nil
}

var _ storage.CorrespondenceStore = (*CorrespondenceStore)(nil)
