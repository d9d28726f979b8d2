package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

// IntervalStore is an in-memory implementation of storage.IntervalStore.
type IntervalStore struct {
	mu   sync.RWMutex
	data map[string][]domain.ContactInterval // keyed by run|species
	keys map[string]struct{}
}

// NewIntervalStore creates a new in-memory interval store.
func NewIntervalStore() *IntervalStore {
	return &IntervalStore{
		data: make(map[string][]domain.ContactInterval),
		keys: make(map[string]struct{}),
	}
}

func intervalKey(runID string, iv domain.ContactInterval) string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%d", runID, iv.Species, iv.Replicate, iv.ResidueID, iv.InstanceID, iv.StartFrame)
}

// InsertBulk adds intervals atomically.
func (s *IntervalStore) InsertBulk(_ context.Context, runID string, intervals []domain.ContactInterval) error {
	if len(intervals) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(intervals))
	for _, iv := range intervals {
		if iv.Species == "" || !(iv.Start < iv.End) {
			return storage.ErrInvalidInput
		}
		key := intervalKey(runID, iv)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, iv := range intervals {
		k := runID + "|" + iv.Species
		s.data[k] = append(s.data[k], iv)
	}
	for key := range batchKeys {
		s.keys[key] = struct{}{}
	}
	return nil
}

// GetBySpecies retrieves the intervals of a species.
func (s *IntervalStore) GetBySpecies(_ context.Context, runID, species string) ([]domain.ContactInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]domain.ContactInterval(nil), s.data[runID+"|"+species]...)
	sortIntervals(result)
	return result, nil
}

// GetByResidue retrieves the intervals of one residue with a species.
func (s *IntervalStore) GetByResidue(_ context.Context, runID, species string, residue int) ([]domain.ContactInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.ContactInterval
	for _, iv := range s.data[runID+"|"+species] {
		if iv.ResidueID == residue {
			result = append(result, iv)
		}
	}
	sortIntervals(result)
	return result, nil
}

func sortIntervals(ivs []domain.ContactInterval) {
	sort.Slice(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Replicate != b.Replicate {
			return a.Replicate < b.Replicate
		}
		if a.ResidueID != b.ResidueID {
			return a.ResidueID < b.ResidueID
		}
		if a.InstanceID != b.InstanceID {
			return a.InstanceID < b.InstanceID
		}
		return a.Start < b.Start
	})
}

var _ storage.IntervalStore = (*IntervalStore)(nil)
