package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/storage"
)

type storedSite struct {
	runID string
	site  *domain.BindingSite
}

// SiteStore is an in-memory implementation of storage.SiteStore.
type SiteStore struct {
	mu   sync.RWMutex
	data map[string]storedSite // keyed by run|species|site
}

// NewSiteStore creates a new in-memory site store.
func NewSiteStore() *SiteStore {
	return &SiteStore{data: make(map[string]storedSite)}
}

func siteKey(runID, species string, siteID int) string {
	return fmt.Sprintf("%s|%s|%d", runID, species, siteID)
}

// InsertBulk adds the sites of a run atomically.
func (s *SiteStore) InsertBulk(_ context.Context, runID string, sites []*domain.BindingSite) error {
	if len(sites) == 0 {
		return nil
	}
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(sites))
	for _, site := range sites {
		if site == nil || site.Species == "" || site.SiteID < 0 {
			return storage.ErrInvalidInput
		}
		key := siteKey(runID, site.Species, site.SiteID)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, site := range sites {
		s.data[siteKey(runID, site.Species, site.SiteID)] = storedSite{runID: runID, site: copySite(site)}
	}
	return nil
}

// GetByRun retrieves the sites of a species in a run, ordered by site_id ASC.
func (s *SiteStore) GetByRun(_ context.Context, runID, species string) ([]*domain.BindingSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BindingSite
	for _, st := range s.data {
		if st.runID == runID && st.site.Species == species {
			result = append(result, copySite(st.site))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SiteID < result[j].SiteID })
	return result, nil
}

// GetByKey retrieves every stored site with the given content key.
func (s *SiteStore) GetByKey(_ context.Context, key string) ([]*domain.BindingSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		runID string
		site  *domain.BindingSite
	}
	var hits []hit
	for _, st := range s.data {
		if st.site.Key == key {
			hits = append(hits, hit{st.runID, copySite(st.site)})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].runID != hits[j].runID {
			return hits[i].runID < hits[j].runID
		}
		return hits[i].site.SiteID < hits[j].site.SiteID
	})
	result := make([]*domain.BindingSite, len(hits))
	for i, h := range hits {
		result[i] = h.site
	}
	return result, nil
}

var _ storage.SiteStore = (*SiteStore)(nil)
