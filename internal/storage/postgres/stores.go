package postgres

import "lipid-site-lab/internal/storage"

// NewStores returns the relational stores backed by pool. Intervals and
// cutoff rows live in ClickHouse and are left nil.
func NewStores(pool *Pool) storage.Stores {
	return storage.Stores{
		Runs:           NewRunStore(pool),
		Sites:          NewSiteStore(pool),
		Kinetics:       NewKineticsStore(pool),
		Rankings:       NewRankingStore(pool),
		Correspondence: NewCorrespondenceStore(pool),
	}
}
