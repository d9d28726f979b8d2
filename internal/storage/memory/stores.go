package memory

import "lipid-site-lab/internal/storage"

// NewStores returns a full set of in-memory stores.
func NewStores() storage.Stores {
	return storage.Stores{
		Runs:           NewRunStore(),
		Sites:          NewSiteStore(),
		Kinetics:       NewKineticsStore(),
		Rankings:       NewRankingStore(),
		Correspondence: NewCorrespondenceStore(),
		Intervals:      NewIntervalStore(),
		Cutoffs:        NewCutoffStore(),
	}
}
