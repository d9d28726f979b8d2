package binding

import (
	"sort"

	"lipid-site-lab/internal/domain"
)

// SiteEvents derives site-level binding events: for each instance, the
// union of its intervals on the site's residues. An event is censored when
// any constituent interval is.
func SiteEvents(site *domain.BindingSite, tolerance float64) []domain.SiteEvent {
	events := GroupEvents(site.Intervals, tolerance)
	out := make([]domain.SiteEvent, len(events))
	for i, ev := range events {
		out[i] = domain.SiteEvent{
			Replicate:  ev.Replicate,
			InstanceID: ev.InstanceID,
			Start:      ev.Start,
			End:        ev.End,
			Censored:   ev.Censored,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Replicate != out[j].Replicate {
			return out[i].Replicate < out[j].Replicate
		}
		return out[i].Start < out[j].Start
	})
	return out
}
