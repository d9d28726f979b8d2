package orchestrator

import (
	"context"
	"fmt"
	"time"

	"lipid-site-lab/internal/reporting"
)

// persist writes the run records to every configured store. Nil stores are
// skipped and failures are collected.
func (o *Orchestrator) persist(ctx context.Context, a *analysis, report *reporting.Report) []string {
	var errs []string
	record := func(op string, fn func() error) {
		start := time.Now()
		err := fn()
		if o.metrics != nil {
			o.metrics.RecordDBQuery("store", op, time.Since(start).Seconds(), err)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("persist %s: %v", op, err))
		}
	}

	st := o.stores
	if st.Runs != nil {
		record("runs", func() error { return st.Runs.Insert(ctx, report.Run) })
	}
	for i := range report.Species {
		sec := &report.Species[i]
		if st.Sites != nil && len(sec.Sites) > 0 {
			record("sites/"+sec.Species, func() error { return st.Sites.InsertBulk(ctx, o.runID, sec.Sites) })
		}
		if st.Kinetics != nil && len(sec.Kinetics) > 0 {
			record("kinetics/"+sec.Species, func() error { return st.Kinetics.InsertBulk(ctx, o.runID, sec.Kinetics) })
		}
		if st.Rankings != nil && len(sec.Ranking) > 0 {
			record("rankings/"+sec.Species, func() error { return st.Rankings.InsertBulk(ctx, o.runID, sec.Ranking) })
		}
		if st.Intervals != nil && o.keepIvs && len(a.intervals[sec.Species]) > 0 {
			ivs := a.intervals[sec.Species]
			record("intervals/"+sec.Species, func() error { return st.Intervals.InsertBulk(ctx, o.runID, ivs) })
		}
	}
	if st.Correspondence != nil && report.Correspondence != nil {
		record("correspondence", func() error { return st.Correspondence.Insert(ctx, o.runID, report.Correspondence) })
	}
	return errs
}
