package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/pose"
	"lipid-site-lab/internal/reporting"
)

// export selects representative poses in a second pass, writes them and
// then publishes the report tables. Failures are collected; the run keeps
// whatever was written.
func (o *Orchestrator) export(ctx context.Context, a *analysis, report *reporting.Report) (int, []string, []string) {
	var (
		errs  []string
		names []string
	)
	format := o.cfg.Export.Format

	poses, err := pose.Select(ctx, o.opener, a.reps, a.topo, a.sites, o.cfg.Species, pose.Options{
		TopN:    o.cfg.Export.TopN,
		Upper:   o.cfg.Contact.Upper,
		Workers: o.cfg.Workers,
		Logger:  o.parent,
	})
	if err != nil {
		errs = append(errs, fmt.Sprintf("pose selection: %v", err))
	}

	written := 0
	for _, sp := range o.cfg.Species {
		for _, p := range poses[sp] {
			name := pose.FileName(p, format)
			if err := o.putEncoded(ctx, name, func(buf *bytes.Buffer) error {
				return pose.Write(buf, p, format)
			}); err != nil {
				errs = append(errs, err.Error())
				continue
			}
			written++
			names = append(names, name)
		}
		if !o.cfg.Export.Trajectory {
			continue
		}
		bySite := pose.BySite(poses[sp])
		for _, id := range sortedSiteIDs(bySite) {
			site := bySite[id]
			name := pose.TrajectoryName(sp, id, format)
			if err := o.putEncoded(ctx, name, func(buf *bytes.Buffer) error {
				return pose.WriteTrajectory(buf, site, format)
			}); err != nil {
				errs = append(errs, err.Error())
				continue
			}
			names = append(names, name)
		}
	}
	report.Poses = written
	if o.metrics != nil {
		o.metrics.PosesExported.Add(float64(written))
	}

	published, err := reporting.Publish(ctx, o.sink, report)
	names = append(names, published...)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if o.metrics != nil {
		o.metrics.ArtifactsPublished.Add(float64(len(names)))
	}
	return written, names, errs
}

func (o *Orchestrator) putEncoded(ctx context.Context, name string, encode func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := o.sink.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func sortedSiteIDs(m map[int][]domain.Pose) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
