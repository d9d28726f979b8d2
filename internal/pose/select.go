// Package pose selects representative bound conformations for binding
// sites and writes them as structure files.
package pose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/trajectory"
)

// Options configures pose selection.
type Options struct {
	TopN    int     // poses kept per site
	Upper   float64 // nm, a site residue counts as in contact at d <= Upper
	Workers int
	Logger  *log.Logger
}

type siteRef struct {
	species string
	site    *domain.BindingSite
}

// candidate is a scored (site, instance, frame) before coordinates are copied.
type candidate struct {
	replicate int
	frame     int
	instance  int
	contacts  int
	distSum   float64
}

// better orders candidates: more contacts, then smaller distance sum, then
// earlier replicate and frame, then lower instance.
func better(a, b candidate) bool {
	if a.contacts != b.contacts {
		return a.contacts > b.contacts
	}
	if a.distSum != b.distSum {
		return a.distSum < b.distSum
	}
	if a.replicate != b.replicate {
		return a.replicate < b.replicate
	}
	if a.frame != b.frame {
		return a.frame < b.frame
	}
	return a.instance < b.instance
}

type slot struct {
	cand candidate
	pose domain.Pose
}

// Selector keeps the best TopN poses per site while frames stream past.
type Selector struct {
	topo  *domain.Topology
	opts  Options
	sites []siteRef
	best  [][]slot // per sites index, best first

	proteinAtoms []int
}

// NewSelector prepares a selector over every site of every species.
func NewSelector(topo *domain.Topology, sites map[string][]*domain.BindingSite, species []string, opts Options) *Selector {
	s := &Selector{topo: topo, opts: opts}
	for _, sp := range species {
		for _, site := range sites[sp] {
			s.sites = append(s.sites, siteRef{species: sp, site: site})
		}
	}
	s.best = make([][]slot, len(s.sites))
	for _, r := range topo.Residues {
		s.proteinAtoms = append(s.proteinAtoms, r.Atoms...)
	}
	return s
}

// Observe scores every (site, instance) pair of frame f using the distance
// matrices computed for that frame.
func (s *Selector) Observe(replicate int, f *domain.Frame, mats map[string]*contact.Matrix) {
	if s.opts.TopN <= 0 {
		return
	}
	for si, ref := range s.sites {
		m := mats[ref.species]
		if m == nil {
			continue
		}
		for inst := 0; inst < m.Instances; inst++ {
			c := candidate{replicate: replicate, frame: f.Index, instance: inst}
			for _, r := range ref.site.Residues {
				if d := m.At(r, inst); d <= s.opts.Upper {
					c.contacts++
					c.distSum += d
				}
			}
			if c.contacts == 0 {
				continue
			}
			s.offer(si, c, f)
		}
	}
}

func (s *Selector) offer(si int, c candidate, f *domain.Frame) {
	kept := s.best[si]
	if len(kept) >= s.opts.TopN && !better(c, kept[len(kept)-1].cand) {
		return
	}
	pos := sort.Search(len(kept), func(i int) bool { return better(c, kept[i].cand) })
	entry := slot{cand: c, pose: s.capture(si, c, f)}
	kept = append(kept, slot{})
	copy(kept[pos+1:], kept[pos:])
	kept[pos] = entry
	if len(kept) > s.opts.TopN {
		kept = kept[:s.opts.TopN]
	}
	s.best[si] = kept
}

// capture copies the protein and the instance coordinates, moving the
// instance to the periodic image closest to the site.
func (s *Selector) capture(si int, c candidate, f *domain.Frame) domain.Pose {
	ref := s.sites[si]
	inst := s.topo.Instances[ref.species][c.instance]
	molecule := inst.AllAtoms
	if len(molecule) == 0 {
		molecule = inst.Atoms
	}

	atoms := make([]domain.Atom, 0, len(s.proteinAtoms)+len(molecule))
	coords := make([]domain.Vec3, 0, len(s.proteinAtoms)+len(molecule))
	for _, a := range s.proteinAtoms {
		atoms = append(atoms, s.topo.Atoms[a])
		coords = append(coords, f.Coords[a])
	}

	anchor := s.siteAnchor(ref.site, f)
	shift := imageShift(f.Coords[molecule[0]], anchor, f.Box)
	for _, a := range molecule {
		atoms = append(atoms, s.topo.Atoms[a])
		coords = append(coords, f.Coords[a].Add(shift))
	}

	return domain.Pose{
		Species:    ref.species,
		SiteID:     ref.site.SiteID,
		Replicate:  c.replicate,
		Frame:      c.frame,
		Time:       f.Time,
		InstanceID: c.instance,
		Contacts:   c.contacts,
		DistSum:    c.distSum,
		Atoms:      atoms,
		Coords:     coords,
		Box:        f.Box,
	}
}

func (s *Selector) siteAnchor(site *domain.BindingSite, f *domain.Frame) domain.Vec3 {
	var sum domain.Vec3
	n := 0
	for _, r := range site.Residues {
		for _, a := range s.topo.Residues[r].Atoms {
			sum = sum.Add(f.Coords[a])
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return domain.Vec3{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}
}

// imageShift returns the box translation that brings p closest to anchor.
func imageShift(p, anchor domain.Vec3, box domain.Box) domain.Vec3 {
	var shift domain.Vec3
	for k := 0; k < 3; k++ {
		if box[k] <= 0 {
			continue
		}
		shift[k] = -box[k] * math.Round((p[k]-anchor[k])/box[k])
	}
	return shift
}

// Poses returns the selected poses per species, by site id then rank.
func (s *Selector) Poses() map[string][]domain.Pose {
	out := make(map[string][]domain.Pose)
	for si, ref := range s.sites {
		for rank, sl := range s.best[si] {
			p := sl.pose
			p.Rank = rank + 1
			out[ref.species] = append(out[ref.species], p)
		}
	}
	for sp := range out {
		ps := out[sp]
		sort.SliceStable(ps, func(i, j int) bool {
			if ps[i].SiteID != ps[j].SiteID {
				return ps[i].SiteID < ps[j].SiteID
			}
			return ps[i].Rank < ps[j].Rank
		})
	}
	return out
}

// Select runs a second forward pass over the replicates and returns the
// best poses per site. Replicates whose layout differs from topo fail
// with a *domain.InputDataError.
func Select(ctx context.Context, opener trajectory.Opener, reps []trajectory.Replicate,
	topo *domain.Topology, sites map[string][]*domain.BindingSite, species []string, opts Options) (map[string][]domain.Pose, error) {
	l := logger.Component(opts.Logger, "pose")
	sel := NewSelector(topo, sites, species, opts)
	if opts.TopN <= 0 || len(sel.sites) == 0 {
		return sel.Poses(), nil
	}

	comp := contact.NewDistanceComputer(topo, species, opts.Workers)
	mats := comp.NewMatrices()
	for _, rep := range reps {
		if err := scan(ctx, opener, rep, topo, comp, mats, sel); err != nil {
			return nil, err
		}
		l.Debug("pose pass done", "replicate", rep.Index)
	}
	return sel.Poses(), nil
}

func scan(ctx context.Context, opener trajectory.Opener, rep trajectory.Replicate, topo *domain.Topology,
	comp *contact.DistanceComputer, mats map[string]*contact.Matrix, sel *Selector) error {
	src, err := opener.Open(ctx, rep)
	if err != nil {
		return err
	}
	defer src.Close()
	if n := len(src.Atoms()); n != topo.NumAtoms() {
		return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path,
			Err: fmt.Errorf("%d atoms, topology has %d", n, topo.NumAtoms())}
	}
	for {
		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
		}
		if err := comp.Compute(ctx, f, mats); err != nil {
			return &domain.InputDataError{Replicate: rep.Index, Path: rep.Path, Err: err}
		}
		sel.Observe(rep.Index, f, mats)
	}
}
