package cutoff

import (
	"lipid-site-lab/internal/contact"
	"lipid-site-lab/internal/domain"
)

// DensityOptions configures the minimum-distance density.
type DensityOptions struct {
	Threshold     float64 // nm, a frame counts as close when d < Threshold
	ContactFrames int     // close frames required for a pair to contribute
	Bins          int
	MaxDistance   float64 // nm, histogram range is [0, MaxDistance)
}

// DefaultDensityOptions returns the defaults used by the cutoff command.
func DefaultDensityOptions() DensityOptions {
	return DensityOptions{Threshold: 0.65, ContactFrames: 10, Bins: 150, MaxDistance: 1.5}
}

// Density histograms per-frame minimum distances of residue/instance pairs
// that come close for long enough within a replicate.
type Density struct {
	species []string
	opts    DensityOptions
	width   float64

	pairHist  map[string][]int32 // per pair, Bins wide, current replicate
	nearCount map[string][]int   // per pair, current replicate
	total     map[string][]int   // per species, summed over contributing pairs
}

// NewDensity allocates histograms for every residue/instance pair.
func NewDensity(topo *domain.Topology, species []string, opts DensityOptions) *Density {
	if opts.Bins <= 0 || opts.MaxDistance <= 0 {
		d := DefaultDensityOptions()
		opts.Bins, opts.MaxDistance = d.Bins, d.MaxDistance
	}
	dn := &Density{
		species:   species,
		opts:      opts,
		width:     opts.MaxDistance / float64(opts.Bins),
		pairHist:  make(map[string][]int32, len(species)),
		nearCount: make(map[string][]int, len(species)),
		total:     make(map[string][]int, len(species)),
	}
	for _, sp := range species {
		n := len(topo.Residues) * len(topo.Instances[sp])
		dn.pairHist[sp] = make([]int32, n*opts.Bins)
		dn.nearCount[sp] = make([]int, n)
		dn.total[sp] = make([]int, opts.Bins)
	}
	return dn
}

// BeginReplicate clears the per-pair state.
func (d *Density) BeginReplicate() {
	for _, sp := range d.species {
		clear(d.pairHist[sp])
		clear(d.nearCount[sp])
	}
}

// Observe adds one frame of distances.
func (d *Density) Observe(mats map[string]*contact.Matrix) {
	for _, sp := range d.species {
		hist := d.pairHist[sp]
		near := d.nearCount[sp]
		for i, v := range mats[sp].D {
			if v < d.opts.Threshold {
				near[i]++
			}
			if b := int(v / d.width); b >= 0 && b < d.opts.Bins {
				hist[i*d.opts.Bins+b]++
			}
		}
	}
}

// EndReplicate folds the pairs that passed the contact-frame requirement
// into the species totals.
func (d *Density) EndReplicate() {
	bins := d.opts.Bins
	for _, sp := range d.species {
		hist := d.pairHist[sp]
		total := d.total[sp]
		for i, n := range d.nearCount[sp] {
			if n < d.opts.ContactFrames {
				continue
			}
			row := hist[i*bins : (i+1)*bins]
			for b, c := range row {
				total[b] += int(c)
			}
		}
	}
}

// Bins returns the normalized density per species. A species with no
// contributing pair has every density zero.
func (d *Density) Bins() map[string][]domain.DistanceBin {
	out := make(map[string][]domain.DistanceBin, len(d.species))
	for _, sp := range d.species {
		total := d.total[sp]
		var n int
		for _, c := range total {
			n += c
		}
		bins := make([]domain.DistanceBin, len(total))
		for b, c := range total {
			bins[b] = domain.DistanceBin{
				Species: sp,
				Center:  (float64(b) + 0.5) * d.width,
				Count:   c,
			}
			if n > 0 {
				bins[b].Density = float64(c) / (float64(n) * d.width)
			}
		}
		out[sp] = bins
	}
	return out
}
