package contact

import (
	"context"
	"fmt"
	"math"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/workpool"
)

// MinImageDistance returns the distance between a and b under the minimum
// image convention. Box components <= 0 are treated as non-periodic.
func MinImageDistance(a, b domain.Vec3, box domain.Box) float64 {
	return math.Sqrt(minImageDist2(a, b, box))
}

func minImageDist2(a, b domain.Vec3, box domain.Box) float64 {
	var sum float64
	for k := 0; k < 3; k++ {
		d := a[k] - b[k]
		if box[k] > 0 {
			d -= box[k] * math.Round(d/box[k])
		}
		sum += d * d
	}
	return sum
}

// Matrix holds the minimum distance between every protein residue and every
// instance of one species for one frame, row-major by residue.
type Matrix struct {
	Residues  int
	Instances int
	D         []float64
}

// At returns the distance for residue r and instance i.
func (m *Matrix) At(r, i int) float64 {
	return m.D[r*m.Instances+i]
}

func newMatrix(residues, instances int) *Matrix {
	return &Matrix{Residues: residues, Instances: instances, D: make([]float64, residues*instances)}
}

// DistanceComputer fills per-species distance matrices for frames of one
// topology, splitting residues across workers.
type DistanceComputer struct {
	topo    *domain.Topology
	species []string
	workers int
	chunks  []workpool.Range
}

// NewDistanceComputer prepares matrices for the given species.
func NewDistanceComputer(topo *domain.Topology, species []string, workers int) *DistanceComputer {
	w := workpool.Size(workers)
	return &DistanceComputer{
		topo:    topo,
		species: species,
		workers: w,
		chunks:  workpool.Chunks(len(topo.Residues), w),
	}
}

// NewMatrices allocates one matrix per species, reusable across frames.
func (c *DistanceComputer) NewMatrices() map[string]*Matrix {
	out := make(map[string]*Matrix, len(c.species))
	for _, sp := range c.species {
		out[sp] = newMatrix(len(c.topo.Residues), len(c.topo.Instances[sp]))
	}
	return out
}

// Compute fills dst for frame f.
func (c *DistanceComputer) Compute(ctx context.Context, f *domain.Frame, dst map[string]*Matrix) error {
	if len(f.Coords) != len(c.topo.Atoms) {
		return fmt.Errorf("frame %d has %d coordinates, topology has %d atoms", f.Index, len(f.Coords), len(c.topo.Atoms))
	}
	return workpool.Run(ctx, c.workers, len(c.chunks), func(_ context.Context, i int) error {
		ch := c.chunks[i]
		for _, sp := range c.species {
			m := dst[sp]
			instances := c.topo.Instances[sp]
			for r := ch.Lo; r < ch.Hi; r++ {
				res := c.topo.Residues[r]
				row := m.D[r*m.Instances : (r+1)*m.Instances]
				for ii, inst := range instances {
					row[ii] = minAtomDistance(f, res.Atoms, inst.Atoms)
				}
			}
		}
		return nil
	})
}

// ResidueDistance returns the minimum distance between residue r and
// instance inst of species sp in frame f.
func (c *DistanceComputer) ResidueDistance(f *domain.Frame, r int, sp string, inst int) float64 {
	return minAtomDistance(f, c.topo.Residues[r].Atoms, c.topo.Instances[sp][inst].Atoms)
}

func minAtomDistance(f *domain.Frame, a, b []int) float64 {
	best := math.Inf(1)
	for _, i := range a {
		for _, j := range b {
			if d2 := minImageDist2(f.Coords[i], f.Coords[j], f.Box); d2 < best {
				best = d2
			}
		}
	}
	return math.Sqrt(best)
}
