package kinetics

import (
	"context"
	"math"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/workpool"
)

// SpherePoints returns n near-uniform unit vectors on a golden-section spiral.
func SpherePoints(n int) []domain.Vec3 {
	pts := make([]domain.Vec3, n)
	inc := math.Pi * (3 - math.Sqrt(5))
	off := 2 / float64(n)
	for i := 0; i < n; i++ {
		y := float64(i)*off - 1 + off/2
		r := math.Sqrt(1 - y*y)
		phi := float64(i) * inc
		pts[i] = domain.Vec3{math.Cos(phi) * r, y, math.Sin(phi) * r}
	}
	return pts
}

// SurfaceCalculator computes per-residue solvent accessible surface areas
// of the protein with the Shrake-Rupley method.
type SurfaceCalculator struct {
	topo    *domain.Topology
	atoms   []int     // protein atom indices into frame coordinates
	owner   []int     // residue index of each protein atom
	radii   []float64 // expanded radii (vdW + probe)
	points  []domain.Vec3
	cell    float64
	workers int
}

// NewSurfaceCalculator prepares radii for every protein atom.
func NewSurfaceCalculator(topo *domain.Topology, radii *RadiusTable, probe float64, nPoints, workers int) *SurfaceCalculator {
	s := &SurfaceCalculator{topo: topo, points: SpherePoints(nPoints), workers: workers}
	maxR := 0.0
	for _, res := range topo.Residues {
		for _, a := range res.Atoms {
			r := radii.Radius(topo.Atoms[a]) + probe
			s.atoms = append(s.atoms, a)
			s.owner = append(s.owner, res.Index)
			s.radii = append(s.radii, r)
			if r > maxR {
				maxR = r
			}
		}
	}
	s.cell = 2 * maxR
	if s.cell <= 0 {
		s.cell = 1
	}
	return s
}

type cellKey [3]int

// ResidueAreas returns the accessible area (nm^2) of every residue for one
// frame.
func (s *SurfaceCalculator) ResidueAreas(ctx context.Context, coords []domain.Vec3) ([]float64, error) {
	pos := make([]domain.Vec3, len(s.atoms))
	grid := make(map[cellKey][]int)
	for i, a := range s.atoms {
		pos[i] = coords[a]
		k := s.key(pos[i])
		grid[k] = append(grid[k], i)
	}

	atomArea := make([]float64, len(s.atoms))
	chunks := workpool.Chunks(len(s.atoms), workpool.Size(s.workers))
	err := workpool.Run(ctx, s.workers, len(chunks), func(_ context.Context, c int) error {
		var neighbours []int
		for i := chunks[c].Lo; i < chunks[c].Hi; i++ {
			neighbours = s.neighbours(grid, pos, i, neighbours[:0])
			ri := s.radii[i]
			exposed := 0
			for _, u := range s.points {
				p := domain.Vec3{pos[i][0] + ri*u[0], pos[i][1] + ri*u[1], pos[i][2] + ri*u[2]}
				buried := false
				for _, j := range neighbours {
					d := p.Sub(pos[j])
					if d[0]*d[0]+d[1]*d[1]+d[2]*d[2] < s.radii[j]*s.radii[j] {
						buried = true
						break
					}
				}
				if !buried {
					exposed++
				}
			}
			atomArea[i] = 4 * math.Pi * ri * ri * float64(exposed) / float64(len(s.points))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(s.topo.Residues))
	for i, a := range atomArea {
		out[s.owner[i]] += a
	}
	return out, nil
}

func (s *SurfaceCalculator) key(p domain.Vec3) cellKey {
	return cellKey{int(math.Floor(p[0] / s.cell)), int(math.Floor(p[1] / s.cell)), int(math.Floor(p[2] / s.cell))}
}

func (s *SurfaceCalculator) neighbours(grid map[cellKey][]int, pos []domain.Vec3, i int, buf []int) []int {
	k := s.key(pos[i])
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, j := range grid[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if j == i {
						continue
					}
					d := pos[i].Sub(pos[j])
					lim := s.radii[i] + s.radii[j]
					if d[0]*d[0]+d[1]*d[1]+d[2]*d[2] < lim*lim {
						buf = append(buf, j)
					}
				}
			}
		}
	}
	return buf
}

// FrameSampler keeps an evenly spaced subset of at most Max frames from a
// stream of unknown length. It retains every stride-th frame and doubles the
// stride whenever the buffer exceeds twice the target.
type FrameSampler struct {
	Max    int
	stride int
	kept   []sampledFrame
}

type sampledFrame struct {
	index  int
	coords []domain.Vec3
}

// NewFrameSampler creates a sampler keeping at most max frames.
func NewFrameSampler(max int) *FrameSampler {
	if max < 1 {
		max = 1
	}
	return &FrameSampler{Max: max, stride: 1}
}

// Offer considers a frame. Coordinates are copied when kept.
func (s *FrameSampler) Offer(f *domain.Frame) {
	if f.Index%s.stride != 0 {
		return
	}
	s.kept = append(s.kept, sampledFrame{index: f.Index, coords: append([]domain.Vec3(nil), f.Coords...)})
	if len(s.kept) > 2*s.Max {
		s.stride *= 2
		next := s.kept[:0]
		for _, k := range s.kept {
			if k.index%s.stride == 0 {
				next = append(next, k)
			}
		}
		s.kept = next
	}
}

// Frames returns at most Max evenly spaced coordinate sets.
func (s *FrameSampler) Frames() [][]domain.Vec3 {
	n := len(s.kept)
	if n == 0 {
		return nil
	}
	take := s.Max
	if take > n {
		take = n
	}
	out := make([][]domain.Vec3, take)
	for i := 0; i < take; i++ {
		out[i] = s.kept[i*n/take].coords
	}
	return out
}

// MeanResidueAreas averages per-residue areas over sampled frames.
func MeanResidueAreas(ctx context.Context, calc *SurfaceCalculator, frames [][]domain.Vec3) ([]float64, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	var mean []float64
	for _, coords := range frames {
		areas, err := calc.ResidueAreas(ctx, coords)
		if err != nil {
			return nil, err
		}
		if mean == nil {
			mean = make([]float64, len(areas))
		}
		for i, a := range areas {
			mean[i] += a
		}
	}
	for i := range mean {
		mean[i] /= float64(len(frames))
	}
	return mean, nil
}

// SiteArea sums residue areas over a site's residues.
func SiteArea(areas []float64, residues []int) float64 {
	var total float64
	for _, r := range residues {
		if r < len(areas) {
			total += areas[r]
		}
	}
	return total
}
