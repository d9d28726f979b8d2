package trajectory

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"lipid-site-lab/internal/domain"
)

// Patch is a group of protein residues arranged on a small ring around a
// common centre. A bound instance sits at the centre and contacts every
// residue of the patch at once.
type Patch struct {
	Residues []int   // protein residue indices
	Radius   float64 // nm, ring radius
}

// SyntheticSpecies describes one mobile species of a synthetic system.
type SyntheticSpecies struct {
	Name      string
	Instances int
	Beads     []string // bead names per instance
	Patches   []int    // indices into SyntheticSystem.Patches this species binds
	POn       float64  // per-frame probability an unbound instance binds
	POff      float64  // per-frame probability a bound instance leaves
}

// SyntheticSystem is a seeded two-state binding model that produces
// trajectories with known sites and exponential residence times.
type SyntheticSystem struct {
	Residues int
	Patches  []Patch
	Species  []SyntheticSpecies
	Frames   int
	Step     float64 // ps
	Box      float64 // nm, cubic
	Jitter   float64 // nm, uniform positional noise of bound instances
	Seed     uint64
}

// DefaultSyntheticSystem returns a 24-residue protein with two 6-residue
// patches. POPC binds both patches; CHOL binds the first one only.
func DefaultSyntheticSystem() SyntheticSystem {
	return SyntheticSystem{
		Residues: 24,
		Patches: []Patch{
			{Residues: []int{0, 1, 2, 3, 4, 5}, Radius: 0.3},
			{Residues: []int{12, 13, 14, 15, 16, 17}, Radius: 0.3},
		},
		Species: []SyntheticSpecies{
			{Name: "POPC", Instances: 6, Beads: []string{"PO4", "C1A"}, Patches: []int{0, 1}, POn: 0.02, POff: 0.05},
			{Name: "CHOL", Instances: 4, Beads: []string{"ROH", "R1"}, Patches: []int{0}, POn: 0.02, POff: 0.05},
		},
		Frames: 10000,
		Step:   100,
		Box:    30,
		Jitter: 0.05,
		Seed:   1,
	}
}

var syntheticResidueNames = []string{"LEU", "ALA", "ILE", "VAL", "PHE", "LYS", "ARG", "TRP", "SER", "GLY"}

// Atoms builds the atom table: one BB bead per residue, followed by the
// species instances in declaration order.
func (s SyntheticSystem) Atoms() []domain.Atom {
	var atoms []domain.Atom
	for r := 0; r < s.Residues; r++ {
		atoms = append(atoms, domain.Atom{
			Index:     len(atoms),
			Name:      "BB",
			ResName:   syntheticResidueNames[r%len(syntheticResidueNames)],
			ResNumber: r + 1,
		})
	}
	resNr := s.Residues
	for _, sp := range s.Species {
		for i := 0; i < sp.Instances; i++ {
			resNr++
			for _, b := range sp.Beads {
				atoms = append(atoms, domain.Atom{
					Index:     len(atoms),
					Name:      b,
					ResName:   sp.Name,
					ResNumber: resNr,
				})
			}
		}
	}
	return atoms
}

func (s SyntheticSystem) patchCentre(p int) domain.Vec3 {
	return domain.Vec3{5 + 10*float64(p), 5, 5}
}

// residuePositions places patch residues on rings and every other residue
// along a line far from all patch centres.
func (s SyntheticSystem) residuePositions() []domain.Vec3 {
	pos := make([]domain.Vec3, s.Residues)
	placed := make([]bool, s.Residues)
	for p, patch := range s.Patches {
		c := s.patchCentre(p)
		m := float64(len(patch.Residues))
		for j, r := range patch.Residues {
			theta := 2 * math.Pi * float64(j) / m
			pos[r] = domain.Vec3{c[0] + patch.Radius*math.Cos(theta), c[1] + patch.Radius*math.Sin(theta), c[2]}
			placed[r] = true
		}
	}
	free := 0
	for r := range pos {
		if placed[r] {
			continue
		}
		pos[r] = domain.Vec3{1 + 1.5*float64(free%18), 15, 5 + 1.5*float64(free/18)}
		free++
	}
	return pos
}

// Validate checks the model parameters.
func (s SyntheticSystem) Validate() error {
	if s.Residues <= 0 || s.Frames <= 0 || s.Step <= 0 || s.Box <= 0 {
		return fmt.Errorf("synthetic: residues, frames, step and box must be positive")
	}
	for _, p := range s.Patches {
		for _, r := range p.Residues {
			if r < 0 || r >= s.Residues {
				return fmt.Errorf("synthetic: patch residue %d out of range", r)
			}
		}
	}
	for _, sp := range s.Species {
		if sp.Instances <= 0 || len(sp.Beads) == 0 {
			return fmt.Errorf("synthetic: species %s needs instances and beads", sp.Name)
		}
		for _, p := range sp.Patches {
			if p < 0 || p >= len(s.Patches) {
				return fmt.Errorf("synthetic: species %s binds unknown patch %d", sp.Name, p)
			}
		}
	}
	return nil
}

// Open implements Opener. Each replicate is seeded from Seed and the
// replicate index.
func (s SyntheticSystem) Open(_ context.Context, r Replicate) (Source, error) {
	if err := s.Validate(); err != nil {
		return nil, &domain.InputDataError{Replicate: r.Index, Path: r.Path, Err: err}
	}
	return newSyntheticSource(s, r.Index), nil
}

type syntheticSource struct {
	sys      SyntheticSystem
	atoms    []domain.Atom
	residues []domain.Vec3
	rng      *rand.Rand
	state    [][]int // species -> instance -> bound patch or -1
	index    int
}

func newSyntheticSource(sys SyntheticSystem, replicate int) *syntheticSource {
	src := &syntheticSource{
		sys:      sys,
		atoms:    sys.Atoms(),
		residues: sys.residuePositions(),
		rng:      rand.New(rand.NewPCG(sys.Seed, uint64(replicate)+1)),
		state:    make([][]int, len(sys.Species)),
	}
	for i, sp := range sys.Species {
		src.state[i] = make([]int, sp.Instances)
		for j := range src.state[i] {
			src.state[i][j] = -1
		}
	}
	return src
}

func (s *syntheticSource) Atoms() []domain.Atom {
	return s.atoms
}

func (s *syntheticSource) Next(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.index >= s.sys.Frames {
		return nil, io.EOF
	}

	coords := make([]domain.Vec3, 0, len(s.atoms))
	coords = append(coords, s.residues...)

	slot := 0
	for si, sp := range s.sys.Species {
		for inst := 0; inst < sp.Instances; inst++ {
			s.step(si, inst)
			var base domain.Vec3
			if p := s.state[si][inst]; p >= 0 {
				base = s.sys.patchCentre(p).Add(s.jitter())
			} else {
				base = domain.Vec3{1 + 2*float64(slot%14), 25, 25 - 2*float64(slot/14)}
			}
			for b := range sp.Beads {
				coords = append(coords, base.Add(domain.Vec3{0, 0, 0.1 * float64(b)}))
			}
			slot++
		}
	}

	f := &domain.Frame{
		Index:  s.index,
		Time:   float64(s.index) * s.sys.Step,
		Box:    domain.Box{s.sys.Box, s.sys.Box, s.sys.Box},
		Coords: coords,
	}
	s.index++
	return f, nil
}

func (s *syntheticSource) step(si, inst int) {
	sp := s.sys.Species[si]
	if s.state[si][inst] >= 0 {
		if s.rng.Float64() < sp.POff {
			s.state[si][inst] = -1
		}
		return
	}
	if len(sp.Patches) > 0 && s.rng.Float64() < sp.POn {
		s.state[si][inst] = sp.Patches[s.rng.IntN(len(sp.Patches))]
	}
}

func (s *syntheticSource) jitter() domain.Vec3 {
	j := s.sys.Jitter
	return domain.Vec3{
		(s.rng.Float64()*2 - 1) * j,
		(s.rng.Float64()*2 - 1) * j,
		(s.rng.Float64()*2 - 1) * j,
	}
}

func (s *syntheticSource) Close() error {
	return nil
}
