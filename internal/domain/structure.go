package domain

import (
	"math"
	"strconv"
)

// Vec3 is a Cartesian position in trajectory units (nm).
type Vec3 [3]float64

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Atom is one atom or coarse-grained bead of the topology.
type Atom struct {
	Index     int    // 0-based position in frame coordinates
	Name      string // atom/bead name (e.g. "BB", "PO4", "CA")
	ResName   string // residue name
	ResNumber int    // residue number as written in the structure file
	Element   string // element symbol when known, else ""
}

// Residue is one residue of the structure (protein) under analysis.
type Residue struct {
	Index  int    // 0-based residue index used as the residue_id throughout the engine
	Name   string // three-letter residue name
	Number int    // residue number from the structure file
	Atoms  []int  // atom indices into frame coordinates
}

// Label returns the residue label used in reports, e.g. "42LEU".
func (r Residue) Label() string {
	return strconv.Itoa(r.Number) + r.Name
}

// Instance is one molecule of a mobile species (one lipid).
type Instance struct {
	ID        int    // 0-based instance index within its species
	Species   string // mobile species name (residue name, e.g. "POPC")
	ResNumber int    // residue number from the structure file
	Atoms     []int  // atom indices considered for contacts (may be a restricted subset)
	AllAtoms  []int  // every atom of the molecule, used for pose export
}

// Topology describes which atoms belong to the structure and to each
// mobile species. Immutable once built.
type Topology struct {
	Atoms     []Atom
	Residues  []Residue
	Instances map[string][]Instance // keyed by species name
}

// NumAtoms returns the number of atoms per frame.
func (t *Topology) NumAtoms() int {
	return len(t.Atoms)
}

// Species returns the species names present, in the order given.
func (t *Topology) Species(order []string) []string {
	var out []string
	for _, s := range order {
		if len(t.Instances[s]) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Box is a rectangular periodic box (nm). Zero components disable
// periodicity along that axis.
type Box Vec3

// Frame is one trajectory frame.
type Frame struct {
	Index  int     // 0-based frame index within the replicate
	Time   float64 // ps
	Box    Box
	Coords []Vec3
}

