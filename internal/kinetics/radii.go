package kinetics

import (
	"strings"

	"lipid-site-lab/internal/domain"
)

// Default van der Waals radii (nm) by atom or bead name. Martini backbone
// and side-chain beads, followed by common all-atom names.
var defaultNameRadii = map[string]float64{
	"BB":  0.26,
	"SC1": 0.23,
	"SC2": 0.23,
	"SC3": 0.23,
	"SC4": 0.23,
	"SC5": 0.23,
	"SC6": 0.23,
	"CA":  0.17,
}

var defaultElementRadii = map[string]float64{
	"H": 0.110,
	"C": 0.170,
	"N": 0.155,
	"O": 0.152,
	"S": 0.180,
	"P": 0.180,
}

const fallbackRadius = 0.2

// RadiusTable resolves per-atom radii: caller overrides by name first, then
// built-in names, then elements, then a fallback.
type RadiusTable struct {
	overrides map[string]float64
}

// NewRadiusTable layers overrides on top of the defaults.
func NewRadiusTable(overrides map[string]float64) *RadiusTable {
	return &RadiusTable{overrides: overrides}
}

// Radius returns the radius of an atom (nm).
func (t *RadiusTable) Radius(a domain.Atom) float64 {
	if r, ok := t.overrides[a.Name]; ok {
		return r
	}
	if r, ok := defaultNameRadii[a.Name]; ok {
		return r
	}
	if strings.HasPrefix(a.Name, "SC") {
		return defaultNameRadii["SC1"]
	}
	if r, ok := defaultElementRadii[strings.ToUpper(a.Element)]; ok {
		return r
	}
	return fallbackRadius
}

// Radii returns radii for a list of atom indices.
func (t *RadiusTable) Radii(atoms []domain.Atom, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = t.Radius(atoms[k])
	}
	return out
}
