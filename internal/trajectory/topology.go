package trajectory

import (
	"fmt"

	"lipid-site-lab/internal/domain"
)

// Selection chooses the mobile species and, optionally, the subset of each
// species' atoms used for contact distances.
type Selection struct {
	Species      []string
	ContactAtoms map[string][]string // species -> atom names
}

// BuildTopology splits the atom table into protein residues (standard amino
// acids) and mobile species instances. Residue boundaries are changes of
// residue number or name between consecutive atoms.
func BuildTopology(atoms []domain.Atom, sel Selection) (*domain.Topology, error) {
	wanted := make(map[string]map[string]struct{}, len(sel.Species))
	for _, sp := range sel.Species {
		var names map[string]struct{}
		if subset := sel.ContactAtoms[sp]; len(subset) > 0 {
			names = make(map[string]struct{}, len(subset))
			for _, n := range subset {
				names[n] = struct{}{}
			}
		}
		wanted[sp] = names
	}

	topo := &domain.Topology{
		Atoms:     atoms,
		Instances: make(map[string][]domain.Instance, len(sel.Species)),
	}

	for start := 0; start < len(atoms); {
		end := start + 1
		for end < len(atoms) &&
			atoms[end].ResNumber == atoms[start].ResNumber &&
			atoms[end].ResName == atoms[start].ResName {
			end++
		}

		name := atoms[start].ResName
		idx := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, i)
		}

		if domain.IsAminoAcid(name) {
			topo.Residues = append(topo.Residues, domain.Residue{
				Index:  len(topo.Residues),
				Name:   name,
				Number: atoms[start].ResNumber,
				Atoms:  idx,
			})
		} else if subset, ok := wanted[name]; ok {
			contact := idx
			if subset != nil {
				contact = nil
				for _, i := range idx {
					if _, keep := subset[atoms[i].Name]; keep {
						contact = append(contact, i)
					}
				}
				if len(contact) == 0 {
					return nil, fmt.Errorf("%w: species %s residue %d has none of the contact atoms %v",
						domain.ErrInputData, name, atoms[start].ResNumber, sel.ContactAtoms[name])
				}
			}
			topo.Instances[name] = append(topo.Instances[name], domain.Instance{
				ID:        len(topo.Instances[name]),
				Species:   name,
				ResNumber: atoms[start].ResNumber,
				Atoms:     contact,
				AllAtoms:  idx,
			})
		}
		start = end
	}

	if len(topo.Residues) == 0 {
		return nil, fmt.Errorf("%w: no protein residues in topology", domain.ErrInputData)
	}
	for _, sp := range sel.Species {
		if len(topo.Instances[sp]) == 0 {
			return nil, fmt.Errorf("%w: species %s not found in topology", domain.ErrInputData, sp)
		}
	}
	return topo, nil
}

// SameLayout reports whether two topologies have the same residues and
// instances, so that their intervals can be pooled.
func SameLayout(a, b *domain.Topology) bool {
	if len(a.Residues) != len(b.Residues) || len(a.Instances) != len(b.Instances) {
		return false
	}
	for i := range a.Residues {
		if a.Residues[i].Name != b.Residues[i].Name || a.Residues[i].Number != b.Residues[i].Number {
			return false
		}
	}
	for sp, inst := range a.Instances {
		if len(b.Instances[sp]) != len(inst) {
			return false
		}
	}
	return true
}
