package domain

import "strings"

var aminoAcids = [...][3]string{
	{"Alanine", "ALA", "A"},
	{"Arginine", "ARG", "R"},
	{"Asparagine", "ASN", "N"},
	{"Aspartic acid", "ASP", "D"},
	{"Cysteine", "CYS", "C"},
	{"Glutamic acid", "GLU", "E"},
	{"Glutamine", "GLN", "Q"},
	{"Glycine", "GLY", "G"},
	{"Histidine", "HIS", "H"},
	{"Isoleucine", "ILE", "I"},
	{"Leucine", "LEU", "L"},
	{"Lysine", "LYS", "K"},
	{"Methionine", "MET", "M"},
	{"Phenylalanine", "PHE", "F"},
	{"Proline", "PRO", "P"},
	{"Serine", "SER", "S"},
	{"Threonine", "THR", "T"},
	{"Tryptophan", "TRP", "W"},
	{"Tyrosine", "TYR", "Y"},
	{"Valine", "VAL", "V"},
}

// Protonation and terminal variants written by common force fields.
var aminoAcidAliases = map[string]string{
	"HSD": "HIS", "HSE": "HIS", "HSP": "HIS", "HID": "HIS", "HIE": "HIS", "HIP": "HIS",
	"CYX": "CYS", "ASH": "ASP", "GLH": "GLU", "LYN": "LYS",
}

// IsAminoAcid reports whether a residue name is a standard amino acid
// (or a known protonation variant).
func IsAminoAcid(resName string) bool {
	_, ok := OneLetter(resName)
	return ok
}

// OneLetter returns the one-letter code for a three-letter residue name.
func OneLetter(resName string) (string, bool) {
	name := strings.ToUpper(strings.TrimSpace(resName))
	if alias, ok := aminoAcidAliases[name]; ok {
		name = alias
	}
	for _, aa := range aminoAcids {
		if aa[1] == name {
			return aa[2], true
		}
	}
	return "X", false
}
