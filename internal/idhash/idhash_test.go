package idhash

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func TestComputeSiteKey(t *testing.T) {
	tests := []struct {
		name     string
		species  string
		residues []int
	}{
		{"small site", "POPC", []int{1, 2, 3, 4}},
		{"unsorted", "CHOL", []int{40, 3, 17, 9}},
		{"single residue", "PIP2", []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSiteKey(tt.species, tt.residues)

			raw, err := base58.Decode(got)
			if err != nil {
				t.Fatalf("key is not base58: %v", err)
			}
			if len(raw) != 32 {
				t.Errorf("decoded length = %d, want 32", len(raw))
			}

			got2 := ComputeSiteKey(tt.species, tt.residues)
			if got != got2 {
				t.Errorf("ComputeSiteKey() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeSiteKey_OrderIndependent(t *testing.T) {
	a := ComputeSiteKey("POPC", []int{5, 1, 3})
	b := ComputeSiteKey("POPC", []int{1, 3, 5})
	if a != b {
		t.Errorf("residue order changed key: %s != %s", a, b)
	}
}

func TestComputeSiteKey_DifferentInputs(t *testing.T) {
	base := ComputeSiteKey("POPC", []int{1, 2, 3})

	if base == ComputeSiteKey("CHOL", []int{1, 2, 3}) {
		t.Error("Different species should produce different key")
	}
	if base == ComputeSiteKey("POPC", []int{1, 2, 4}) {
		t.Error("Different residues should produce different key")
	}
	// "1,23" vs "12,3" must not collide
	if ComputeSiteKey("POPC", []int{1, 23}) == ComputeSiteKey("POPC", []int{12, 3}) {
		t.Error("Separator ambiguity produced identical keys")
	}
}

func TestComputeIntervalID(t *testing.T) {
	a := ComputeIntervalID("run-x", "POPC", 0, 4, 2, 100)
	if a != ComputeIntervalID("run-x", "POPC", 0, 4, 2, 100) {
		t.Error("ComputeIntervalID() not deterministic")
	}
	if a == ComputeIntervalID("run-x", "POPC", 0, 4, 2, 101) {
		t.Error("Different start frame should produce different id")
	}
}

func TestNewRunID(t *testing.T) {
	id, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID: %v", err)
	}
	if !strings.HasPrefix(id, "run-") || len(id) != 16 {
		t.Errorf("unexpected run id %q", id)
	}
	other, _ := NewRunID()
	if id == other {
		t.Errorf("two run ids collided: %s", id)
	}
}
