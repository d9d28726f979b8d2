package trajectory

import (
	"bytes"
	"context"
	"math"
	"testing"

	"lipid-site-lab/internal/domain"
)

func TestPDB_WriteRead(t *testing.T) {
	atoms := []domain.Atom{
		{Index: 0, Name: "CA", ResName: "LEU", ResNumber: 1, Element: "C"},
		{Index: 1, Name: "P", ResName: "POPC", ResNumber: 2, Element: "P"},
	}
	box := domain.Box{5, 6, 7}

	var buf bytes.Buffer
	if err := WritePDB(&buf, 1, "frame t= 0.0", atoms, []domain.Vec3{{1, 2, 3}, {1.5, 2, 3}}, box); err != nil {
		t.Fatalf("WritePDB: %v", err)
	}
	if err := WritePDB(&buf, 2, "frame t= 50.0", atoms, []domain.Vec3{{1.1, 2, 3}, {1.6, 2, 3}}, box); err != nil {
		t.Fatalf("WritePDB: %v", err)
	}

	r, err := NewPDBReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewPDBReader: %v", err)
	}
	got := r.Atoms()
	if len(got) != 2 || got[1].ResName != "POPC" || got[1].Name != "P" || got[1].Element != "P" {
		t.Fatalf("unexpected atoms: %+v", got)
	}

	frames, err := ReadAll(context.Background(), r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[1].Time != 50 {
		t.Errorf("expected time 50, got %v", frames[1].Time)
	}
	if math.Abs(frames[1].Coords[0][0]-1.1) > 1e-6 {
		t.Errorf("unexpected coordinate %v", frames[1].Coords[0])
	}
	if math.Abs(frames[0].Box[1]-6) > 1e-6 {
		t.Errorf("unexpected box %v", frames[0].Box)
	}
}
