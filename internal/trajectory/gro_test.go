package trajectory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"lipid-site-lab/internal/domain"
)

const twoFrameGRO = `Protein in POPC t= 0.00000 step= 0
    4
    1LEU     BB    1   1.000   2.000   3.000
    2ALA     BB    2   1.500   2.000   3.000
    3POPC   PO4    3   4.000   4.000   4.000
    3POPC   C1A    4   4.100   4.000   4.000
  10.00000  10.00000  10.00000
Protein in POPC t= 200.00000 step= 100
    4
    1LEU     BB    1   1.100   2.000   3.000
    2ALA     BB    2   1.600   2.000   3.000
    3POPC   PO4    3   4.200   4.000   4.000
    3POPC   C1A    4   4.300   4.000   4.000
  10.00000  10.00000  10.00000
`

func TestGROReader_MultiFrame(t *testing.T) {
	r, err := NewGROReader(strings.NewReader(twoFrameGRO), 10)
	if err != nil {
		t.Fatalf("NewGROReader: %v", err)
	}
	atoms := r.Atoms()
	if len(atoms) != 4 {
		t.Fatalf("expected 4 atoms, got %d", len(atoms))
	}
	if atoms[2].ResName != "POPC" || atoms[2].Name != "PO4" || atoms[2].ResNumber != 3 {
		t.Errorf("unexpected atom: %+v", atoms[2])
	}

	frames, err := ReadAll(context.Background(), r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[1].Time != 200 {
		t.Errorf("expected time 200, got %v", frames[1].Time)
	}
	if frames[1].Index != 1 {
		t.Errorf("expected index 1, got %d", frames[1].Index)
	}
	if math.Abs(frames[1].Coords[0][0]-1.1) > 1e-9 {
		t.Errorf("unexpected coordinate %v", frames[1].Coords[0])
	}
	if frames[0].Box != (domain.Box{10, 10, 10}) {
		t.Errorf("unexpected box %v", frames[0].Box)
	}

	if _, err := r.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestGROReader_FallbackTime(t *testing.T) {
	in := strings.ReplaceAll(twoFrameGRO, "t= 200.00000 step= 100", "no time")
	in = strings.ReplaceAll(in, "t= 0.00000 step= 0", "no time")
	r, err := NewGROReader(strings.NewReader(in), 10)
	if err != nil {
		t.Fatalf("NewGROReader: %v", err)
	}
	frames, err := ReadAll(context.Background(), r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if frames[0].Time != 0 || frames[1].Time != 10 {
		t.Errorf("expected fallback times 0 and 10, got %v and %v", frames[0].Time, frames[1].Time)
	}
}

func TestGROReader_AtomCountMismatch(t *testing.T) {
	in := twoFrameGRO + "bad\n    3\n"
	r, err := NewGROReader(strings.NewReader(in), 10)
	if err != nil {
		t.Fatalf("NewGROReader: %v", err)
	}
	_, err = ReadAll(context.Background(), r)
	if err == nil || !strings.Contains(err.Error(), "first frame had 4") {
		t.Errorf("expected atom count mismatch, got %v", err)
	}
}

func TestGROReader_Empty(t *testing.T) {
	if _, err := NewGROReader(strings.NewReader(""), 1); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestWriteGRO_ReadBack(t *testing.T) {
	sys := DefaultSyntheticSystem()
	sys.Frames = 3
	src, _ := sys.Open(context.Background(), Replicate{})
	frames, err := ReadAll(context.Background(), src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	var buf bytes.Buffer
	for _, f := range frames {
		if err := WriteGRO(&buf, GROTitle("synthetic", f.Time), src.Atoms(), f.Coords, f.Box); err != nil {
			t.Fatalf("WriteGRO: %v", err)
		}
	}

	r, err := NewGROReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewGROReader: %v", err)
	}
	back, err := ReadAll(context.Background(), r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(back))
	}
	if back[2].Time != frames[2].Time {
		t.Errorf("time not preserved: %v vs %v", back[2].Time, frames[2].Time)
	}
	for i, c := range back[1].Coords {
		for k := 0; k < 3; k++ {
			if math.Abs(c[k]-frames[1].Coords[i][k]) > 0.0006 {
				t.Fatalf("atom %d coordinate drift: %v vs %v", i, c, frames[1].Coords[i])
			}
		}
	}
}
