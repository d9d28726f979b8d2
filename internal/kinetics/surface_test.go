package kinetics

import (
	"context"
	"math"
	"testing"

	"lipid-site-lab/internal/domain"
)

func TestRadiusTable(t *testing.T) {
	tab := NewRadiusTable(map[string]float64{"CA": 0.3})
	tests := []struct {
		atom domain.Atom
		want float64
	}{
		{domain.Atom{Name: "CA", Element: "C"}, 0.3},
		{domain.Atom{Name: "BB"}, 0.26},
		{domain.Atom{Name: "SC7"}, 0.23},
		{domain.Atom{Name: "OG1", Element: "O"}, 0.152},
		{domain.Atom{Name: "XX"}, fallbackRadius},
	}
	for _, tt := range tests {
		if got := tab.Radius(tt.atom); got != tt.want {
			t.Errorf("Radius(%s) = %v, want %v", tt.atom.Name, got, tt.want)
		}
	}
}

func sphereTopology(n int) *domain.Topology {
	topo := &domain.Topology{}
	for i := 0; i < n; i++ {
		topo.Atoms = append(topo.Atoms, domain.Atom{Index: i, Name: "BB", ResName: "ALA", ResNumber: i + 1})
		topo.Residues = append(topo.Residues, domain.Residue{Index: i, Name: "ALA", Number: i + 1, Atoms: []int{i}})
	}
	return topo
}

func TestSurface_IsolatedSphere(t *testing.T) {
	calc := NewSurfaceCalculator(sphereTopology(1), NewRadiusTable(nil), 0.14, 96, 1)
	areas, err := calc.ResidueAreas(context.Background(), []domain.Vec3{{1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	want := 4 * math.Pi * 0.4 * 0.4
	if math.Abs(areas[0]-want) > 1e-9 {
		t.Errorf("area = %v, want %v", areas[0], want)
	}
}

func TestSurface_OverlapReducesArea(t *testing.T) {
	calc := NewSurfaceCalculator(sphereTopology(2), NewRadiusTable(nil), 0.14, 200, 2)
	far, _ := calc.ResidueAreas(context.Background(), []domain.Vec3{{0, 0, 0}, {5, 0, 0}})
	near, _ := calc.ResidueAreas(context.Background(), []domain.Vec3{{0, 0, 0}, {0.4, 0, 0}})
	if !(near[0] < far[0]) || !(near[1] < far[1]) {
		t.Errorf("expected buried area: far=%v near=%v", far, near)
	}
	if math.Abs(near[0]-near[1]) > 0.1*near[0] {
		t.Errorf("symmetric pair has very different areas %v", near)
	}
	if SiteArea(near, []int{0, 1}) != near[0]+near[1] {
		t.Error("SiteArea must sum residues")
	}
}

func TestFrameSampler(t *testing.T) {
	s := NewFrameSampler(10)
	for i := 0; i < 1000; i++ {
		s.Offer(&domain.Frame{Index: i, Coords: []domain.Vec3{{float64(i), 0, 0}}})
	}
	frames := s.Frames()
	if len(frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(frames))
	}
	for i := 1; i < len(frames); i++ {
		if frames[i][0][0] <= frames[i-1][0][0] {
			t.Fatal("sampled frames not in order")
		}
	}
	if last := frames[len(frames)-1][0][0]; last < 800 {
		t.Errorf("sample does not span the trajectory: last frame %v", last)
	}

	small := NewFrameSampler(10)
	small.Offer(&domain.Frame{Index: 0})
	if len(small.Frames()) != 1 {
		t.Error("expected single sampled frame")
	}
}
