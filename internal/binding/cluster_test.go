package binding

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"lipid-site-lab/internal/domain"
)

func iv(res, inst int, start, end float64) domain.ContactInterval {
	return domain.ContactInterval{
		Species: "POPC", ResidueID: res, InstanceID: inst,
		Start: start, End: end,
		StartFrame: int(start / 10), EndFrame: int(end/10) - 1,
	}
}

// clique binds one instance to every residue in rs for each window.
func clique(rs []int, inst int, windows ...[2]float64) []domain.ContactInterval {
	var out []domain.ContactInterval
	for _, w := range windows {
		for _, r := range rs {
			out = append(out, iv(r, inst, w[0], w[1]))
		}
	}
	return out
}

func defaultOpts() Options {
	return Options{MinSiteSize: 4, MinEdgeWeight: 1, MaxIterations: 100}
}

func TestGroupEvents(t *testing.T) {
	ivs := []domain.ContactInterval{
		iv(1, 0, 0, 50),
		iv(2, 0, 40, 90),
		iv(3, 0, 200, 250),
		iv(1, 1, 0, 30),
	}
	events := GroupEvents(ivs, 0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].InstanceID != 0 || events[0].Start != 0 || events[0].End != 90 || len(events[0].Intervals) != 2 {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[2].InstanceID != 1 {
		t.Errorf("events not ordered by instance: %+v", events)
	}

	if got := GroupEvents(ivs, 150); len(got) != 2 {
		t.Errorf("tolerance 150: expected 2 events, got %d", len(got))
	}
}

func TestBuildGraph_Weights(t *testing.T) {
	var ivs []domain.ContactInterval
	ivs = append(ivs, clique([]int{1, 2, 3}, 0, [2]float64{0, 100}, [2]float64{500, 600})...)
	// residue 4 is bound by a different instance at the same time: no edge
	ivs = append(ivs, iv(4, 1, 0, 100))
	// residue 5 is bound by instance 0 but after residue 3 let go: no edge
	ivs = append(ivs, iv(5, 0, 100, 150))

	g := BuildGraph(ivs, 0, 1)
	if w := g.Weight(1, 2); w != 2 {
		t.Errorf("weight(1,2) = %v, want 2", w)
	}
	if w := g.Weight(3, 1); w != 2 {
		t.Errorf("weight(3,1) = %v, want 2", w)
	}
	if w := g.Weight(1, 4); w != 0 {
		t.Errorf("weight(1,4) = %v, want 0", w)
	}
	if w := g.Weight(3, 5); w != 0 {
		t.Errorf("weight(3,5) = %v, want 0 without tolerance", w)
	}
	if got := g.Contacted(); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("contacted = %v", got)
	}
	if got := g.Nodes(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("nodes = %v", got)
	}

	g = BuildGraph(ivs, 10, 1)
	if w := g.Weight(3, 5); w != 1 {
		t.Errorf("with tolerance: weight(3,5) = %v, want 1", w)
	}

	g = BuildGraph(ivs, 0, 3)
	if g.Edges() != 0 {
		t.Errorf("min weight 3: expected no edges, got %d", g.Edges())
	}
}

func twoPatches() []domain.ContactInterval {
	var ivs []domain.ContactInterval
	a := []int{0, 1, 2, 3, 4, 5}
	b := []int{12, 13, 14, 15, 16, 17}
	for k := 0; k < 5; k++ {
		s := float64(k) * 1000
		ivs = append(ivs, clique(a, k%3, [2]float64{s, s + 300})...)
		ivs = append(ivs, clique(b, 3+k%2, [2]float64{s + 100, s + 500})...)
	}
	// one weak bridge event between the patches
	ivs = append(ivs, iv(5, 7, 9000, 9100), iv(12, 7, 9000, 9100))
	// isolated contacted residue
	ivs = append(ivs, iv(20, 8, 0, 50))
	// small community below the minimum size
	ivs = append(ivs, clique([]int{30, 31}, 9, [2]float64{0, 100})...)
	return ivs
}

func TestCluster_TwoSites(t *testing.T) {
	res := Cluster("POPC", twoPatches(), defaultOpts())
	if len(res.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(res.Sites))
	}
	if !reflect.DeepEqual(res.Sites[0].Residues, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("site 0 = %v", res.Sites[0].Residues)
	}
	if !reflect.DeepEqual(res.Sites[1].Residues, []int{12, 13, 14, 15, 16, 17}) {
		t.Errorf("site 1 = %v", res.Sites[1].Residues)
	}
	if res.Sites[0].SiteID != 0 || res.Sites[1].SiteID != 1 {
		t.Errorf("unexpected site ids")
	}
	if res.Sites[0].Key == "" || res.Sites[0].Key == res.Sites[1].Key {
		t.Errorf("unexpected site keys %q %q", res.Sites[0].Key, res.Sites[1].Key)
	}
	if !reflect.DeepEqual(res.Background, []int{20, 30, 31}) {
		t.Errorf("background = %v", res.Background)
	}
	if res.Modularity <= 0 {
		t.Errorf("expected positive modularity, got %v", res.Modularity)
	}
	for _, s := range res.Sites {
		for _, x := range s.Intervals {
			if !s.Contains(x.ResidueID) {
				t.Fatalf("site %d holds interval of residue %d", s.SiteID, x.ResidueID)
			}
		}
	}
}

func TestCluster_Invariants(t *testing.T) {
	for _, min := range []int{1, 2, 4, 7} {
		opts := defaultOpts()
		opts.MinSiteSize = min
		res := Cluster("POPC", twoPatches(), opts)
		seen := make(map[int]int)
		for _, s := range res.Sites {
			if s.Size() < min {
				t.Errorf("min %d: site %d has %d residues", min, s.SiteID, s.Size())
			}
			for _, r := range s.Residues {
				if prev, dup := seen[r]; dup {
					t.Errorf("min %d: residue %d in sites %d and %d", min, r, prev, s.SiteID)
				}
				seen[r] = s.SiteID
			}
		}
		if _, ok := seen[20]; ok {
			t.Errorf("min %d: isolated residue formed part of a site", min)
		}
	}
}

func TestCluster_PermutationInvariant(t *testing.T) {
	base := Cluster("POPC", twoPatches(), defaultOpts())

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 20; trial++ {
		ivs := twoPatches()
		rng.Shuffle(len(ivs), func(i, j int) { ivs[i], ivs[j] = ivs[j], ivs[i] })
		got := Cluster("POPC", ivs, defaultOpts())
		if len(got.Sites) != len(base.Sites) {
			t.Fatalf("trial %d: %d sites, want %d", trial, len(got.Sites), len(base.Sites))
		}
		for i := range got.Sites {
			if !reflect.DeepEqual(got.Sites[i].Residues, base.Sites[i].Residues) {
				t.Fatalf("trial %d: site %d = %v, want %v", trial, i, got.Sites[i].Residues, base.Sites[i].Residues)
			}
			if !reflect.DeepEqual(got.Sites[i].Intervals, base.Sites[i].Intervals) {
				t.Fatalf("trial %d: site %d intervals differ", trial, i)
			}
		}
	}
}

func TestCluster_Degenerate(t *testing.T) {
	res := Cluster("CHOL", nil, defaultOpts())
	if len(res.Sites) != 0 || !domain.HasFlag(res.Flags, domain.FlagClusteringDegenerate) {
		t.Errorf("expected degenerate flag, got %+v", res)
	}

	// only isolated residues
	res = Cluster("CHOL", []domain.ContactInterval{iv(1, 0, 0, 10), iv(9, 1, 0, 10)}, defaultOpts())
	if len(res.Sites) != 0 || !domain.HasFlag(res.Flags, domain.FlagClusteringDegenerate) {
		t.Errorf("isolated residues: expected degenerate flag, got %+v", res)
	}
	if !reflect.DeepEqual(res.Background, []int{1, 9}) {
		t.Errorf("background = %v", res.Background)
	}
}

func TestSiteEvents(t *testing.T) {
	site := &domain.BindingSite{
		Residues: []int{1, 2},
		Intervals: []domain.ContactInterval{
			iv(1, 0, 0, 100),
			iv(2, 0, 50, 150),
			iv(1, 1, 20, 40),
		},
	}
	site.Intervals[1].Censored = true

	events := SiteEvents(site, 0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].InstanceID != 0 || events[0].End != 150 || !events[0].Censored {
		t.Errorf("unexpected merged event %+v", events[0])
	}
	if events[1].Duration() != 20 {
		t.Errorf("unexpected second event %+v", events[1])
	}
}
