package binding

import (
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/idhash"
	"lipid-site-lab/internal/logger"
)

// Options configures clustering.
type Options struct {
	MinSiteSize   int
	Tolerance     float64 // ps
	MinEdgeWeight int
	MaxIterations int
	Logger        *log.Logger
}

// Cluster builds the contact graph of one species and partitions it into
// binding sites. The partition depends only on the multiset of intervals,
// never on their order.
func Cluster(species string, intervals []domain.ContactInterval, opts Options) *domain.ClusterResult {
	l := logger.Component(opts.Logger, "binding")
	if opts.MinEdgeWeight < 1 {
		opts.MinEdgeWeight = 1
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 100
	}

	res := &domain.ClusterResult{Species: species}
	g := BuildGraph(intervals, opts.Tolerance, opts.MinEdgeWeight)

	communities := propagateLabels(g, opts.MaxIterations)
	res.Modularity = modularity(g, communities)

	assigned := make(map[int]struct{})
	var kept [][]int
	for _, c := range communities {
		if len(c) >= opts.MinSiteSize {
			kept = append(kept, c)
			for _, r := range c {
				assigned[r] = struct{}{}
			}
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if len(kept[i]) != len(kept[j]) {
			return len(kept[i]) > len(kept[j])
		}
		return kept[i][0] < kept[j][0]
	})

	for id, members := range kept {
		site := &domain.BindingSite{
			SiteID:   id,
			Species:  species,
			Key:      idhash.ComputeSiteKey(species, members),
			Residues: members,
		}
		for _, iv := range intervals {
			if site.Contains(iv.ResidueID) {
				site.Intervals = append(site.Intervals, iv)
			}
		}
		sortIntervals(site.Intervals)
		res.Sites = append(res.Sites, site)
	}

	for _, r := range g.Contacted() {
		if _, ok := assigned[r]; !ok {
			res.Background = append(res.Background, r)
		}
	}

	if len(res.Sites) == 0 {
		res.Flags = append(res.Flags, domain.FlagClusteringDegenerate)
		l.Warn("no binding site found", "species", species, "contacted", len(g.Contacted()), "edges", g.Edges())
	} else {
		l.Info("clustered", "species", species, "sites", len(res.Sites), "modularity", res.Modularity)
	}
	return res
}

// propagateLabels runs deterministic asynchronous label propagation per
// connected component. Nodes are visited in ascending residue order; a node
// adopts the neighbouring label with the largest summed edge weight, ties
// going to the label holding the strongest single edge to the node, then to
// the node's current label, then to the lowest label.
func propagateLabels(g *Graph, maxIter int) [][]int {
	var out [][]int
	for _, comp := range topo.ConnectedComponents(g.g) {
		nodes := make([]int, len(comp))
		for i, n := range comp {
			nodes[i] = int(n.ID())
		}
		sort.Ints(nodes)

		label := make(map[int]int, len(nodes))
		for _, n := range nodes {
			label[n] = n
		}

		for iter := 0; iter < maxIter; iter++ {
			changed := false
			for _, n := range nodes {
				if next := bestLabel(g, n, label); next != label[n] {
					label[n] = next
					changed = true
				}
			}
			if !changed {
				break
			}
		}

		groups := make(map[int][]int)
		for _, n := range nodes {
			groups[label[n]] = append(groups[label[n]], n)
		}
		for _, members := range groups {
			sort.Ints(members)
			out = append(out, members)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func bestLabel(g *Graph, n int, label map[int]int) int {
	sum := make(map[int]float64)
	core := make(map[int]float64)
	for _, nb := range g.Neighbors(n) {
		w := g.Weight(n, nb)
		l := label[nb]
		sum[l] += w
		if w > core[l] {
			core[l] = w
		}
	}
	if len(sum) == 0 {
		return label[n]
	}

	current := label[n]
	best, bestSum, bestCore := math.MaxInt, -1.0, -1.0
	for l, s := range sum {
		switch {
		case s > bestSum,
			s == bestSum && core[l] > bestCore,
			s == bestSum && core[l] == bestCore && preferLabel(l, best, current):
			best, bestSum, bestCore = l, s, core[l]
		}
	}
	return best
}

func preferLabel(candidate, incumbent, current int) bool {
	if candidate == current {
		return true
	}
	if incumbent == current {
		return false
	}
	return candidate < incumbent
}

func modularity(g *Graph, communities [][]int) float64 {
	if g.Edges() == 0 {
		return 0
	}
	parts := make([][]graph.Node, len(communities))
	for i, c := range communities {
		parts[i] = make([]graph.Node, len(c))
		for j, r := range c {
			parts[i][j] = simple.Node(r)
		}
	}
	q := community.Q(g.g, parts, 1)
	if math.IsNaN(q) {
		return 0
	}
	return q
}

func sortIntervals(ivs []domain.ContactInterval) {
	sort.Slice(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Replicate != b.Replicate {
			return a.Replicate < b.Replicate
		}
		if a.ResidueID != b.ResidueID {
			return a.ResidueID < b.ResidueID
		}
		if a.InstanceID != b.InstanceID {
			return a.InstanceID < b.InstanceID
		}
		return a.Start < b.Start
	})
}
