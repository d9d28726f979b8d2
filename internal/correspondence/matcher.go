package correspondence

import (
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/logger"
)

// Options configures the matcher.
type Options struct {
	Similarity Similarity // defaults to IoU
	Threshold  float64    // minimum similarity for a candidate pair
	Logger     *log.Logger
}

type node struct {
	species int // index into species order
	site    *domain.BindingSite
}

type candidate struct {
	a, b  int // node indices, a's species before b's
	score float64
	size  int
}

// Match proposes a correspondence between the sites of every species.
// Candidate pairs above the threshold are accepted greedily from the
// highest score; ties go to the larger combined residue set, then to lower
// site ids. Two groups merge only when they share no species, which yields
// chains across more than two species. The result is advisory.
func Match(species []string, sites map[string][]*domain.BindingSite, opts Options) *domain.CorrespondenceEntry {
	l := logger.Component(opts.Logger, "correspondence")
	sim := opts.Similarity
	if sim == nil {
		sim = IoU
	}

	var nodes []node
	for si, sp := range species {
		ss := append([]*domain.BindingSite(nil), sites[sp]...)
		sort.Slice(ss, func(i, j int) bool { return ss[i].SiteID < ss[j].SiteID })
		for _, s := range ss {
			nodes = append(nodes, node{species: si, site: s})
		}
	}

	var cands []candidate
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[i].species == nodes[j].species {
				continue
			}
			score := sim(nodes[i].site.Residues, nodes[j].site.Residues)
			if score <= 0 || score < opts.Threshold {
				continue
			}
			cands = append(cands, candidate{
				a: i, b: j, score: score,
				size: nodes[i].site.Size() + nodes[j].site.Size(),
			})
		}
	}
	sort.SliceStable(cands, func(x, y int) bool { return candidateLess(nodes, cands[x], cands[y]) })

	uf := newUnionFind(len(nodes), nodes)
	for _, c := range cands {
		ra, rb := uf.find(c.a), uf.find(c.b)
		if ra == rb || !uf.disjoint(ra, rb) {
			continue
		}
		uf.union(ra, rb)
	}

	entry := &domain.CorrespondenceEntry{
		Species:     append([]string(nil), species...),
		Assignments: make(map[string][]int, len(species)),
		Source:      domain.CorrespondenceAuto,
		Warnings:    ambiguities(species, nodes, cands),
	}

	groups := make(map[int][]int)
	for i := range nodes {
		r := uf.find(i)
		groups[r] = append(groups[r], i)
	}
	locs := make([][]int, 0, len(groups))
	for _, members := range groups {
		vec := make([]int, len(species))
		for k := range vec {
			vec[k] = domain.NoSite
		}
		for _, m := range members {
			vec[nodes[m].species] = nodes[m].site.SiteID
		}
		locs = append(locs, vec)
	}
	sort.Slice(locs, func(i, j int) bool { return locationLess(locs[i], locs[j]) })

	entry.Locations = len(locs)
	for k, sp := range species {
		seq := make([]int, len(locs))
		for li, vec := range locs {
			seq[li] = vec[k]
		}
		entry.Assignments[sp] = seq
	}

	for _, w := range entry.Warnings {
		l.Warn("ambiguous correspondence", "detail", w.String())
	}
	l.Info("matched sites", "locations", entry.Locations, "shared", entry.Shared())
	return entry
}

func candidateLess(nodes []node, x, y candidate) bool {
	if x.score != y.score {
		return x.score > y.score
	}
	if x.size != y.size {
		return x.size > y.size
	}
	xa, xb := nodes[x.a], nodes[x.b]
	ya, yb := nodes[y.a], nodes[y.b]
	if mx, my := minInt(xa.site.SiteID, xb.site.SiteID), minInt(ya.site.SiteID, yb.site.SiteID); mx != my {
		return mx < my
	}
	if x.a != y.a {
		return x.a < y.a
	}
	return x.b < y.b
}

// locationLess orders locations by their site-id vectors, a missing site
// sorting after every real one.
func locationLess(a, b []int) bool {
	for k := range a {
		va, vb := sortKey(a[k]), sortKey(b[k])
		if va != vb {
			return va < vb
		}
	}
	return false
}

func sortKey(id int) int {
	if id == domain.NoSite {
		return math.MaxInt
	}
	return id
}

// ambiguities reports sites whose best match in another species is tied.
func ambiguities(species []string, nodes []node, cands []candidate) []domain.AmbiguityWarning {
	type key struct{ node, species int }
	first := make(map[key]candidate)
	reported := make(map[key]bool)
	var out []domain.AmbiguityWarning

	for _, c := range cands {
		for _, side := range [][2]int{{c.a, c.b}, {c.b, c.a}} {
			self, other := side[0], side[1]
			k := key{self, nodes[other].species}
			prev, seen := first[k]
			if !seen {
				first[k] = c
				continue
			}
			if reported[k] || prev.score != c.score {
				continue
			}
			reported[k] = true
			chosen := prev.b
			if prev.b == self {
				chosen = prev.a
			}
			out = append(out, domain.AmbiguityWarning{
				Species:  species[nodes[self].species],
				SiteID:   nodes[self].site.SiteID,
				Chosen:   label(species, nodes[chosen]),
				Rejected: label(species, nodes[other]),
				Score:    c.score,
			})
		}
	}
	return out
}

func label(species []string, n node) string {
	return fmt.Sprintf("%s:%d", species[n.species], n.site.SiteID)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type unionFind struct {
	parent []int
	types  []map[int]struct{} // species present under each root
}

func newUnionFind(n int, nodes []node) *unionFind {
	uf := &unionFind{parent: make([]int, n), types: make([]map[int]struct{}, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.types[i] = map[int]struct{}{nodes[i].species: {}}
	}
	return uf
}

func (u *unionFind) disjoint(a, b int) bool {
	for sp := range u.types[a] {
		if _, ok := u.types[b][sp]; ok {
			return false
		}
	}
	return true
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union attaches the larger root index under the smaller one.
func (u *unionFind) union(a, b int) {
	if b < a {
		a, b = b, a
	}
	u.parent[b] = a
	for sp := range u.types[b] {
		u.types[a][sp] = struct{}{}
	}
	u.types[b] = nil
}
