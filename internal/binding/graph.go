// Package binding groups contacted residues into binding sites by community
// detection on the residue co-occurrence graph.
package binding

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"lipid-site-lab/internal/domain"
)

// Event is one binding event of a single instance: the union of its
// overlapping residue intervals.
type Event struct {
	Replicate  int
	InstanceID int
	Start      float64
	End        float64
	Censored   bool
	Intervals  []domain.ContactInterval
}

type instanceKey struct {
	replicate int
	instance  int
}

// GroupEvents merges each instance's residue intervals into binding events.
// Intervals closer than tolerance (ps) belong to the same event. Events are
// ordered by replicate, instance, start.
func GroupEvents(intervals []domain.ContactInterval, tolerance float64) []Event {
	byInstance := make(map[instanceKey][]domain.ContactInterval)
	for _, iv := range intervals {
		k := instanceKey{iv.Replicate, iv.InstanceID}
		byInstance[k] = append(byInstance[k], iv)
	}

	keys := make([]instanceKey, 0, len(byInstance))
	for k := range byInstance {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].replicate != keys[j].replicate {
			return keys[i].replicate < keys[j].replicate
		}
		return keys[i].instance < keys[j].instance
	})

	var events []Event
	for _, k := range keys {
		ivs := byInstance[k]
		sort.Slice(ivs, func(i, j int) bool {
			if ivs[i].Start != ivs[j].Start {
				return ivs[i].Start < ivs[j].Start
			}
			return ivs[i].ResidueID < ivs[j].ResidueID
		})

		var cur *Event
		for _, iv := range ivs {
			if cur != nil && iv.Start <= cur.End+tolerance {
				if iv.End > cur.End {
					cur.End = iv.End
				}
				cur.Censored = cur.Censored || iv.Censored
				cur.Intervals = append(cur.Intervals, iv)
				continue
			}
			events = append(events, Event{
				Replicate:  k.replicate,
				InstanceID: k.instance,
				Start:      iv.Start,
				End:        iv.End,
				Censored:   iv.Censored,
				Intervals:  []domain.ContactInterval{iv},
			})
			cur = &events[len(events)-1]
		}
	}
	return events
}

type residuePair struct {
	a, b int // a < b
}

// Graph is the weighted residue contact graph of one species. Nodes are
// residue indices; the weight of an edge is the number of distinct binding
// events in which both residues were bound at the same time.
type Graph struct {
	g         *simple.WeightedUndirectedGraph
	contacted []int // residues with at least one interval, ascending
}

// BuildGraph constructs the contact graph. Pairs with fewer than
// minWeight shared events get no edge.
func BuildGraph(intervals []domain.ContactInterval, tolerance float64, minWeight int) *Graph {
	counts := make(map[residuePair]int)
	contacted := make(map[int]struct{})

	for _, ev := range GroupEvents(intervals, tolerance) {
		seen := make(map[residuePair]struct{})
		ivs := ev.Intervals
		for i := range ivs {
			contacted[ivs[i].ResidueID] = struct{}{}
			for j := i + 1; j < len(ivs); j++ {
				if ivs[j].Start >= ivs[i].End+tolerance {
					break
				}
				a, b := ivs[i].ResidueID, ivs[j].ResidueID
				if a == b || !ivs[i].Overlaps(ivs[j], tolerance) {
					continue
				}
				if a > b {
					a, b = b, a
				}
				seen[residuePair{a, b}] = struct{}{}
			}
		}
		for p := range seen {
			counts[p]++
		}
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	pairs := make([]residuePair, 0, len(counts))
	for p, w := range counts {
		if w >= minWeight {
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	for _, p := range pairs {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(p.a), simple.Node(p.b), float64(counts[p])))
	}

	res := make([]int, 0, len(contacted))
	for r := range contacted {
		res = append(res, r)
	}
	sort.Ints(res)
	return &Graph{g: g, contacted: res}
}

// Contacted returns the residues with at least one interval.
func (g *Graph) Contacted() []int {
	return g.contacted
}

// Weight returns the edge weight between two residues, 0 when absent.
func (g *Graph) Weight(a, b int) float64 {
	if e := g.g.WeightedEdge(int64(a), int64(b)); e != nil {
		return e.Weight()
	}
	return 0
}

// Nodes returns residues that have at least one edge, ascending.
func (g *Graph) Nodes() []int {
	nodes := graph.NodesOf(g.g.Nodes())
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)
	return out
}

// Neighbors returns the neighbours of residue r, ascending.
func (g *Graph) Neighbors(r int) []int {
	var out []int
	for it := g.g.From(int64(r)); it.Next(); {
		out = append(out, int(it.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// Edges returns the number of edges.
func (g *Graph) Edges() int {
	return g.g.Edges().Len()
}
