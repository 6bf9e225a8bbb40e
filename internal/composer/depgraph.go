package composer

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aristath/mevengine/internal/domain"
)

// depGraph is the integer-indexed account read/write dependency graph
// over a candidate set: node i is opportunities[i], edge i->j iff a
// writable account of i is a readable (or writable) account of j. Built
// fresh per composition attempt rather than retained across calls.
type depGraph struct {
	g             *simple.DirectedGraph
	opportunities []*domain.Opportunity
}

func buildDepGraph(opportunities []*domain.Opportunity) *depGraph {
	g := simple.NewDirectedGraph()
	for i := range opportunities {
		g.AddNode(simple.Node(i))
	}
	for i, a := range opportunities {
		for j, b := range opportunities {
			if i == j {
				continue
			}
			if a.ConflictsWith(b) {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	return &depGraph{g: g, opportunities: opportunities}
}

// orderOrCycle returns a topologically sorted index order (ties broken by
// descending grossProfit for writer precedence), or, if the graph
// contains a cycle, the index of the lowest-profit opportunity
// participating in that cycle so the caller can drop it and retry.
func (d *depGraph) orderOrCycle() (order []int, cycleDropIdx int, hasCycle bool) {
	sorted, err := topo.SortStabilized(d.g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool {
			oi := d.opportunities[nodes[i].ID()]
			oj := d.opportunities[nodes[j].ID()]
			return oi.GrossProfitLamports > oj.GrossProfitLamports
		})
	})
	if err == nil {
		order = make([]int, len(sorted))
		for i, n := range sorted {
			order[i] = int(n.ID())
		}
		return order, 0, false
	}

	unorderable, ok := err.(topo.Unorderable)
	if !ok || len(unorderable) == 0 {
		return nil, lowestProfitIdx(d.opportunities, allIndices(len(d.opportunities))), true
	}

	cycle := unorderable[0]
	indices := make([]int, len(cycle))
	for i, n := range cycle {
		indices[i] = int(n.ID())
	}
	return nil, lowestProfitIdx(d.opportunities, indices), true
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func lowestProfitIdx(opportunities []*domain.Opportunity, indices []int) int {
	best := indices[0]
	for _, idx := range indices[1:] {
		if opportunities[idx].GrossProfitLamports < opportunities[best].GrossProfitLamports {
			best = idx
		}
	}
	return best
}
