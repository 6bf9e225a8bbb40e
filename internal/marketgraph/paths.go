package marketgraph

import "github.com/aristath/mevengine/internal/domain"

// Path is one simple cycle through the graph, starting and ending at the
// same token, suitable for arbitrage simulation.
type Path struct {
	StartToken [32]byte
	Pools      []domain.PoolID
}

// PathIterator yields Paths lazily; the caller stops consuming whenever
// it has enough candidates.
type PathIterator struct {
	paths []Path
	idx   int
}

// Next returns the next Path and true, or a zero Path and false when
// exhausted.
func (it *PathIterator) Next() (Path, bool) {
	if it.idx >= len(it.paths) {
		return Path{}, false
	}
	p := it.paths[it.idx]
	it.idx++
	return p, true
}

// FindPaths enumerates simple cycles starting and ending at startToken
// with at most maxHops edges. Enumeration is eager internally (the graph
// is small enough per-call) but exposed as a lazy iterator to match the
// contract and let callers bound how many they consume.
func (g *Graph) FindPaths(startToken [32]byte, maxHops int) *PathIterator {
	g.evictMu.RLock()
	byToken := make(map[[32]byte][]domain.PoolID, len(g.byToken))
	for k, v := range g.byToken {
		cp := make([]domain.PoolID, len(v))
		copy(cp, v)
		byToken[k] = cp
	}
	g.evictMu.RUnlock()

	var found []Path
	visited := make(map[domain.PoolID]bool)
	var walk func(current [32]byte, trail []domain.PoolID)

	walk = func(current [32]byte, trail []domain.PoolID) {
		if len(trail) > 0 && current == startToken {
			cycle := make([]domain.PoolID, len(trail))
			copy(cycle, trail)
			found = append(found, Path{StartToken: startToken, Pools: cycle})
			return
		}
		if len(trail) >= maxHops {
			return
		}
		for _, poolID := range byToken[current] {
			if visited[poolID] {
				continue
			}
			state, ok := g.Get(poolID)
			if !ok {
				continue
			}
			next := otherToken(state, current)
			visited[poolID] = true
			walk(next, append(trail, poolID))
			visited[poolID] = false
		}
	}

	walk(startToken, nil)
	return &PathIterator{paths: found}
}

func otherToken(state domain.PoolState, from [32]byte) [32]byte {
	if state.TokenA.Mint == from {
		return state.TokenB.Mint
	}
	return state.TokenA.Mint
}
