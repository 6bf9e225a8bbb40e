// Package marketgraph maintains the authoritative in-process view of pool
// states across venues and answers price and path queries. The graph is
// the sole owner of every PoolState record; detectors hold only
// read-only references into it.
package marketgraph

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/domain"
)

// entry wraps one pool behind its own mutex so that applying an update to
// one pool never blocks a reader of another.
type entry struct {
	mu    sync.RWMutex
	state domain.PoolState
}

// Graph is the Market Graph: many readers, single writer per pool.
// evictMu guards the pool map and token index and is never acquired
// while a per-pool lock is held. Eviction holds evictMu for writing
// across its whole sweep and index rebuild, so lookups of every pool
// wait until the sweep finishes.
type Graph struct {
	evictMu sync.RWMutex
	pools   map[domain.PoolID]*entry
	// byToken indexes pool ids by either endpoint token, used to build
	// the adjacency walked by FindPaths.
	byToken map[[32]byte][]domain.PoolID

	log zerolog.Logger
}

// New creates an empty Graph.
func New(log zerolog.Logger) *Graph {
	return &Graph{
		pools:   make(map[domain.PoolID]*entry),
		byToken: make(map[[32]byte][]domain.PoolID),
		log:     log.With().Str("component", "marketgraph").Logger(),
	}
}

// Apply upserts state from a PoolStateEvent, rejecting it if its slot is
// older than what is currently stored for that pool.
func (g *Graph) Apply(ev domain.PoolStateEvent) error {
	g.evictMu.RLock()
	e, ok := g.pools[ev.Pool]
	g.evictMu.RUnlock()

	if !ok {
		e = &entry{}
		g.evictMu.Lock()
		// Re-check under the write lock in case of a concurrent first-seen race.
		if existing, found := g.pools[ev.Pool]; found {
			e = existing
		} else {
			g.pools[ev.Pool] = e
		}
		g.evictMu.Unlock()
	}

	e.mu.Lock()

	if e.state.LastUpdateSlot > 0 && ev.Slot < e.state.LastUpdateSlot {
		e.mu.Unlock()
		return domain.ErrStateConflict
	}

	wasNew := e.state.LastUpdateSlot == 0 && e.state.LastSeenAt.IsZero()

	e.state.ID = ev.Pool
	e.state.TokenA = ev.TokenA
	e.state.TokenB = ev.TokenB
	e.state.ReserveA = ev.ReserveA
	e.state.ReserveB = ev.ReserveB
	e.state.Liquidity = ev.Liquidity
	e.state.TickLower = ev.TickLower
	e.state.TickUpper = ev.TickUpper
	e.state.SqrtPriceX64 = ev.SqrtPriceX64
	e.state.FeeBps = ev.FeeBps
	e.state.LastUpdateSlot = ev.Slot
	e.state.LastSeenAt = ev.ObservedAt
	e.mu.Unlock()

	if wasNew {
		g.indexTokens(ev.Pool, ev.TokenA.Mint, ev.TokenB.Mint)
	}

	return nil
}

func (g *Graph) indexTokens(id domain.PoolID, a, b [32]byte) {
	g.evictMu.Lock()
	defer g.evictMu.Unlock()
	g.byToken[a] = append(g.byToken[a], id)
	g.byToken[b] = append(g.byToken[b], id)
}

// Get returns a consistent snapshot of one pool's state (an atomic copy
// of the whole record, never a partially-applied view).
func (g *Graph) Get(id domain.PoolID) (domain.PoolState, bool) {
	g.evictMu.RLock()
	e, ok := g.pools[id]
	g.evictMu.RUnlock()
	if !ok {
		return domain.PoolState{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state, true
}

// PriceAt is a constant-time lookup of the current price for a pool.
func (g *Graph) PriceAt(id domain.PoolID) (float64, bool) {
	state, ok := g.Get(id)
	if !ok {
		return 0, false
	}
	return state.Price(), true
}

// EvictStale removes pools not updated since before.
func (g *Graph) EvictStale(before time.Time) int {
	g.evictMu.Lock()
	defer g.evictMu.Unlock()

	evicted := 0
	for id, e := range g.pools {
		e.mu.RLock()
		stale := e.state.LastSeenAt.Before(before)
		e.mu.RUnlock()
		if stale {
			delete(g.pools, id)
			evicted++
		}
	}
	if evicted > 0 {
		g.rebuildTokenIndex()
		g.log.Debug().Int("evicted", evicted).Msg("evicted stale pools")
	}
	return evicted
}

// rebuildTokenIndex must be called with evictMu held for writing.
func (g *Graph) rebuildTokenIndex() {
	byToken := make(map[[32]byte][]domain.PoolID)
	for id, e := range g.pools {
		e.mu.RLock()
		a, b := e.state.TokenA.Mint, e.state.TokenB.Mint
		e.mu.RUnlock()
		byToken[a] = append(byToken[a], id)
		byToken[b] = append(byToken[b], id)
	}
	g.byToken = byToken
}

// PoolsForToken returns the ids of every pool with token as one of its
// two endpoints, used by price-discovery callers that need a direct
// quote rather than a cycle through the graph.
func (g *Graph) PoolsForToken(token [32]byte) []domain.PoolID {
	g.evictMu.RLock()
	defer g.evictMu.RUnlock()
	out := make([]domain.PoolID, len(g.byToken[token]))
	copy(out, g.byToken[token])
	return out
}

// Size returns the number of pools currently tracked.
func (g *Graph) Size() int {
	g.evictMu.RLock()
	defer g.evictMu.RUnlock()
	return len(g.pools)
}
