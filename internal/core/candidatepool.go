package core

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/domain"
)

// candidatePool is the bounded detector-to-composer queue. Per the
// backpressure contract, a full pool drops the lowest-profit pending
// Opportunity rather than the newest arrival, and counts the drop.
type candidatePool struct {
	mu      sync.Mutex
	items   []domain.Opportunity
	maxSize int
	dropped uint64
	log     zerolog.Logger
}

func newCandidatePool(maxSize int, log zerolog.Logger) *candidatePool {
	return &candidatePool{
		items:   make([]domain.Opportunity, 0, maxSize),
		maxSize: maxSize,
		log:     log.With().Str("component", "candidate_pool").Logger(),
	}
}

// Add inserts o, evicting the current lowest-net-profit entry if the
// pool is already at capacity.
func (p *candidatePool) Add(o domain.Opportunity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) < p.maxSize {
		p.items = append(p.items, o)
		return
	}

	lowestIdx := 0
	lowest := p.items[0].NetExpectedProfit()
	for i, existing := range p.items {
		if np := existing.NetExpectedProfit(); np < lowest {
			lowest = np
			lowestIdx = i
		}
	}

	if o.NetExpectedProfit() <= lowest {
		atomic.AddUint64(&p.dropped, 1)
		p.log.Debug().Msg("candidate pool full, dropping incoming low-profit opportunity")
		return
	}

	p.items[lowestIdx] = o
	atomic.AddUint64(&p.dropped, 1)
	p.log.Debug().Msg("candidate pool full, evicted lowest-profit opportunity")
}

// Drain returns every pending candidate and empties the pool.
func (p *candidatePool) Drain() []domain.Opportunity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil
	}
	out := p.items
	p.items = make([]domain.Opportunity, 0, p.maxSize)
	return out
}

// Dropped returns the cumulative count of candidates evicted for
// capacity.
func (p *candidatePool) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}
