package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/mevengine/internal/domain"
)

func oppWithProfit(gross int64) domain.Opportunity {
	return domain.Opportunity{
		ID:                  uuid.New(),
		Kind:                domain.OpportunityArbitrage,
		GrossProfitLamports: gross,
	}
}

func TestCandidatePool_AddUnderCapacity(t *testing.T) {
	p := newCandidatePool(4, zerolog.Nop())

	p.Add(oppWithProfit(100))
	p.Add(oppWithProfit(200))

	drained := p.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, uint64(0), p.Dropped())
}

func TestCandidatePool_DropsLowestProfitNotNewest(t *testing.T) {
	p := newCandidatePool(2, zerolog.Nop())

	low := oppWithProfit(10)
	high := oppWithProfit(500)
	p.Add(low)
	p.Add(high)

	// pool is now full (low, high); a mid-profit newcomer should evict the
	// lowest-profit entry (low), not the most recently added (high).
	mid := oppWithProfit(50)
	p.Add(mid)

	drained := p.Drain()
	require.Len(t, drained, 2)

	profits := make(map[int64]bool)
	for _, o := range drained {
		profits[o.GrossProfitLamports] = true
	}
	assert.True(t, profits[500], "highest-profit candidate must survive")
	assert.True(t, profits[50], "evicting candidate must be admitted")
	assert.False(t, profits[10], "lowest-profit candidate must be the one dropped")
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestCandidatePool_DropsIncomingWhenNotMoreProfitable(t *testing.T) {
	p := newCandidatePool(1, zerolog.Nop())

	p.Add(oppWithProfit(1000))
	p.Add(oppWithProfit(1)) // strictly lower: incoming is dropped, not the resident

	drained := p.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, int64(1000), drained[0].GrossProfitLamports)
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestCandidatePool_TieDropsIncoming(t *testing.T) {
	p := newCandidatePool(1, zerolog.Nop())

	resident := oppWithProfit(42)
	p.Add(resident)
	p.Add(oppWithProfit(42))

	drained := p.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, resident.ID, drained[0].ID)
}

func TestCandidatePool_DrainEmptyReturnsNil(t *testing.T) {
	p := newCandidatePool(4, zerolog.Nop())
	assert.Nil(t, p.Drain())
}

func TestCandidatePool_DrainResetsPool(t *testing.T) {
	p := newCandidatePool(4, zerolog.Nop())
	p.Add(oppWithProfit(1))

	first := p.Drain()
	require.Len(t, first, 1)

	assert.Nil(t, p.Drain())
}
