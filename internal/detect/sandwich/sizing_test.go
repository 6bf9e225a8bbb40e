package sandwich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/mevengine/internal/domain"
)

func bigPool() domain.PoolState {
	return domain.PoolState{
		TokenA:   domain.Token{Mint: [32]byte{1}},
		TokenB:   domain.Token{Mint: [32]byte{2}},
		ReserveA: 10_000_000,
		ReserveB: 10_000_000,
		FeeBps:   30,
	}
}

func TestOptimalSandwichSizes_ZeroReservesYieldZero(t *testing.T) {
	victim := domain.SwapEvent{TokenIn: domain.Token{Mint: [32]byte{1}}, AmountIn: 1_000}
	front, back, profit := optimalSandwichSizes(domain.PoolState{}, victim, 500)
	assert.Equal(t, uint64(0), front)
	assert.Equal(t, uint64(0), back)
	assert.Equal(t, int64(0), profit)
}

func TestOptimalSandwichSizes_LargeVictimTradeYieldsProfitableSandwich(t *testing.T) {
	pool := bigPool()
	victim := domain.SwapEvent{TokenIn: domain.Token{Mint: [32]byte{1}}, AmountIn: 500_000}

	front, back, profit := optimalSandwichSizes(pool, victim, 10_000) // generous tolerance
	assert.Greater(t, front, uint64(0))
	assert.Equal(t, front, back)
	assert.Greater(t, profit, int64(0))
}

func TestOptimalSandwichSizes_TightSlippageToleranceYieldsNothing(t *testing.T) {
	pool := bigPool()
	victim := domain.SwapEvent{TokenIn: domain.Token{Mint: [32]byte{1}}, AmountIn: 500_000}

	front, _, profit := optimalSandwichSizes(pool, victim, 0)
	assert.Equal(t, uint64(0), front)
	assert.Equal(t, int64(0), profit)
}

func TestPoolReserves_PicksDirectionByTokenIn(t *testing.T) {
	pool := bigPool()
	pool.ReserveA = 1
	pool.ReserveB = 2

	inA, outA := poolReserves(pool, domain.Token{Mint: [32]byte{1}})
	assert.Equal(t, uint64(1), inA)
	assert.Equal(t, uint64(2), outA)

	inB, outB := poolReserves(pool, domain.Token{Mint: [32]byte{2}})
	assert.Equal(t, uint64(2), inB)
	assert.Equal(t, uint64(1), outB)
}
