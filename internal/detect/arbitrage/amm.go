package arbitrage

import "github.com/aristath/mevengine/internal/domain"

// quoteConstantProduct returns the output amount for swapping amountIn of
// tokenA into tokenB through a constant-product pool charging feeBps,
// along with the slippage in bps relative to the pool's pre-trade price.
func quoteConstantProduct(reserveIn, reserveOut uint64, feeBps uint32, amountIn uint64) (amountOut uint64, slippageBps uint32) {
	if reserveIn == 0 || reserveOut == 0 || amountIn == 0 {
		return 0, 0
	}

	feeMultiplier := float64(10000-feeBps) / 10000
	in := float64(amountIn) * feeMultiplier

	out := (in * float64(reserveOut)) / (float64(reserveIn) + in)

	preTradePrice := float64(reserveOut) / float64(reserveIn)
	executionPrice := out / float64(amountIn)
	if preTradePrice == 0 {
		return uint64(out), 0
	}
	impact := (preTradePrice - executionPrice) / preTradePrice
	if impact < 0 {
		impact = 0
	}
	return uint64(out), uint32(impact * 10000)
}

// quoteHop quotes a single hop through pool in the direction from->to,
// using the pool's reserves or CLMM fields as applicable.
func quoteHop(pool domain.PoolState, from [32]byte, amountIn uint64) (amountOut uint64, slippageBps uint32) {
	if pool.TokenA.Mint == from {
		return quoteConstantProduct(pool.ReserveA, pool.ReserveB, pool.FeeBps, amountIn)
	}
	return quoteConstantProduct(pool.ReserveB, pool.ReserveA, pool.FeeBps, amountIn)
}

// simulateCycle walks path hop by hop starting with amountIn of
// startToken, returning the final output amount and the worst per-hop
// slippage observed.
func simulateCycle(path []domain.PoolState, hopTokens [][32]byte, amountIn uint64) (amountOut uint64, worstSlippageBps uint32) {
	current := amountIn
	var worst uint32
	for i, pool := range path {
		out, slip := quoteHop(pool, hopTokens[i], current)
		if slip > worst {
			worst = slip
		}
		current = out
	}
	return current, worst
}
