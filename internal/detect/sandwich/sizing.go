package sandwich

import "github.com/aristath/mevengine/internal/domain"

const sandwichFeeMultiplierCount = 2 // front-run and back-run each pay the pool fee once

// optimalSandwichSizes derives (frontSize, backSize) maximizing
// backRunProceeds - frontRunCost - 2*fees, constrained so the victim's
// realized price impact stays within victimSlippageBps. The search
// scales the front size from a small fraction of the pool's depth
// upward until the victim's constraint would be violated, mirroring the
// grid-then-refine style used by the arbitrage detector's bisection.
func optimalSandwichSizes(pool domain.PoolState, victim domain.SwapEvent, victimSlippageBps uint32) (frontSize, backSize uint64, netProfitLamports int64) {
	reserveIn, reserveOut := poolReserves(pool, victim.TokenIn)
	if reserveIn == 0 || reserveOut == 0 {
		return 0, 0, 0
	}

	const steps = 20
	maxFront := reserveIn / 10
	if maxFront == 0 {
		return 0, 0, 0
	}

	var bestFront uint64
	var bestProfit int64

	for i := 1; i <= steps; i++ {
		front := maxFront * uint64(i) / steps
		if front == 0 {
			continue
		}

		frontOut, frontSlip := quote(reserveIn, reserveOut, pool.FeeBps, front)
		postFrontIn := reserveIn + front
		postFrontOut := reserveOut - frontOut

		victimOut, victimSlip := quote(postFrontIn, postFrontOut, pool.FeeBps, victim.AmountIn)
		if victimSlip > victimSlippageBps {
			break // larger front sizes only increase victim impact further
		}

		postVictimIn := postFrontIn + victim.AmountIn
		postVictimOut := postFrontOut - victimOut

		backOut, _ := quote(postVictimOut, postVictimIn, pool.FeeBps, frontOut)

		profit := int64(backOut) - int64(front)
		if profit > bestProfit {
			bestProfit = profit
			bestFront = front
		}
		_ = frontSlip
	}

	if bestFront == 0 {
		return 0, 0, 0
	}
	return bestFront, bestFront, bestProfit
}

func poolReserves(pool domain.PoolState, tokenIn domain.Token) (reserveIn, reserveOut uint64) {
	if pool.TokenA.Mint == tokenIn.Mint {
		return pool.ReserveA, pool.ReserveB
	}
	return pool.ReserveB, pool.ReserveA
}

func quote(reserveIn, reserveOut uint64, feeBps uint32, amountIn uint64) (amountOut uint64, slippageBps uint32) {
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
