package arbitrage

import (
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/mevengine/internal/domain"
)

// optimalInput searches for the input amount (bounded by maxInput, which
// the caller derives from the shallowest pool's reserve on the path) that maximizes net output after
// fees, via a coarse grid followed by bisection refinement around the
// grid's best point. AMM cycle profit is unimodal in input size up to
// the point depth runs out, so bisection around the grid maximum
// converges to the true optimum without a full derivative.
func optimalInput(path []domain.PoolState, hopTokens [][32]byte, maxInput uint64) (bestInput uint64, bestOutput uint64, worstSlippageBps uint32) {
	if maxInput == 0 {
		return 0, 0, 0
	}

	const gridPoints = 32
	samples := make([]float64, gridPoints)
	floats.Span(samples, 1, float64(maxInput))

	bestIdx := 0
	outputs := make([]float64, gridPoints)
	for i, s := range samples {
		out, _ := simulateCycle(path, hopTokens, uint64(s))
		outputs[i] = float64(out) - s
	}
	bestIdx = floats.MaxIdx(outputs)

	lo := samples[0]
	hi := samples[gridPoints-1]
	if bestIdx > 0 {
		lo = samples[bestIdx-1]
	}
	if bestIdx < gridPoints-1 {
		hi = samples[bestIdx+1]
	}

	const refineSteps = 24
	for i := 0; i < refineSteps && hi-lo > 1; i++ {
		mid1 := lo + (hi-lo)/3
		mid2 := hi - (hi-lo)/3

		out1, _ := simulateCycle(path, hopTokens, uint64(mid1))
		out2, _ := simulateCycle(path, hopTokens, uint64(mid2))
		net1 := float64(out1) - mid1
		net2 := float64(out2) - mid2

		if net1 < net2 {
			lo = mid1
		} else {
			hi = mid2
		}
	}

	final := uint64((lo + hi) / 2)
	if final == 0 {
		final = 1
	}
	out, slip := simulateCycle(path, hopTokens, final)
	return final, out, slip
}
