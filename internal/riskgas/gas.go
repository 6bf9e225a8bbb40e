// Package riskgas provides pure functions estimating gas/compute cost and
// risk score for an Opportunity, consumed by the Bundle Composer's
// budgeting step.
package riskgas

import "github.com/aristath/mevengine/internal/domain"

// Baseline per-kind compute unit costs. These stand in for a real
// program's measured compute profile; the composer pads them with
// SAFETY_MARGIN_BPS regardless.
const (
	baseComputeArbitrageHop = uint64(120_000)
	baseComputeLiquidation  = uint64(180_000)
	baseComputeSandwichLeg  = uint64(110_000)

	lamportsPerComputeUnit = 1 // flat per-unit price; chain-specific pricing belongs in chainclient
)

// EstimateComputeUnits returns the point-estimate compute-unit cost for
// an Opportunity, before the composer's safety margin is applied.
func EstimateComputeUnits(o *domain.Opportunity) uint64 {
	switch o.Kind {
	case domain.OpportunityArbitrage:
		hops := 1
		if o.ArbitrageData != nil {
			hops = len(o.ArbitrageData.Path)
			if hops == 0 {
				hops = 1
			}
		}
		return baseComputeArbitrageHop * uint64(hops)
	case domain.OpportunityLiquidation:
		return baseComputeLiquidation
	case domain.OpportunitySandwich:
		return baseComputeSandwichLeg * 2 // front + back legs
	default:
		return baseComputeArbitrageHop
	}
}

// EstimateGasLamports converts an Opportunity's compute-unit estimate
// into a lamport cost estimate.
func EstimateGasLamports(o *domain.Opportunity) int64 {
	return int64(EstimateComputeUnits(o) * lamportsPerComputeUnit)
}

// Tip fraction bounds mirroring the submission package's TipPolicy, kept
// as a separate constant here so a detector can reject a candidate whose
// tip would erase its edge before the Bundle Composer ever sees it.
const (
	minTipFraction = 0.05
	maxTipFraction = 0.25
)

// EstimateTipLamports is a detector-side anticipated tip: a
// competition-scaled fraction of gross profit, the same piecewise-linear
// shape the submission package's TipPolicy applies at composition time.
func EstimateTipLamports(grossProfitLamports int64, competition float64) int64 {
	if competition < 0 {
		competition = 0
	}
	if competition > 1 {
		competition = 1
	}
	fraction := minTipFraction + competition*(maxTipFraction-minTipFraction)
	return int64(float64(grossProfitLamports) * fraction)
}

// WithSafetyMargin pads a compute-unit estimate by marginBps (e.g. 1000
// for a 10% pad), the figure the composer attaches as each transaction's
// compute-unit-limit instruction.
func WithSafetyMargin(units uint64, marginBps int) uint64 {
	if marginBps <= 0 {
		return units
	}
	return units + units*uint64(marginBps)/10000
}
