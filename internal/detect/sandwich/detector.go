// Package sandwich detects profitable front-run/back-run pairs around
// large pending swaps. Disabled entirely when ETHICAL_MODE is set.
package sandwich

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/marketgraph"
	"github.com/aristath/mevengine/internal/riskgas"
)

// Config holds the detector's tunables.
type Config struct {
	MinTargetValueUSD float64
	EthicalMode       bool
}

// CompetitionEstimator produces a 0..1 competition-probability estimate
// for a candidate sandwich, mirroring the arbitrage detector's contract.
type CompetitionEstimator func(target domain.SwapEvent) float64

// Detector is the Sandwich Detector.
type Detector struct {
	cfg   Config
	graph *marketgraph.Graph
	clk   clock.Clock
	estimateCompetition CompetitionEstimator

	policyBlocked uint64
	log           zerolog.Logger
}

// New creates a Sandwich Detector.
func New(cfg Config, graph *marketgraph.Graph, clk clock.Clock, estimator CompetitionEstimator, log zerolog.Logger) *Detector {
	return &Detector{
		cfg:                 cfg,
		graph:               graph,
		clk:                 clk,
		estimateCompetition: estimator,
		log:                 log.With().Str("component", "sandwich_detector").Logger(),
	}
}

// priceUSDFn is supplied by the caller since the detector has no
// opinion on oracle vs. Market-Graph sourcing (§4.6's open question).
type priceUSDFn = func(domain.Token) (float64, bool)

// OnPendingSwap evaluates one observed pending swap, returning a Sandwich
// Opportunity if it clears the value floor, slippage-tolerance, and
// policy checks.
func (d *Detector) OnPendingSwap(swap domain.SwapEvent, victimSlippageBps uint32, knownSlippage bool, priceUSD priceUSDFn) (domain.Opportunity, bool) {
	if d.cfg.EthicalMode {
		atomic.AddUint64(&d.policyBlocked, 1)
		d.log.Info().Str("pool", swap.Pool.VenueID).Msg("sandwich candidate blocked by ethical mode")
		return domain.Opportunity{}, false
	}

	if !knownSlippage {
		// Victim's worst-case slippage tolerance is unknowable: skip per
		// §4.6 rather than guess.
		return domain.Opportunity{}, false
	}

	price, ok := priceUSD(swap.TokenIn)
	if !ok {
		return domain.Opportunity{}, false
	}
	targetValueUSD := float64(swap.AmountIn) * price
	if targetValueUSD < d.cfg.MinTargetValueUSD {
		return domain.Opportunity{}, false
	}

	pool, ok := d.graph.Get(swap.Pool)
	if !ok {
		return domain.Opportunity{}, false
	}

	frontSize, backSize, netProfit := optimalSandwichSizes(pool, swap, victimSlippageBps)
	if netProfit <= 0 {
		return domain.Opportunity{}, false
	}

	competition := 0.0
	if d.estimateCompetition != nil {
		competition = d.estimateCompetition(swap)
	}

	o := domain.Opportunity{
		ID:                    uuid.New(),
		Kind:                  domain.OpportunitySandwich,
		DetectedAtMonotonicNs: d.clk.NowNanos(),
		GrossProfitLamports:   netProfit,
		Confidence:            1 - competition,
		RiskScore:             5 + competition*5, // explicit adversarial-interaction boost
		// The target pool is written by both the front and back legs;
		// the victim's own account is read (its pending swap is the
		// thing being sandwiched, never written by us).
		WriteAccounts: [][32]byte{swap.Pool.Account()},
		ReadAccounts:  [][32]byte{swap.Trader},
		SandwichData: &domain.SandwichInputs{
			TargetPool:        swap.Pool,
			FrontSize:         frontSize,
			BackSize:          backSize,
			VictimSlippageBps: victimSlippageBps,
		},
	}
	o.EstimatedGasLamports = riskgas.EstimateGasLamports(&o)
	o.EstimatedTipLamports = riskgas.EstimateTipLamports(o.GrossProfitLamports, competition)
	return o, true
}

// PolicyBlockedCount returns the cumulative count of candidates refused
// by ETHICAL_MODE, the policy_blocked_sandwich counter from §8's S6.
func (d *Detector) PolicyBlockedCount() uint64 {
	return atomic.LoadUint64(&d.policyBlocked)
}
