// Package composer implements the Bundle Composer: selection, dependency
// ordering, compute budgeting, tip attachment, and simulate-validate
// retry over a candidate set of Opportunities.
package composer

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/chainclient"
	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/riskgas"
)

// Config holds the composer's tunables.
type Config struct {
	MaxBundleTxs      int
	MaxBundleCompute  uint64
	SafetyMarginBps   int
	MaxComposeRetries int
	Strategy          domain.Strategy
	TipAccount        domain.TipAccount
}

// TipPolicy computes the tip for a candidate bundle given its gross
// profit and the estimated competition level. The submission package's
// policy implementation satisfies this without composer importing it.
type TipPolicy interface {
	ComputeTip(grossProfitLamports int64, competition float64) int64
}

// Simulator is the subset of chainclient.Client the composer's
// validation step needs.
type Simulator interface {
	Simulate(ctx context.Context, tx chainclient.Transaction) (domain.SimulationResult, error)
}

// Composer is the Bundle Composer.
type Composer struct {
	cfg       Config
	simulator Simulator
	tipPolicy TipPolicy
	riskWeights riskgas.Weights
	clk       clock.Clock
	log       zerolog.Logger
}

// New creates a Composer.
func New(cfg Config, simulator Simulator, tipPolicy TipPolicy, riskWeights riskgas.Weights, clk clock.Clock, log zerolog.Logger) *Composer {
	return &Composer{
		cfg:         cfg,
		simulator:   simulator,
		tipPolicy:   tipPolicy,
		riskWeights: riskWeights,
		clk:         clk,
		log:         log.With().Str("component", "composer").Logger(),
	}
}

// AbandonReason explains why Compose returned ErrCompositionAbandoned.
type AbandonReason string

const (
	ReasonEmptyInput      AbandonReason = "EmptyInput"
	ReasonRetriesExhausted AbandonReason = "RetriesExhausted"
)

// AbandonError wraps domain.ErrCompositionAbandoned with the reason the
// composer gave up.
type AbandonError struct {
	Reason AbandonReason
}

func (e *AbandonError) Error() string {
	return fmt.Sprintf("composition abandoned: %s", e.Reason)
}

func (e *AbandonError) Unwrap() error { return domain.ErrCompositionAbandoned }

// Compose selects, orders, budgets, tips, and validates a Bundle from
// candidates. Every exit path releases acquired resources; composition
// never retries implicitly beyond MaxComposeRetries and is reported to
// the caller on abandonment rather than silently discarded.
func (c *Composer) Compose(ctx context.Context, candidates []domain.Opportunity, competition float64) (*domain.Bundle, error) {
	if len(candidates) == 0 {
		return nil, &AbandonError{Reason: ReasonEmptyInput}
	}

	admitted := c.selectCandidates(candidates)
	if len(admitted) == 0 {
		return nil, &AbandonError{Reason: ReasonEmptyInput}
	}

	for attempt := 0; attempt <= c.cfg.MaxComposeRetries; attempt++ {
		order, dropped := c.order(admitted)
		for dropped {
			// a cycle participant was dropped; re-order the remainder
			// immediately, which doesn't count as a compose retry
			admitted = order
			order, dropped = c.order(admitted)
		}

		bundle, err := c.build(order, competition)
		if err != nil {
			return nil, err
		}

		if c.simulator == nil {
			return bundle, nil
		}

		failedIdx, simErr := c.validate(ctx, bundle)
		if simErr == nil {
			return bundle, nil
		}

		if failedIdx < 0 || failedIdx >= len(order) {
			// The tip transaction itself failed simulation, or the index is
			// otherwise out of range for the admitted opportunities: this is
			// not a per-opportunity failure the retry loop can act on.
			return nil, fmt.Errorf("%w: %v", domain.ErrSimulationFailed, simErr)
		}

		c.log.Warn().Int("position", failedIdx).Err(simErr).Msg("bundle simulation failed, dropping opportunity and retrying")
		admitted = append(order[:failedIdx:failedIdx], order[failedIdx+1:]...)
		if len(admitted) == 0 {
			return nil, &AbandonError{Reason: ReasonEmptyInput}
		}
	}

	return nil, &AbandonError{Reason: ReasonRetriesExhausted}
}

// selectCandidates greedily admits opportunities in descending
// net-expected-profit order until the tx-count or compute-budget ceiling
// would be exceeded, leaving room for the terminal tip transaction.
func (c *Composer) selectCandidates(candidates []domain.Opportunity) []*domain.Opportunity {
	filtered := c.filterByStrategy(candidates)

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].NetExpectedProfit() > filtered[j].NetExpectedProfit()
	})

	maxTxs := c.cfg.MaxBundleTxs - 1 // reserve one slot for the tip tx
	if maxTxs < 1 {
		maxTxs = 1
	}

	var admitted []*domain.Opportunity
	computeUsed := riskgas.WithSafetyMargin(21_000, c.cfg.SafetyMarginBps) // the tip tx's budget

	for i := range filtered {
		if len(admitted) >= maxTxs {
			break
		}
		o := &filtered[i]
		units := riskgas.WithSafetyMargin(riskgas.EstimateComputeUnits(o), c.cfg.SafetyMarginBps)
		if computeUsed+units > c.cfg.MaxBundleCompute {
			continue
		}
		computeUsed += units
		admitted = append(admitted, o)
	}

	return admitted
}

func (c *Composer) filterByStrategy(candidates []domain.Opportunity) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(candidates))
	for _, o := range candidates {
		switch c.cfg.Strategy {
		case domain.StrategyMinimizeRisk:
			if o.RiskScore > 5 {
				continue
			}
		case domain.StrategyMaximizeProfit, domain.StrategyBalanced:
			// no additional filter
		}
		out = append(out, o)
	}
	return out
}

// order builds the dependency graph and topologically sorts it, dropping
// the lowest-profit participant of any cycle and reporting that a retry
// of ordering (not a full compose attempt) is needed.
func (c *Composer) order(admitted []*domain.Opportunity) ([]*domain.Opportunity, bool) {
	graph := buildDepGraph(admitted)
	indices, dropIdx, hasCycle := graph.orderOrCycle()
	if hasCycle {
		c.log.Debug().Int("drop_index", dropIdx).Msg("cyclic dependency detected, dropping lowest-profit participant")
		filtered := make([]*domain.Opportunity, 0, len(admitted)-1)
		for i, o := range admitted {
			if i == dropIdx {
				continue
			}
			filtered = append(filtered, o)
		}
		copy(admitted, filtered)
		return admitted[:len(filtered)], true
	}

	ordered := make([]*domain.Opportunity, len(indices))
	for i, idx := range indices {
		ordered[i] = admitted[idx]
	}
	return ordered, false
}

func (c *Composer) build(ordered []*domain.Opportunity, competition float64) (*domain.Bundle, error) {
	txs := make([]domain.Transaction, 0, len(ordered)+1)
	var totalCompute uint64
	var totalGas int64
	var totalRisk float64
	var grossProfit int64

	// competition is the only network-wide signal Compose receives; no
	// separate congestion feed is plumbed in here, so it doubles as the
	// congestion proxy rather than leaving that weight permanently zeroed.
	netCtx := riskgas.NetworkContext{CompetitionPressure: competition, CongestionLevel: competition}

	for _, o := range ordered {
		units := riskgas.WithSafetyMargin(riskgas.EstimateComputeUnits(o), c.cfg.SafetyMarginBps)
		totalCompute += units
		totalGas += riskgas.EstimateGasLamports(o)
		totalRisk += riskgas.AssessRisk(o, netCtx, c.riskWeights)
		grossProfit += o.GrossProfitLamports

		txs = append(txs, domain.Transaction{
			SourceOpportunity: o.ID,
			ComputeUnitLimit:  units,
			ReadAccounts:      o.ReadAccounts,
			WriteAccounts:     o.WriteAccounts,
		})
	}

	if totalCompute > c.cfg.MaxBundleCompute {
		return nil, fmt.Errorf("%w: compute budget %d exceeds %d", domain.ErrCompositionAbandoned, totalCompute, c.cfg.MaxBundleCompute)
	}

	tip := int64(0)
	if c.tipPolicy != nil {
		tip = c.tipPolicy.ComputeTip(grossProfit, competition)
	}

	txs = append(txs, domain.Transaction{
		IsTip:            true,
		ComputeUnitLimit: riskgas.WithSafetyMargin(21_000, c.cfg.SafetyMarginBps),
		WriteAccounts:    [][32]byte{c.cfg.TipAccount},
	})
	totalCompute += txs[len(txs)-1].ComputeUnitLimit
	totalGas += int64(txs[len(txs)-1].ComputeUnitLimit)

	return &domain.Bundle{
		ID:                        uuid.New(),
		Transactions:              txs,
		AggregateGasLamports:      totalGas,
		AggregateComputeBudget:    totalCompute,
		ExpectedNetProfitLamports: grossProfit - totalGas - tip,
		AggregateRiskScore:        totalRisk,
		Strategy:                  c.cfg.Strategy,
		ComposedAtMonotonicNs:     c.clk.NowNanos(),
		ComposedAt:                c.clk.Now(),
	}, nil
}

// validate simulates every transaction in order, returning the index of
// the first transaction that failed simulation, or -1 with a nil error
// on full success.
func (c *Composer) validate(ctx context.Context, bundle *domain.Bundle) (int, error) {
	for i, tx := range bundle.Transactions {
		result, err := c.simulator.Simulate(ctx, chainclient.Transaction{Payload: tx.Payload})
		if err != nil {
			return i, err
		}
		if !result.Success {
			return i, fmt.Errorf("%w: transaction %d rejected in simulation", domain.ErrSimulationFailed, i)
		}
	}
	return -1, nil
}
