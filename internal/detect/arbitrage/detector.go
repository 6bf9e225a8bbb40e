// Package arbitrage detects cross-venue arbitrage cycles over the Market
// Graph and emits Arbitrage Opportunities.
package arbitrage

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/marketgraph"
	"github.com/aristath/mevengine/internal/riskgas"
)

// Config holds the detector's tunable thresholds, the subset of the
// process configuration this detector needs.
type Config struct {
	MaxHops           int
	MinProfitLamports int64
	MaxSlippageBps    uint32
	Watchlist         [][32]byte
}

// CompetitionEstimator produces a 0..1 competition-probability estimate
// for a candidate cycle; the Success-Rate Model supplies the production
// implementation.
type CompetitionEstimator func(path marketgraph.Path) float64

// Detector is the Arbitrage Detector: it reacts to PoolStateEvents,
// enumerates cycles through the watchlist tokens, and emits Opportunities
// that clear the configured profit/slippage/competition bar.
type Detector struct {
	cfg   Config
	graph *marketgraph.Graph
	clk   clock.Clock
	estimateCompetition CompetitionEstimator

	lastEmittedAt int64
	log           zerolog.Logger
}

// New creates an Arbitrage Detector.
func New(cfg Config, graph *marketgraph.Graph, clk clock.Clock, estimator CompetitionEstimator, log zerolog.Logger) *Detector {
	return &Detector{
		cfg:                 cfg,
		graph:               graph,
		clk:                 clk,
		estimateCompetition: estimator,
		log:                 log.With().Str("component", "arbitrage_detector").Logger(),
	}
}

// OnPoolStateEvent reacts to a Market Graph update, enumerating cycles
// through every watchlist token touched by this pool and emitting the
// best Opportunity for each distinct cycle shape.
func (d *Detector) OnPoolStateEvent(ev domain.PoolStateEvent) []domain.Opportunity {
	var out []domain.Opportunity

	for _, startToken := range d.cfg.Watchlist {
		if startToken != ev.TokenA.Mint && startToken != ev.TokenB.Mint {
			continue
		}
		it := d.graph.FindPaths(startToken, d.cfg.MaxHops)
		candidates := make([]candidate, 0, 8)

		for {
			path, ok := it.Next()
			if !ok {
				break
			}
			cand, ok := d.evaluate(path)
			if !ok {
				continue
			}
			candidates = append(candidates, cand)
		}

		candidates = dedupReversals(candidates)
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].less(candidates[j])
		})

		for _, cand := range candidates {
			out = append(out, d.toOpportunity(cand))
		}
	}

	return out
}

type candidate struct {
	path        marketgraph.Path
	input       uint64
	output      uint64
	grossProfit int64
	slippageBps uint32
	competition float64
}

// less orders candidates for the "highest profit wins, ties by lower hop
// count then lexicographic venue-id order" rule.
func (c candidate) less(other candidate) bool {
	if c.grossProfit != other.grossProfit {
		return c.grossProfit > other.grossProfit
	}
	if len(c.path.Pools) != len(other.path.Pools) {
		return len(c.path.Pools) < len(other.path.Pools)
	}
	return venueKey(c.path) < venueKey(other.path)
}

func venueKey(p marketgraph.Path) string {
	key := ""
	for _, pool := range p.Pools {
		key += pool.VenueID
	}
	return key
}

func (d *Detector) evaluate(path marketgraph.Path) (candidate, bool) {
	states := make([]domain.PoolState, 0, len(path.Pools))
	hopTokens := make([][32]byte, 0, len(path.Pools))
	current := path.StartToken
	var maxInput uint64 = ^uint64(0)

	for _, poolID := range path.Pools {
		state, ok := d.graph.Get(poolID)
		if !ok {
			return candidate{}, false
		}
		states = append(states, state)
		hopTokens = append(hopTokens, current)
		current = otherToken(state, current)

		reserve := state.ReserveA
		if state.TokenA.Mint != hopTokens[len(hopTokens)-1] {
			reserve = state.ReserveB
		}
		if reserve/4 < maxInput {
			maxInput = reserve / 4 // stay well inside the pool's depth
		}
	}

	input, output, slippage := optimalInput(states, hopTokens, maxInput)
	if input == 0 || output <= input {
		return candidate{}, false
	}

	grossProfit := int64(output) - int64(input)
	if grossProfit <= d.cfg.MinProfitLamports {
		return candidate{}, false
	}
	if slippage > d.cfg.MaxSlippageBps {
		return candidate{}, false
	}

	competition := 0.0
	if d.estimateCompetition != nil {
		competition = d.estimateCompetition(path)
	}

	// Reject candidates a competitor is likely to out-tip: if the
	// competition-weighted expected tip would already consume the gross
	// profit, this cycle isn't worth building a bundle around.
	expectedTip := riskgas.EstimateTipLamports(grossProfit, competition)
	if competition*float64(expectedTip) >= float64(grossProfit) {
		return candidate{}, false
	}

	return candidate{
		path:        path,
		input:       input,
		output:      output,
		grossProfit: grossProfit,
		slippageBps: slippage,
		competition: competition,
	}, true
}

func (d *Detector) toOpportunity(c candidate) domain.Opportunity {
	now := d.clk.NowNanos()
	if now < d.lastEmittedAt {
		now = d.lastEmittedAt
	}
	d.lastEmittedAt = now

	writeAccounts := make([][32]byte, len(c.path.Pools))
	for i, pool := range c.path.Pools {
		writeAccounts[i] = pool.Account()
	}

	o := domain.Opportunity{
		ID:                    uuid.New(),
		Kind:                  domain.OpportunityArbitrage,
		DetectedAtMonotonicNs: now,
		GrossProfitLamports:   c.grossProfit,
		Confidence:            1 - c.competition,
		RiskScore:             c.competition * 10,
		ReadAccounts:          [][32]byte{c.path.StartToken},
		WriteAccounts:         writeAccounts,
		ArbitrageData: &domain.ArbitrageInputs{
			Path:        c.path.Pools,
			StartToken:  domain.Token{Mint: c.path.StartToken},
			InputAmount: c.input,
		},
	}
	o.EstimatedGasLamports = riskgas.EstimateGasLamports(&o)
	o.EstimatedTipLamports = riskgas.EstimateTipLamports(o.GrossProfitLamports, c.competition)
	return o
}

// otherToken mirrors marketgraph's helper; duplicated here since it is
// unexported in that package and this detector needs it to track the
// walking token through a path.
func otherToken(state domain.PoolState, from [32]byte) [32]byte {
	if state.TokenA.Mint == from {
		return state.TokenB.Mint
	}
	return state.TokenA.Mint
}

// dedupReversals drops the lower-profit of any two candidates whose
// pool sets are identical but walked in reverse (a trivial reversal of
// one hop), keeping only the higher-profit direction.
func dedupReversals(candidates []candidate) []candidate {
	best := make(map[string]candidate)
	order := make([]string, 0, len(candidates))

	for _, c := range candidates {
		k := poolSetKey(c.path.Pools)
		existing, ok := best[k]
		if !ok {
			best[k] = c
			order = append(order, k)
			continue
		}
		if c.grossProfit > existing.grossProfit {
			best[k] = c
		}
	}

	out := make([]candidate, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func poolSetKey(pools []domain.PoolID) string {
	sorted := make([]string, len(pools))
	for i, p := range pools {
		sorted[i] = p.VenueID
	}
	sort.Strings(sorted)
	key := ""
	for _, s := range sorted {
		key += s + "|"
	}
	return key
}
