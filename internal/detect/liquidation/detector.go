// Package liquidation scans lending positions for liquidatable health
// factors and emits Liquidation Opportunities.
package liquidation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/riskgas"
)

// PriceFeed resolves a token's current USD price, sourced from the
// Market Graph or an external oracle collaborator per §4.6's open
// question — either satisfies this interface.
type PriceFeed interface {
	PriceUSD(token domain.Token) (float64, bool)
}

// Config holds the scanner's tunables.
type Config struct {
	RescanInterval time.Duration
	MaxLiqPerRound int
}

// Detector is the Liquidation Scanner: an index of positions keyed by
// (protocol, owner), recomputed on every LendingPositionEvent and
// debounced-rescanned on a timer for positions that remain liquidatable.
type Detector struct {
	cfg   Config
	feed  PriceFeed
	clk   clock.Clock

	mu        sync.Mutex
	positions map[domain.LendingPositionID]domain.LendingPosition
	lastEmit  map[domain.LendingPositionID]time.Time

	log zerolog.Logger
}

// New creates a Liquidation Scanner.
func New(cfg Config, feed PriceFeed, clk clock.Clock, log zerolog.Logger) *Detector {
	return &Detector{
		cfg:       cfg,
		feed:      feed,
		clk:       clk,
		positions: make(map[domain.LendingPositionID]domain.LendingPosition),
		lastEmit:  make(map[domain.LendingPositionID]time.Time),
		log:       log.With().Str("component", "liquidation_detector").Logger(),
	}
}

// OnLendingPositionEvent updates the index and, if the position just
// crossed from healthy to liquidatable, emits an Opportunity immediately.
func (d *Detector) OnLendingPositionEvent(ev domain.LendingPositionEvent) (domain.Opportunity, bool) {
	pos := domain.LendingPosition{
		ID:                      ev.Position,
		CollateralToken:         ev.CollateralToken,
		CollateralAmount:        ev.CollateralAmount,
		DebtToken:               ev.DebtToken,
		DebtAmount:              ev.DebtAmount,
		LiquidationThresholdBps: ev.LiquidationThresholdBps,
		LiquidationBonusBps:     ev.LiquidationBonusBps,
		CloseFactorBps:          ev.CloseFactorBps,
		LastUpdateSlot:          ev.Slot,
	}

	d.mu.Lock()
	prior, hadPrior := d.positions[ev.Position]
	if pos.IsClosed() {
		delete(d.positions, ev.Position)
		delete(d.lastEmit, ev.Position)
		d.mu.Unlock()
		return domain.Opportunity{}, false
	}
	d.positions[ev.Position] = pos
	d.mu.Unlock()

	collateralPrice, ok1 := d.priceOf(pos.CollateralToken)
	debtPrice, ok2 := d.priceOf(pos.DebtToken)
	if !ok1 || !ok2 {
		return domain.Opportunity{}, false
	}

	wasHealthy := true
	if hadPrior {
		wasHealthy = prior.HealthFactor(collateralPrice, debtPrice) >= 1
	}
	nowLiquidatable := pos.Liquidatable(collateralPrice, debtPrice)

	if wasHealthy && nowLiquidatable {
		return d.emit(pos, collateralPrice, debtPrice), true
	}
	return domain.Opportunity{}, false
}

// Rescan re-evaluates every tracked position and re-emits Opportunities
// for ones that remain liquidatable, debounced by RescanInterval and
// capped at MaxLiqPerRound, tie-broken by descending estimated profit.
func (d *Detector) Rescan() []domain.Opportunity {
	d.mu.Lock()
	positions := make([]domain.LendingPosition, 0, len(d.positions))
	for _, p := range d.positions {
		positions = append(positions, p)
	}
	d.mu.Unlock()

	type scored struct {
		pos              domain.LendingPosition
		collateralPrice  float64
		debtPrice        float64
		estimatedProfit  float64
	}

	var candidates []scored
	for _, pos := range positions {
		collateralPrice, ok1 := d.priceOf(pos.CollateralToken)
		debtPrice, ok2 := d.priceOf(pos.DebtToken)
		if !ok1 || !ok2 {
			continue
		}
		if !pos.Liquidatable(collateralPrice, debtPrice) {
			continue
		}

		d.mu.Lock()
		last, seen := d.lastEmit[pos.ID]
		debounced := seen && d.clk.Now().Sub(last) < d.cfg.RescanInterval
		d.mu.Unlock()
		if debounced {
			continue
		}

		profit := float64(pos.DebtAmount) * debtPrice * float64(pos.LiquidationBonusBps) / 10000
		candidates = append(candidates, scored{pos, collateralPrice, debtPrice, profit})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].estimatedProfit > candidates[j].estimatedProfit
	})

	if len(candidates) > d.cfg.MaxLiqPerRound {
		candidates = candidates[:d.cfg.MaxLiqPerRound]
	}

	out := make([]domain.Opportunity, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, d.emit(c.pos, c.collateralPrice, c.debtPrice))
	}
	return out
}

func (d *Detector) priceOf(token domain.Token) (float64, bool) {
	if d.feed == nil {
		return 0, false
	}
	return d.feed.PriceUSD(token)
}

func (d *Detector) emit(pos domain.LendingPosition, collateralPrice, debtPrice float64) domain.Opportunity {
	now := d.clk.NowNanos()

	d.mu.Lock()
	d.lastEmit[pos.ID] = d.clk.Now()
	d.mu.Unlock()

	profit := int64(float64(pos.DebtAmount) * debtPrice * float64(pos.LiquidationBonusBps) / 10000)
	health := pos.HealthFactor(collateralPrice, debtPrice)

	repayAmount := pos.DebtAmount * uint64(pos.CloseFactorBps) / 10000
	if repayAmount == 0 {
		repayAmount = pos.DebtAmount
	}

	o := domain.Opportunity{
		ID:                    uuid.New(),
		Kind:                  domain.OpportunityLiquidation,
		DetectedAtMonotonicNs: now,
		GrossProfitLamports:   profit,
		Confidence:            1,
		RiskScore:             healthToRisk(health),
		// The position account is written (collateral/debt updated in
		// place); its collateral and debt mints are read to price the
		// liquidation instruction's transfers.
		WriteAccounts: [][32]byte{pos.ID.Owner},
		ReadAccounts:  [][32]byte{pos.CollateralToken.Mint, pos.DebtToken.Mint},
		LiquidationData: &domain.LiquidationInputs{
			Position:    pos.ID,
			RepayAmount: repayAmount,
		},
	}
	o.EstimatedGasLamports = riskgas.EstimateGasLamports(&o)
	// No adversarial-competition signal is available to the liquidation
	// path (unlike arbitrage/sandwich, there is no CompetitionEstimator
	// collaborator here), so the tip estimate leans on the health-derived
	// risk score as its proxy for urgency/competition.
	o.EstimatedTipLamports = riskgas.EstimateTipLamports(o.GrossProfitLamports, o.RiskScore/10)
	return o
}

// healthToRisk maps a health factor to a 0..10 risk score: the closer to
// 1 (the liquidation boundary), the higher the risk that a competitor's
// liquidation lands first and invalidates this one.
func healthToRisk(health float64) float64 {
	if health <= 0 {
		return 10
	}
	risk := (1 - health) * 10
	if risk < 0 {
		risk = 0
	}
	if risk > 10 {
		risk = 10
	}
	return risk
}
