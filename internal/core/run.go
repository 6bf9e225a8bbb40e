package core

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aristath/mevengine/internal/chainclient"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/events"
	"github.com/aristath/mevengine/internal/server"
	"github.com/aristath/mevengine/internal/submission"
	"github.com/aristath/mevengine/internal/subscription"
)

// Run starts every background loop and blocks until ctx is cancelled,
// then performs an orderly shutdown honoring cfg.ShutdownGrace.
func (c *Core) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.sched.Start()

	httpErrCh := make(chan error, 1)
	go func() {
		if err := c.httpSrv.Start(); err != nil {
			httpErrCh <- err
		}
	}()

	stream, err := c.chain.Subscribe(runCtx, chainclient.Filter{})
	if err != nil {
		return err
	}

	go c.ingestLoop(runCtx, stream)
	go c.composeLoop(runCtx)
	go c.pollLoop(runCtx)
	go c.healthLoop(runCtx)

	select {
	case <-ctx.Done():
	case err := <-httpErrCh:
		c.log.Error().Err(err).Msg("HTTP server exited unexpectedly")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.cfg.ShutdownGrace)
	defer shutdownCancel()
	return c.Shutdown(shutdownCtx)
}

// ingestLoop consumes the Chain Client's stream, feeding decoded events
// to the Market Graph and the three detectors.
func (c *Core) ingestLoop(ctx context.Context, stream <-chan chainclient.StreamItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-stream:
			if !ok {
				return
			}
			c.handleStreamItem(ctx, item)
		}
	}
}

func (c *Core) handleStreamItem(ctx context.Context, item chainclient.StreamItem) {
	if item.Gap != nil {
		c.bus.Emit(&events.SequenceGapData{
			LastGoodSlot:      item.Gap.LastGoodSlot,
			ReconnectedAtSlot: item.Gap.ReconnectedAtSlot,
		})
		c.advanceSlot(item.Gap.ReconnectedAtSlot)
		return
	}
	if item.Notification == nil {
		return
	}

	ev, ok := c.norm.Decode(*item.Notification)
	if !ok {
		return
	}

	switch {
	case ev.PoolState != nil:
		c.advanceSlot(ev.PoolState.Slot)
		if err := c.graph.Apply(*ev.PoolState); err != nil {
			c.log.Debug().Err(err).Str("pool", ev.PoolState.Pool.VenueID).Msg("rejected stale pool state")
			return
		}
		c.bus.Emit(&events.PoolUpdatedData{VenueID: ev.PoolState.Pool.VenueID, Slot: ev.PoolState.Slot})
		c.hub.Publish(subscription.TopicMarketPoolUpdates, c.clk.NowNanos(), ev.PoolState)

		found := c.arbDetector.OnPoolStateEvent(*ev.PoolState)
		c.onOpportunities(found)

	case ev.LendingPosition != nil:
		c.advanceSlot(ev.LendingPosition.Slot)
		if opp, ok := c.liqDetector.OnLendingPositionEvent(*ev.LendingPosition); ok {
			c.onOpportunities([]domain.Opportunity{opp})
		}

	case ev.Swap != nil:
		c.advanceSlot(ev.Swap.Slot)
		// Victim slippage tolerance cannot be recovered from a bare swap
		// notification, so the detector is asked with knownSlippage=false
		// and defers per its own §4.6 policy rather than guessing.
		if opp, ok := c.sandwichDetector.OnPendingSwap(*ev.Swap, 0, false, c.priceOracle.PriceUSD); ok {
			c.onOpportunities([]domain.Opportunity{opp})
		}

	case ev.BlockReward != nil:
		c.advanceSlot(ev.BlockReward.Slot)
	}
}

// onOpportunities funnels newly-detected Opportunities into the
// candidate pool and announces them on the Subscription Hub.
func (c *Core) onOpportunities(found []domain.Opportunity) {
	now := c.clk.NowNanos()
	for _, o := range found {
		c.pool.Add(o)
		c.bus.Emit(&events.OpportunityDetectedData{
			OpportunityID: o.ID.String(),
			Kind:          o.Kind.String(),
			NetProfit:     o.NetExpectedProfit(),
		})

		topic := subscription.TopicOpportunitiesArbitrage
		switch o.Kind {
		case domain.OpportunityLiquidation:
			topic = subscription.TopicOpportunitiesLiquidation
		case domain.OpportunitySandwich:
			topic = subscription.TopicOpportunitiesSandwich
		}
		oCopy := o
		c.hub.Publish(topic, now, &oCopy)
	}
}

// composeLoop periodically drains the candidate pool into the Bundle
// Composer and hands any resulting Bundle to the Submission Client.
func (c *Core) composeLoop(ctx context.Context) {
	ticker := time.NewTicker(composeTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			candidates := c.pool.Drain()
			if len(candidates) == 0 {
				continue
			}
			c.composeAndSubmit(ctx, candidates)
		}
	}
}

func (c *Core) composeAndSubmit(ctx context.Context, candidates []domain.Opportunity) {
	venue := venueFor(candidates[0])
	competition := c.successModel.CompetitionEstimate(venue)

	bundle, err := c.comp.Compose(ctx, candidates, competition)
	if err != nil {
		c.log.Warn().Err(err).Int("candidates", len(candidates)).Msg("bundle composition did not produce a bundle")
		return
	}

	c.bus.Emit(&events.BundleComposedData{BundleID: bundle.ID.String(), TxCount: len(bundle.Transactions)})

	features := submission.Features{
		BundleSize:       len(bundle.Transactions),
		TipToProfitRatio: tipToProfitRatio(bundle),
		VenueLandingRate: 1 - competition,
	}

	slot := atomic.LoadUint64(&c.currentSlot)
	record, err := c.submitter.Submit(ctx, bundle, slot, venue, features, c.cfg.BlockEngineAuthToken)
	if err != nil {
		c.log.Warn().Err(err).Str("bundle_id", bundle.ID.String()).Msg("bundle submission failed")
		return
	}

	c.bus.Emit(&events.BundleSubmittedData{BundleID: bundle.ID.String()})
	c.hub.Publish(subscription.TopicBundlesSubmitted, c.clk.NowNanos(), bundle)
	c.hub.Publish(subscription.TopicBundlesStatus, c.clk.NowNanos(), &record)
}

// pollLoop sweeps every non-terminal submission on PollInterval, fanning
// newly-terminal outcomes out to the Subscription Hub.
func (c *Core) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot := atomic.LoadUint64(&c.currentSlot)
			for _, id := range c.submitter.PendingBundleIDs() {
				record, err := c.submitter.PollStatus(ctx, id, slot)
				if err != nil {
					c.log.Debug().Err(err).Str("bundle_id", id).Msg("poll status failed")
					continue
				}
				if record.TerminalState.IsTerminal() {
					c.bus.Emit(&events.BundleTerminalData{
						BundleID:  id,
						State:     record.TerminalState.String(),
						Success:   record.TerminalState == domain.StatusLanded,
						LatencyNs: latencyOf(record),
					})
					c.hub.Publish(subscription.TopicBundlesStatus, c.clk.NowNanos(), &record)
				}
			}
		}
	}
}

// healthLoop periodically publishes the Chain Client's HealthSnapshot to
// the system health topic. The snapshot carries connectivity only; the
// CPU/RAM figures and counters appear on /api/system/status alone.
func (c *Core) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.chain.Health()
			c.hub.Publish(subscription.TopicSystemHealth, c.clk.NowNanos(), &snapshot)
		}
	}
}

func (c *Core) systemStatus() server.SystemStatusResponse {
	health := c.chain.Health()
	return server.SystemStatusResponse{
		ChainConnected: health.ChainConnected,
		LastGoodSlot:   health.LastGoodSlot,
		Counters: map[string]uint64{
			"candidate_pool_dropped": c.pool.Dropped(),
			"normalizer_decode_drops": c.norm.DecodeDrops(),
			"normalizer_order_drops":  c.norm.OrderDrops(),
			"market_graph_pools":      uint64(c.graph.Size()),
		},
	}
}

func (c *Core) advanceSlot(slot uint64) {
	for {
		cur := atomic.LoadUint64(&c.currentSlot)
		if slot <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&c.currentSlot, cur, slot) {
			return
		}
	}
}

// venueFor extracts the venue the first candidate in a compose batch
// targets, used to key the Success-Rate Model's per-venue tip and
// competition estimates.
func venueFor(o domain.Opportunity) string {
	switch o.Kind {
	case domain.OpportunityArbitrage:
		if o.ArbitrageData != nil && len(o.ArbitrageData.Path) > 0 {
			return o.ArbitrageData.Path[0].Venue.String()
		}
	case domain.OpportunitySandwich:
		if o.SandwichData != nil {
			return o.SandwichData.TargetPool.Venue.String()
		}
	case domain.OpportunityLiquidation:
		return domain.VenueLendingProtocol.String()
	}
	return "unknown"
}

// tipToProfitRatio supplies the Success-Rate Model's TipToProfitRatio
// feature. It returns the bundle's aggregate gas (which includes the tip
// transaction's compute) over its expected net profit, or 0 when the
// bundle has no tip transaction or no positive profit. A Bundle does not
// record its tip amount, so the tip in lamports is not part of the ratio.
func tipToProfitRatio(b *domain.Bundle) float64 {
	tip := b.TipTransaction()
	if tip == nil || b.ExpectedNetProfitLamports <= 0 {
		return 0
	}
	return float64(b.AggregateGasLamports) / float64(b.ExpectedNetProfitLamports)
}

func latencyOf(rec domain.SubmissionRecord) int64 {
	if rec.ObservedLatencyNs == nil {
		return 0
	}
	return *rec.ObservedLatencyNs
}
