// Package core wires every subsystem into a single process-lifetime
// value: the Chain Client feeding the Normalizer and Market Graph, the
// three detectors feeding the candidate pool, the Bundle Composer and
// Submission Client draining it, and the Subscription Hub and HTTP
// server exposing the result. There is no other source of global
// mutable state in the process.
package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/chainclient"
	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/composer"
	"github.com/aristath/mevengine/internal/config"
	"github.com/aristath/mevengine/internal/detect/arbitrage"
	"github.com/aristath/mevengine/internal/detect/liquidation"
	"github.com/aristath/mevengine/internal/detect/sandwich"
	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/events"
	"github.com/aristath/mevengine/internal/marketgraph"
	"github.com/aristath/mevengine/internal/normalizer"
	"github.com/aristath/mevengine/internal/riskgas"
	"github.com/aristath/mevengine/internal/scheduler"
	"github.com/aristath/mevengine/internal/server"
	"github.com/aristath/mevengine/internal/submission"
	"github.com/aristath/mevengine/internal/subscription"
)

// composeTick is how often the candidate pool is drained into a Bundle
// Composer attempt. It runs far more often than a slot to keep detection
// latency from adding materially to composition latency.
const composeTick = 75 * time.Millisecond

// healthTick is how often a HealthSnapshot is published on the system
// health topic.
const healthTick = 2 * time.Second

// Core is the single wired value representing the whole running engine.
type Core struct {
	cfg *config.Config
	log zerolog.Logger
	clk clock.Clock

	bus   *events.Bus
	graph *marketgraph.Graph
	norm  *normalizer.Normalizer
	chain chainclient.Client

	priceOracle *graphPriceOracle

	arbDetector      *arbitrage.Detector
	liqDetector      *liquidation.Detector
	sandwichDetector *sandwich.Detector

	successModel *submission.SuccessModel
	tipPolicy    submission.TipPolicy
	ledger       *submission.Ledger
	submitter    *submission.Client

	comp *composer.Composer
	pool *candidatePool

	hub       *subscription.Hub
	httpSrv   *server.Server
	sched     *scheduler.Scheduler

	currentSlot uint64 // atomic, highest slot observed so far

	startedAt time.Time
}

// New stages construction the way the teacher's dependency-injection
// wiring does: each stage builds on the last, and a failure at any stage
// tears down everything already opened before returning.
func New(cfg *config.Config, log zerolog.Logger) (*Core, error) {
	c := &Core{
		cfg:       cfg,
		log:       log,
		clk:       clock.NewSystem(),
		startedAt: time.Now(),
	}

	c.initFoundation()
	c.initChainClient()
	c.initPriceOracle()
	c.initDetectors()

	if err := c.initSubmission(); err != nil {
		return nil, fmt.Errorf("initialize submission: %w", err)
	}

	c.initComposer()
	c.initSubscriptionAndServer()

	if err := c.initScheduler(); err != nil {
		c.ledger.Close()
		return nil, fmt.Errorf("initialize scheduler: %w", err)
	}

	return c, nil
}

func (c *Core) initFoundation() {
	c.bus = events.NewBus(c.log)
	c.graph = marketgraph.New(c.log)
	c.norm = normalizer.New(c.log)
}

func (c *Core) initChainClient() {
	c.chain = chainclient.NewWSClient(
		c.cfg.ChainWSURL,
		c.cfg.ReconnectBackoffInitial,
		c.cfg.ReconnectBackoffMax,
		c.cfg.HeartbeatInterval,
		c.cfg.ChainRetryAttemptCap,
		c.bus,
		c.log,
	)
}

func (c *Core) initPriceOracle() {
	c.priceOracle = newGraphPriceOracle(c.graph, c.cfg.QuoteMintToken, c.cfg.QuoteMintUSD)
}

func (c *Core) initDetectors() {
	c.successModel = submission.NewSuccessModel(0.1)

	c.arbDetector = arbitrage.New(arbitrage.Config{
		MaxHops:           c.cfg.MaxHops,
		MinProfitLamports: c.cfg.MinProfitLamports,
		MaxSlippageBps:    uint32(c.cfg.MaxSlippageBps),
		Watchlist:         c.cfg.WatchlistTokens,
	}, c.graph, c.clk, func(path marketgraph.Path) float64 {
		if len(path.Pools) == 0 {
			return 0.5
		}
		return c.successModel.CompetitionEstimate(path.Pools[0].Venue.String())
	}, c.log)

	c.liqDetector = liquidation.New(liquidation.Config{
		RescanInterval: c.cfg.RescanInterval,
		MaxLiqPerRound: c.cfg.MaxLiqPerRound,
	}, c.priceOracle, c.clk, c.log)

	c.sandwichDetector = sandwich.New(sandwich.Config{
		MinTargetValueUSD: c.cfg.MinTargetValueUSD,
		EthicalMode:       c.cfg.EthicalMode,
	}, c.graph, c.clk, func(swap domain.SwapEvent) float64 {
		return c.successModel.CompetitionEstimate(swap.Pool.Venue.String())
	}, c.log)
}

func (c *Core) initSubmission() error {
	ledger, err := submission.OpenLedger(c.cfg.LedgerDatabasePath, c.log)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	c.ledger = ledger

	c.tipPolicy = submission.TipPolicy{
		MinTipLamports: c.cfg.MinTipLamports,
		MaxTipLamports: c.cfg.MaxTipLamports,
	}

	c.submitter = submission.New(submission.Config{
		BlockEngineURL: c.cfg.BlockEngineURL,
		PollInterval:   c.cfg.PollInterval,
		BundleTTLSlots: uint64(c.cfg.BundleTTLSlots),
	}, c.successModel, c.ledger, c.clk, c.log)

	return nil
}

func (c *Core) initComposer() {
	c.comp = composer.New(composer.Config{
		MaxBundleTxs:      c.cfg.MaxBundleTxs,
		MaxBundleCompute:  uint64(c.cfg.MaxBundleCompute),
		SafetyMarginBps:   c.cfg.SafetyMarginBps,
		MaxComposeRetries: c.cfg.MaxComposeRetries,
		Strategy:          domain.Strategy(c.cfg.Strategy),
		TipAccount:        domain.TipAccount(c.cfg.TipAccountBytes),
	}, c.chain, c.tipPolicy, riskgas.DefaultWeights, c.clk, c.log)

	c.pool = newCandidatePool(1024, c.log)
}

func (c *Core) initSubscriptionAndServer() {
	c.hub = subscription.New(c.log)

	c.httpSrv = server.New(server.Config{
		Port:      c.cfg.Port,
		DevMode:   c.cfg.DevMode,
		Log:       c.log,
		Hub:       c.hub,
		StartedAt: c.startedAt,
	})
	c.httpSrv.SetStatusProvider(c.systemStatus)
}

func (c *Core) initScheduler() error {
	c.sched = scheduler.New(c.log)

	evictionJob := scheduler.NewPoolEvictionJob(c.graph, c.cfg.PoolTTL, c.clk, c.log)
	if err := c.sched.AddJob("@every 30s", evictionJob); err != nil {
		return fmt.Errorf("register pool eviction job: %w", err)
	}

	checkpointJob := scheduler.NewLedgerCheckpointJob(c.ledger, c.log)
	if err := c.sched.AddJob("@every 1m", checkpointJob); err != nil {
		return fmt.Errorf("register ledger checkpoint job: %w", err)
	}

	rescanJob := scheduler.NewLiquidationRescanJob(c.liqDetector, c.onOpportunities, c.log)
	rescanSchedule := fmt.Sprintf("@every %s", c.cfg.RescanInterval.String())
	if err := c.sched.AddJob(rescanSchedule, rescanJob); err != nil {
		return fmt.Errorf("register liquidation rescan job: %w", err)
	}

	return nil
}
