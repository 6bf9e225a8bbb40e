package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
)

// graphEvictor is the subset of *marketgraph.Graph the eviction job needs.
type graphEvictor interface {
	EvictStale(before time.Time) int
}

// PoolEvictionJob evicts Market Graph entries older than TTL, bounding
// graph memory as pools go quiet or venues disappear.
type PoolEvictionJob struct {
	graph graphEvictor
	ttl   time.Duration
	clk   clock.Clock
	log   zerolog.Logger
}

// NewPoolEvictionJob creates a PoolEvictionJob.
func NewPoolEvictionJob(graph graphEvictor, ttl time.Duration, clk clock.Clock, log zerolog.Logger) *PoolEvictionJob {
	return &PoolEvictionJob{graph: graph, ttl: ttl, clk: clk, log: log.With().Str("job", "pool_eviction").Logger()}
}

func (j *PoolEvictionJob) Name() string { return "pool_eviction" }

func (j *PoolEvictionJob) Run() error {
	cutoff := j.clk.Now().Add(-j.ttl)
	evicted := j.graph.EvictStale(cutoff)
	if evicted > 0 {
		j.log.Info().Int("evicted", evicted).Msg("evicted stale pools")
	}
	return nil
}

// checkpointer is the subset of *submission.Ledger the checkpoint job needs.
type checkpointer interface {
	Checkpoint() error
}

// LedgerCheckpointJob periodically forces a WAL checkpoint to bound the
// Outcome Ledger's WAL file growth.
type LedgerCheckpointJob struct {
	ledger checkpointer
	log    zerolog.Logger
}

// NewLedgerCheckpointJob creates a LedgerCheckpointJob.
func NewLedgerCheckpointJob(ledger checkpointer, log zerolog.Logger) *LedgerCheckpointJob {
	return &LedgerCheckpointJob{ledger: ledger, log: log.With().Str("job", "ledger_checkpoint").Logger()}
}

func (j *LedgerCheckpointJob) Name() string { return "ledger_checkpoint" }

func (j *LedgerCheckpointJob) Run() error {
	if err := j.ledger.Checkpoint(); err != nil {
		return err
	}
	j.log.Debug().Msg("ledger WAL checkpoint complete")
	return nil
}

// rescanner is the subset of *liquidation.Detector the rescan job needs.
type rescanner interface {
	Rescan() []domain.Opportunity
}

// LiquidationRescanJob periodically re-evaluates tracked lending
// positions for health-factor crossings that a missed event left
// undetected, per §4.5's debounced periodic rescan.
type LiquidationRescanJob struct {
	detector rescanner
	onFound  func([]domain.Opportunity)
	log      zerolog.Logger
}

// NewLiquidationRescanJob creates a LiquidationRescanJob. onFound is
// invoked with any newly-surfaced liquidation Opportunities.
func NewLiquidationRescanJob(detector rescanner, onFound func([]domain.Opportunity), log zerolog.Logger) *LiquidationRescanJob {
	return &LiquidationRescanJob{detector: detector, onFound: onFound, log: log.With().Str("job", "liquidation_rescan").Logger()}
}

func (j *LiquidationRescanJob) Name() string { return "liquidation_rescan" }

func (j *LiquidationRescanJob) Run() error {
	found := j.detector.Rescan()
	if len(found) > 0 {
		j.log.Info().Int("count", len(found)).Msg("rescan surfaced liquidation opportunities")
		if j.onFound != nil {
			j.onFound(found)
		}
	}
	return nil
}
