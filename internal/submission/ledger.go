package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure-Go driver

	"github.com/aristath/mevengine/internal/domain"
)

// Ledger is the Outcome Ledger: an append-only sqlite-backed log of
// submitted bundles and their realized outcomes, guarded by a single
// writer per §5's concurrency model.
type Ledger struct {
	conn *sql.DB
	log  zerolog.Logger
}

// OpenLedger opens (creating if needed) the sqlite database at path in
// WAL mode with a small connection pool, matching the production
// profile the teacher's database wrapper configures for an append-only
// audit log.
func OpenLedger(path string, log zerolog.Logger) (*Ledger, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	connStr := absPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	conn.SetMaxOpenConns(1) // single writer, per §5
	conn.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	l := &Ledger{conn: conn, log: log.With().Str("component", "outcome_ledger").Logger()}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	_, err := l.conn.Exec(`
		CREATE TABLE IF NOT EXISTS outcomes (
			bundle_id TEXT PRIMARY KEY,
			submitted_at TIMESTAMP NOT NULL,
			terminal_state TEXT NOT NULL,
			landed_slot INTEGER,
			realized_profit_lamports INTEGER,
			latency_ns INTEGER,
			features_json TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_state ON outcomes(terminal_state);
	`)
	if err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// Append writes rec's row. The first call for a bundle id inserts it; a
// later call for the same id updates terminal_state, landed_slot,
// realized_profit_lamports and latency_ns in place, keeping submitted_at
// and features_json from the first call. The submission client calls it
// once at PENDING and once at the terminal transition.
func (l *Ledger) Append(ctx context.Context, rec domain.SubmissionRecord, features map[string]float64) error {
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	var landedSlot, latencyNs, realizedProfit sql.NullInt64
	if rec.LandedSlot != nil {
		landedSlot = sql.NullInt64{Int64: int64(*rec.LandedSlot), Valid: true}
	}
	if rec.ObservedLatencyNs != nil {
		latencyNs = sql.NullInt64{Int64: *rec.ObservedLatencyNs, Valid: true}
	}
	if rec.RealizedProfitLamports != nil {
		realizedProfit = sql.NullInt64{Int64: *rec.RealizedProfitLamports, Valid: true}
	}

	_, err = l.conn.ExecContext(ctx, `
		INSERT INTO outcomes (bundle_id, submitted_at, terminal_state, landed_slot, realized_profit_lamports, latency_ns, features_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bundle_id) DO UPDATE SET
			terminal_state = excluded.terminal_state,
			landed_slot = excluded.landed_slot,
			realized_profit_lamports = excluded.realized_profit_lamports,
			latency_ns = excluded.latency_ns
	`,
		rec.BundleID.String(),
		time.Unix(0, rec.SubmittedAtMonotonicNs),
		rec.TerminalState.String(),
		landedSlot, realizedProfit, latencyNs,
		string(featuresJSON),
	)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}

// Checkpoint forces a WAL checkpoint, run periodically by the
// maintenance scheduler to bound WAL file growth.
func (l *Ledger) Checkpoint() error {
	_, err := l.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

// Close releases the underlying sqlite connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}
