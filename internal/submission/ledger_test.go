package submission

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aristath/mevengine/internal/domain"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenLedger_CreatesSchemaAndIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	l, err := OpenLedger(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	// Reopening an already-migrated database must not error.
	l2, err := OpenLedger(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}

func TestLedger_AppendInsertsARow(t *testing.T) {
	l := openTestLedger(t)
	rec := domain.SubmissionRecord{
		BundleID:               uuid.New(),
		SubmittedAtMonotonicNs: 1000,
		TerminalState:          domain.StatusPending,
	}

	require.NoError(t, l.Append(context.Background(), rec, map[string]float64{"tip_ratio": 0.1}))
}

func TestLedger_AppendIsUpsertOnBundleID(t *testing.T) {
	l := openTestLedger(t)
	id := uuid.New()
	slot := uint64(500)
	profit := int64(12345)
	latency := int64(9_000_000)

	pending := domain.SubmissionRecord{BundleID: id, SubmittedAtMonotonicNs: 1000, TerminalState: domain.StatusPending}
	require.NoError(t, l.Append(context.Background(), pending, nil))

	landed := domain.SubmissionRecord{
		BundleID:               id,
		SubmittedAtMonotonicNs: 1000,
		TerminalState:          domain.StatusLanded,
		LandedSlot:             &slot,
		RealizedProfitLamports: &profit,
		ObservedLatencyNs:      &latency,
	}
	require.NoError(t, l.Append(context.Background(), landed, nil))

	var state string
	row := l.conn.QueryRow("SELECT terminal_state FROM outcomes WHERE bundle_id = ?", id.String())
	require.NoError(t, row.Scan(&state))
	require.Equal(t, domain.StatusLanded.String(), state)

	var count int
	row = l.conn.QueryRow("SELECT COUNT(*) FROM outcomes WHERE bundle_id = ?", id.String())
	require.NoError(t, row.Scan(&count))
	require.Equal(t, 1, count)
}

func TestLedger_CheckpointDoesNotError(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Checkpoint())
}
