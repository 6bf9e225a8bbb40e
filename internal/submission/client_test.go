package submission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
)

func testBundle() *domain.Bundle {
	return &domain.Bundle{
		ID: uuid.New(),
		Transactions: []domain.Transaction{
			{Payload: []byte("tx1")},
			{Payload: []byte("tip"), IsTip: true},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *clock.Frozen) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clk := clock.NewFrozen(1_000_000_000)
	c := New(Config{BlockEngineURL: srv.URL, BundleTTLSlots: 50}, NewSuccessModel(0.1), nil, clk, zerolog.Nop())
	return c, clk
}

func TestClient_Submit_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendBundle", r.URL.Path)
		var req sendBundleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Bundle, 2)

		json.NewEncoder(w).Encode(sendBundleResponse{BundleID: "abc"})
	})

	bundle := testBundle()
	rec, err := c.Submit(context.Background(), bundle, 100, "AMM_CONSTANT_PRODUCT", Features{}, "auth-token")
	require.NoError(t, err)
	assert.Equal(t, bundle.ID, rec.BundleID)
	assert.Equal(t, domain.StatusPending, rec.TerminalState)

	assert.Contains(t, c.PendingBundleIDs(), bundle.ID.String())
}

func TestClient_Submit_RejectedOnNon200(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Submit(context.Background(), testBundle(), 1, "AMM_CONSTANT_PRODUCT", Features{}, "")
	assert.ErrorIs(t, err, domain.ErrSubmissionRejected)
}

func TestClient_PollStatus_TransitionsToLanded(t *testing.T) {
	landedSlot := uint64(105)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sendBundle" {
			json.NewEncoder(w).Encode(sendBundleResponse{BundleID: "abc"})
			return
		}
		json.NewEncoder(w).Encode(bundleStatusResponse{
			Statuses: []struct {
				BundleID       string  `json:"bundleId"`
				Status         string  `json:"status"`
				LandedSlot     *uint64 `json:"landedSlot,omitempty"`
				ProfitLamports *int64  `json:"profitLamports,omitempty"`
			}{{Status: "LANDED", LandedSlot: &landedSlot}},
		})
	})

	bundle := testBundle()
	rec, err := c.Submit(context.Background(), bundle, 100, "AMM_CONSTANT_PRODUCT", Features{}, "")
	require.NoError(t, err)

	rec, err = c.PollStatus(context.Background(), rec.BundleID.String(), 101)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLanded, rec.TerminalState)
	assert.Equal(t, landedSlot, *rec.LandedSlot)

	assert.NotContains(t, c.PendingBundleIDs(), bundle.ID.String())
}

func TestClient_PollStatus_IsIdempotentOnceTerminal(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sendBundle" {
			json.NewEncoder(w).Encode(sendBundleResponse{BundleID: "abc"})
			return
		}
		calls++
		json.NewEncoder(w).Encode(bundleStatusResponse{
			Statuses: []struct {
				BundleID       string  `json:"bundleId"`
				Status         string  `json:"status"`
				LandedSlot     *uint64 `json:"landedSlot,omitempty"`
				ProfitLamports *int64  `json:"profitLamports,omitempty"`
			}{{Status: "FAILED"}},
		})
	})

	bundle := testBundle()
	rec, err := c.Submit(context.Background(), bundle, 100, "AMM_CONSTANT_PRODUCT", Features{}, "")
	require.NoError(t, err)

	first, err := c.PollStatus(context.Background(), rec.BundleID.String(), 101)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, first.TerminalState)
	assert.Equal(t, 1, calls)

	second, err := c.PollStatus(context.Background(), rec.BundleID.String(), 102)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "a terminal record must not re-poll the network")
}

func TestClient_PollStatus_ExpiresAfterTTLWithNoAnswer(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sendBundle" {
			json.NewEncoder(w).Encode(sendBundleResponse{BundleID: "abc"})
			return
		}
		json.NewEncoder(w).Encode(bundleStatusResponse{}) // no statuses: still PENDING
	})

	bundle := testBundle()
	rec, err := c.Submit(context.Background(), bundle, 100, "AMM_CONSTANT_PRODUCT", Features{}, "")
	require.NoError(t, err)

	// Within TTL: stays pending.
	rec, err = c.PollStatus(context.Background(), rec.BundleID.String(), 100+49)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rec.TerminalState)

	// Past TTL: expires.
	rec, err = c.PollStatus(context.Background(), rec.BundleID.String(), 100+51)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, rec.TerminalState)
}

func TestClient_PollStatus_UnknownBundleID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.PollStatus(context.Background(), "does-not-exist", 1)
	assert.Error(t, err)
}

func TestClient_Batch_PerBundleResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendBundleResponse{BundleID: "abc"})
	})

	bundles := []*domain.Bundle{testBundle(), testBundle()}
	results := c.Batch(context.Background(), bundles, 1, "AMM_CONSTANT_PRODUCT", nil, "")

	require.Len(t, results, 2)
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, bundles[i].ID.String(), r.BundleID)
	}
}
