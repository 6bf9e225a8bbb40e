package chainclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/mevengine/internal/domain"
)

func newTestWSClient(t *testing.T, handler http.HandlerFunc) *WSClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &WSClient{url: srv.URL, httpClient: srv.Client()}
}

func TestSimulate_SuccessDecodesResult(t *testing.T) {
	c := newTestWSClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params struct {
				Transaction []byte `json:"transaction"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "simulateTransaction", req.Method)
		assert.Equal(t, []byte("payload"), req.Params.Transaction)

		json.NewEncoder(w).Encode(domain.SimulationResult{Success: true, ConsumedComputeUnits: 12_000})
	})

	res, err := c.Simulate(context.Background(), Transaction{Payload: []byte("payload")})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, uint64(12_000), res.ConsumedComputeUnits)
}

func TestSimulate_NonOKStatusIsSimulationFailed(t *testing.T) {
	c := newTestWSClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Simulate(context.Background(), Transaction{Payload: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrSimulationFailed)
}
