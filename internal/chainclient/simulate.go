package chainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aristath/mevengine/internal/domain"
)

// Simulate submits tx to the chain's simulation RPC endpoint and returns
// the success flag, logs, consumed compute units, and balance deltas.
// Transient errors are not retried here — retry policy belongs to the
// caller (the Bundle Composer's validation step), matching §4.7's
// contract that composition retries, not this client, own that loop.
func (c *WSClient) Simulate(ctx context.Context, tx Transaction) (domain.SimulationResult, error) {
	rpcURL := c.url
	body, err := json.Marshal(struct {
		Method string `json:"method"`
		Params struct {
			Transaction []byte `json:"transaction"`
		} `json:"params"`
	}{
		Method: "simulateTransaction",
		Params: struct {
			Transaction []byte `json:"transaction"`
		}{Transaction: tx.Payload},
	})
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("marshal simulate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(body))
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("build simulate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("%w: %v", domain.ErrChainUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SimulationResult{}, fmt.Errorf("%w: simulate returned status %d", domain.ErrSimulationFailed, resp.StatusCode)
	}

	var result domain.SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.SimulationResult{}, fmt.Errorf("decode simulate response: %w", err)
	}

	return result, nil
}
