// Package submission implements the Submission Client: bundle submission
// to the block-engine auction, status polling, tip computation, and the
// online Success-Rate Model, backed by the Outcome Ledger.
package submission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/clock"
	"github.com/aristath/mevengine/internal/domain"
)

// Config holds the submission client's tunables.
type Config struct {
	BlockEngineURL string
	PollInterval   time.Duration
	BundleTTLSlots uint64
}

// inflight tracks one bundle between submit() and its terminal
// transition, mutated only by the poller per §5's concurrency model.
type inflight struct {
	bundle       *domain.Bundle
	record       domain.SubmissionRecord
	submittedSlot uint64
	features     Features
	venue        string
}

// Client is the Submission Client.
type Client struct {
	cfg    Config
	http   *http.Client
	model  *SuccessModel
	ledger *Ledger
	clk    clock.Clock

	mu       sync.Mutex
	inflight map[string]*inflight

	log zerolog.Logger
}

// New creates a submission Client.
func New(cfg Config, model *SuccessModel, ledger *Ledger, clk clock.Clock, log zerolog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: 10 * time.Second},
		model:    model,
		ledger:   ledger,
		clk:      clk,
		inflight: make(map[string]*inflight),
		log:      log.With().Str("component", "submission_client").Logger(),
	}
}

type sendBundleRequest struct {
	Bundle []string `json:"bundle"` // base64-encoded signed transactions
	Auth   string   `json:"auth"`
}

type sendBundleResponse struct {
	BundleID string `json:"bundleId"`
}

// Submit performs a single network submission with a monotonic id,
// records PENDING, and returns immediately. currentSlot anchors the
// bundle's TTL expiry clock.
func (c *Client) Submit(ctx context.Context, bundle *domain.Bundle, currentSlot uint64, venue string, features Features, auth string) (domain.SubmissionRecord, error) {
	encoded := make([]string, len(bundle.Transactions))
	for i, tx := range bundle.Transactions {
		encoded[i] = base64.StdEncoding.EncodeToString(tx.Payload)
	}

	body, err := json.Marshal(sendBundleRequest{Bundle: encoded, Auth: auth})
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("marshal sendBundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BlockEngineURL+"/sendBundle", bytes.NewReader(body))
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("build sendBundle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("%w: %v", domain.ErrSubmissionRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.SubmissionRecord{}, fmt.Errorf("%w: sendBundle returned status %d", domain.ErrSubmissionRejected, resp.StatusCode)
	}

	var out sendBundleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("decode sendBundle response: %w", err)
	}

	record := domain.SubmissionRecord{
		BundleID:               bundle.ID,
		SubmittedAtMonotonicNs: c.clk.NowNanos(),
		TerminalState:          domain.StatusPending,
	}

	c.mu.Lock()
	c.inflight[bundle.ID.String()] = &inflight{
		bundle:        bundle,
		record:        record,
		submittedSlot: currentSlot,
		features:      features,
		venue:         venue,
	}
	c.mu.Unlock()

	if c.ledger != nil {
		if err := c.ledger.Append(ctx, record, featuresToMap(features)); err != nil {
			c.log.Error().Err(err).Msg("failed to append PENDING record to ledger")
		}
	}

	return record, nil
}

type bundleStatusResponse struct {
	Statuses []struct {
		BundleID     string  `json:"bundleId"`
		Status       string  `json:"status"`
		LandedSlot   *uint64 `json:"landedSlot,omitempty"`
		ProfitLamports *int64 `json:"profitLamports,omitempty"`
	} `json:"statuses"`
}

// PollStatus is idempotent: it transitions PENDING -> a terminal state
// exactly once. EXPIRED is assigned once BundleTTLSlots elapses without
// a terminal answer from the block engine.
func (c *Client) PollStatus(ctx context.Context, bundleID string, currentSlot uint64) (domain.SubmissionRecord, error) {
	c.mu.Lock()
	entry, ok := c.inflight[bundleID]
	c.mu.Unlock()
	if !ok {
		return domain.SubmissionRecord{}, fmt.Errorf("unknown bundle id %s", bundleID)
	}
	if entry.record.TerminalState.IsTerminal() {
		return entry.record, nil // idempotent: already terminal
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BlockEngineURL+"/getBundleStatuses?bundleId="+bundleID, nil)
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("build getBundleStatuses request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.maybeExpire(ctx, entry, currentSlot), nil
	}
	defer resp.Body.Close()

	var statuses bundleStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil || len(statuses.Statuses) == 0 {
		return c.maybeExpire(ctx, entry, currentSlot), nil
	}

	s := statuses.Statuses[0]
	var terminal domain.TerminalState
	switch s.Status {
	case "LANDED":
		terminal = domain.StatusLanded
	case "FAILED":
		terminal = domain.StatusFailed
	case "REJECTED":
		terminal = domain.StatusRejected
	case "EXPIRED":
		terminal = domain.StatusExpired
	default:
		return c.maybeExpire(ctx, entry, currentSlot), nil // still PENDING
	}

	return c.finalize(ctx, entry, terminal, s.LandedSlot, s.ProfitLamports), nil
}

func (c *Client) maybeExpire(ctx context.Context, entry *inflight, currentSlot uint64) domain.SubmissionRecord {
	if c.cfg.BundleTTLSlots > 0 && currentSlot > entry.submittedSlot+c.cfg.BundleTTLSlots {
		return c.finalize(ctx, entry, domain.StatusExpired, nil, nil)
	}
	return entry.record
}

func (c *Client) finalize(ctx context.Context, entry *inflight, terminal domain.TerminalState, landedSlot *uint64, realizedProfit *int64) domain.SubmissionRecord {
	c.mu.Lock()
	if entry.record.TerminalState.IsTerminal() {
		rec := entry.record
		c.mu.Unlock()
		return rec // already transitioned: idempotent no-op
	}

	latencyNs := c.clk.NowNanos() - entry.record.SubmittedAtMonotonicNs
	entry.record.TerminalState = terminal
	entry.record.LandedSlot = landedSlot
	entry.record.ObservedLatencyNs = &latencyNs
	entry.record.RealizedProfitLamports = realizedProfit
	rec := entry.record
	c.mu.Unlock()

	success := terminal == domain.StatusLanded
	if c.model != nil {
		c.model.Record(entry.venue, entry.features, success, latencyNs)
	}
	if c.ledger != nil {
		if err := c.ledger.Append(ctx, rec, featuresToMap(entry.features)); err != nil {
			c.log.Error().Err(err).Msg("failed to append terminal record to ledger")
		}
	}

	return rec
}

// PendingBundleIDs returns the ids of every submitted bundle that has not
// yet reached a terminal state, for the poller loop to sweep.
func (c *Client) PendingBundleIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.inflight))
	for id, entry := range c.inflight {
		if !entry.record.TerminalState.IsTerminal() {
			out = append(out, id)
		}
	}
	return out
}

// BatchResult pairs a bundle id with its outcome from a Batch call.
type BatchResult struct {
	BundleID string
	Record   domain.SubmissionRecord
	Err      error
}

// Batch submits bundles in parallel, preserving per-bundle outcomes.
// A per-bundle failure fans out as an individual REJECTED record rather
// than failing the whole batch.
func (c *Client) Batch(ctx context.Context, bundles []*domain.Bundle, currentSlot uint64, venue string, features []Features, auth string) []BatchResult {
	results := make([]BatchResult, len(bundles))
	var wg sync.WaitGroup
	wg.Add(len(bundles))

	for i, bundle := range bundles {
		i, bundle := i, bundle
		go func() {
			defer wg.Done()
			f := Features{}
			if i < len(features) {
				f = features[i]
			}
			rec, err := c.Submit(ctx, bundle, currentSlot, venue, f, auth)
			if err != nil {
				rec = domain.SubmissionRecord{
					BundleID:               bundle.ID,
					SubmittedAtMonotonicNs: c.clk.NowNanos(),
					TerminalState:          domain.StatusRejected,
				}
			}
			results[i] = BatchResult{BundleID: bundle.ID.String(), Record: rec, Err: err}
		}()
	}

	wg.Wait()
	return results
}

func featuresToMap(f Features) map[string]float64 {
	return map[string]float64{
		"bundle_size":            float64(f.BundleSize),
		"tip_to_profit_ratio":    f.TipToProfitRatio,
		"venue_landing_rate":     f.VenueLandingRate,
		"time_of_slot_fraction":  f.TimeOfSlotFraction,
		"builder_inclusion_rate": f.BuilderInclusionRate,
	}
}
