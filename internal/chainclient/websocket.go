package chainclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/mevengine/internal/domain"
	"github.com/aristath/mevengine/internal/events"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	replayBufferCapacity = 4096
)

// WSClient is the production Client backed by a reconnecting WebSocket
// push stream to the chain's account/program notification endpoint.
type WSClient struct {
	url        string
	httpClient *http.Client

	initialBackoff time.Duration
	maxBackoff     time.Duration
	heartbeat      time.Duration
	attemptCap     int

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	connected  bool
	stopped    bool
	attempts   int
	lastGoodSlot uint64

	replay *replayBuffer

	bus *events.Bus
	log zerolog.Logger
}

// NewWSClient creates a chain client dialing url, with reconnect backoff
// bounded by [initialBackoff, maxBackoff] and a heartbeat cadence sent to
// the server every heartbeat interval.
func NewWSClient(url string, initialBackoff, maxBackoff, heartbeat time.Duration, attemptCap int, bus *events.Bus, log zerolog.Logger) *WSClient {
	return &WSClient{
		url:            url,
		httpClient:     http1Client(),
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		heartbeat:      heartbeat,
		attemptCap:     attemptCap,
		replay:         newReplayBuffer(replayBufferCapacity),
		bus:            bus,
		log:            log.With().Str("component", "chainclient").Logger(),
	}
}

// http1Client forces HTTP/1.1 so the WebSocket upgrade handshake doesn't
// collide with an ALPN-negotiated HTTP/2 connection.
func http1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// Subscribe dials the chain's push endpoint and returns a channel of
// StreamItems. The connection auto-reconnects with exponential backoff
// until ctx is cancelled.
func (c *WSClient) Subscribe(ctx context.Context, filter Filter) (<-chan StreamItem, error) {
	out := make(chan StreamItem, 1024)

	if err := c.connect(ctx, filter); err != nil {
		c.log.Warn().Err(err).Msg("initial chain connection failed, retrying in background")
		go c.reconnectLoop(ctx, filter, out)
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out, nil
	}

	c.mu.RLock()
	connCtx := c.connCtx
	c.mu.RUnlock()
	go c.readLoop(connCtx, filter, out)
	go c.heartbeatLoop(connCtx)
	go func() {
		<-ctx.Done()
		c.disconnect()
		close(out)
	}()

	return out, nil
}

func (c *WSClient) connect(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChainUnavailable, err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connCtx = connCtx
	c.cancelFunc = connCancel
	c.connected = true

	if err := c.sendSubscribe(connCtx, filter); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		c.conn = nil
		c.connCtx = nil
		c.cancelFunc = nil
		c.connected = false
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

func (c *WSClient) sendSubscribe(ctx context.Context, filter Filter) error {
	msg := struct {
		ProgramIDs    [][32]byte `json:"program_ids"`
		AccountScopes [][32]byte `json:"account_scopes"`
	}{filter.ProgramIDs, filter.AccountScopes}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageBinary, data)
}

func (c *WSClient) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
	c.conn = nil
	c.connected = false
}

func (c *WSClient) readLoop(ctx context.Context, filter Filter, out chan<- StreamItem) {
	defer func() {
		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if !stopped {
			go c.reconnectLoop(ctx, filter, out)
		}
	}()

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			closeStatus := websocket.CloseStatus(err)
			if closeStatus != websocket.StatusNormalClosure {
				c.log.Warn().Err(err).Msg("chain stream read error")
			}
			return
		}
		if msgType != websocket.MessageBinary && msgType != websocket.MessageText {
			continue
		}

		notification, err := decodeWireNotification(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropped malformed chain notification envelope")
			continue
		}
		if err := c.replay.push(notification); err != nil {
			c.log.Error().Err(err).Msg("failed to push into replay buffer")
		}

		c.mu.Lock()
		c.lastGoodSlot = notification.Slot
		c.mu.Unlock()

		select {
		case out <- StreamItem{Notification: &notification}:
		default:
			c.log.Warn().Msg("chain stream consumer queue full, dropping notification")
		}
	}
}

// wireNotification is the wire shape of one push message: the account
// and slot it was observed at, tagging the envelope the normalizer
// itself decodes (Data carries that envelope's {kind,payload} JSON
// unexamined).
type wireNotification struct {
	ProgramID [32]byte        `json:"program_id"`
	AccountID [32]byte        `json:"account_id"`
	Slot      uint64          `json:"slot"`
	Data      json.RawMessage `json:"data"`
}

// decodeWireNotification parses one raw push message into a
// domain.RawNotification, stamping ObservedAt at decode time. Kept as a
// pure function, separate from readLoop's connection handling, so it can
// be exercised without a live WebSocket.
func decodeWireNotification(raw []byte) (domain.RawNotification, error) {
	var wire wireNotification
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.RawNotification{}, fmt.Errorf("decode chain notification envelope: %w", err)
	}
	return domain.RawNotification{
		ProgramID:  wire.ProgramID,
		AccountID:  wire.AccountID,
		Slot:       wire.Slot,
		Data:       []byte(wire.Data),
		ObservedAt: time.Now(),
	}, nil
}

func (c *WSClient) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn == nil {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (c *WSClient) reconnectLoop(ctx context.Context, filter Filter, out chan<- StreamItem) {
	attempt := 0
	lastGoodSlot := c.Health().LastGoodSlot

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		c.mu.Lock()
		c.attempts = attempt
		c.mu.Unlock()

		delay := backoff(attempt, c.initialBackoff, c.maxBackoff)
		c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting to chain")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		if err := c.connect(ctx, filter); err != nil {
			c.log.Error().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		c.mu.Lock()
		c.attempts = 0
		connCtx := c.connCtx
		c.mu.Unlock()

		// Replay whatever the buffer still holds before handing the
		// consumer a bare gap marker: notifications dropped upstream of
		// this point (e.g. a full consumer queue) get a second chance
		// instead of leaving a silent hole in the per-account sequence.
		if replayed, err := c.replay.snapshot(); err != nil {
			c.log.Error().Err(err).Msg("failed to snapshot replay buffer for reconnect")
		} else {
			for i := range replayed {
				n := replayed[i]
				select {
				case out <- StreamItem{Notification: &n}:
				default:
					c.log.Warn().Msg("dropped replayed notification: consumer queue full")
				}
			}
		}

		gap := domain.SequenceGap{LastGoodSlot: lastGoodSlot, ReconnectedAtSlot: c.Health().LastGoodSlot}
		select {
		case out <- StreamItem{Gap: &gap}:
		default:
			c.log.Warn().Msg("dropped SequenceGap marker: consumer queue full")
		}
		if c.bus != nil {
			c.bus.Emit(&events.SequenceGapData{
				LastGoodSlot:      gap.LastGoodSlot,
				ReconnectedAtSlot: gap.ReconnectedAtSlot,
			})
		}

		go c.readLoop(connCtx, filter, out)
		go c.heartbeatLoop(connCtx)
		return
	}
}

// Health reports current connectivity. It leaves the snapshot's
// CPUPercent and MemPercent at zero; process CPU/RAM is sampled
// separately by internal/server for /api/system/status.
func (c *WSClient) Health() domain.HealthSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.HealthSnapshot{
		ChainConnected:    c.connected,
		LastGoodSlot:      c.lastGoodSlot,
		ReconnectAttempts: c.attempts,
		ObservedAt:        time.Now(),
	}
}
