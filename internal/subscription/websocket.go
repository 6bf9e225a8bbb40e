package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

const (
	msgpackSubprotocol = "mevstream.msgpack"
	clientWriteWait    = 10 * time.Second
	controlReadLimit   = 1 << 20
)

// controlFrame is the inbound client control message shape: subscribe,
// unsubscribe, or ping.
type controlFrame struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe" | "ping"
	Topic  Topic  `json:"topic"`
	MinProfitLamports *int64 `json:"min_profit_lamports,omitempty"`
}

// Handler serves the Subscription Hub's WebSocket accept path,
// generalizing the teacher's per-connection-channel SSE handler to a
// typed, topic-indexed, bidirectional protocol.
type Handler struct {
	hub *Hub
	log zerolog.Logger
}

// NewHandler creates a WebSocket Handler over hub.
func NewHandler(hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{hub: hub, log: log.With().Str("component", "subscription_ws").Logger()}
}

// ServeHTTP upgrades the connection and services it until the client
// disconnects or the request context is cancelled.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{msgpackSubprotocol},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	conn.SetReadLimit(controlReadLimit)

	binary := conn.Subprotocol() == msgpackSubprotocol

	id := uuid.NewString()
	h.hub.Register(id)
	defer h.hub.Unregister(id)

	ctx := r.Context()
	merged := make(chan Envelope, subscriberQueueDepth)
	notices := h.hub.Notices(id)

	go h.readControlFrames(ctx, conn, id, merged)

	h.log.Info().Str("subscriber", id).Msg("subscriber connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case notice, ok := <-notices:
			if !ok {
				continue
			}
			if err := h.writeFrame(ctx, conn, binary, "drop", notice); err != nil {
				return
			}
		case env, ok := <-merged:
			if !ok {
				continue
			}
			if err := h.writeFrame(ctx, conn, binary, "event", env); err != nil {
				return
			}
		}
	}
}

// readControlFrames services subscribe/unsubscribe/ping control frames
// from the client and re-publishes each subscribed topic's queue into a
// single merged channel this connection's write loop drains, so one
// slow topic never head-of-line-blocks another (each topic keeps its
// own bounded hub queue; only the final hop to the socket is merged).
func (h *Handler) readControlFrames(ctx context.Context, conn *websocket.Conn, id string, merged chan Envelope) {
	defer close(merged)
	active := make(map[Topic]chan Envelope)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var cf controlFrame
		if err := json.Unmarshal(data, &cf); err != nil {
			continue // malformed control frame: drop, don't disconnect
		}

		switch cf.Action {
		case "subscribe":
			var filter FilterFunc
			if cf.MinProfitLamports != nil {
				floor := *cf.MinProfitLamports
				filter = func(payload interface{}) bool {
					return profitFloorPasses(payload, floor)
				}
			}
			q := h.hub.Subscribe(id, cf.Topic, filter)
			if q == nil {
				continue
			}
			if _, already := active[cf.Topic]; !already {
				active[cf.Topic] = q
				go forward(ctx, q, merged)
			}
		case "unsubscribe":
			h.hub.Unsubscribe(id, cf.Topic)
			delete(active, cf.Topic)
		case "ping":
			// liveness only; no response frame required
		}
	}
}

func forward(ctx context.Context, q chan Envelope, merged chan Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-q:
			if !ok {
				return
			}
			select {
			case merged <- env:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, binary bool, kind string, payload interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, clientWriteWait)
	defer cancel()

	if binary {
		data, err := msgpack.Marshal(payload)
		if err != nil {
			return err
		}
		return conn.Write(writeCtx, websocket.MessageBinary, data)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// profitFloorPasses is the one built-in server-side filter predicate
// named in §4.10 ("profit >= X"); payloads without a recognizable
// profit field always pass.
func profitFloorPasses(payload interface{}, floor int64) bool {
	type profitable interface {
		NetExpectedProfit() int64
	}
	if p, ok := payload.(profitable); ok {
		return p.NetExpectedProfit() >= floor
	}
	return true
}
