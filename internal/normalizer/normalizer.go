// Package normalizer translates raw chain notifications into the typed
// domain events the rest of the pipeline consumes. One decoder per
// envelope kind (swap, pool_state, lending_position, block_reward),
// selected by the envelope's kind field; the notification's program id
// plays no part in choosing a decoder. Decoders are pure functions and
// never panic on malformed input.
package normalizer

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/aristath/mevengine/internal/domain"
)

// envelope is the wire shape every RawNotification.Data carries: a kind
// discriminator plus the kind-specific payload. Unknown kinds are
// dropped with a counter increment, never an error.
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const (
	kindSwap             = "swap"
	kindPoolState        = "pool_state"
	kindLendingPosition  = "lending_position"
	kindBlockReward      = "block_reward"
)

// Event is the tagged-union decode result: exactly one field is set.
type Event struct {
	Swap            *domain.SwapEvent
	PoolState       *domain.PoolStateEvent
	LendingPosition *domain.LendingPositionEvent
	BlockReward     *domain.BlockRewardEvent
}

// Normalizer decodes RawNotifications, tracking the last-seen slot per
// account to enforce per-account ordering and counting drops.
type Normalizer struct {
	mu          sync.Mutex
	lastSlot    map[[32]byte]uint64
	decodeDrops uint64
	orderDrops  uint64
	log         zerolog.Logger
}

// New creates a Normalizer.
func New(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		lastSlot: make(map[[32]byte]uint64),
		log:      log.With().Str("component", "normalizer").Logger(),
	}
}

// Decode translates one RawNotification into a typed Event. Out-of-order
// deliveries (a decreasing slot for the same account) and unparseable
// instructions are dropped, never returned as an error — callers consult
// DecodeDrops/OrderDrops for observability instead.
func (n *Normalizer) Decode(raw domain.RawNotification) (Event, bool) {
	n.mu.Lock()
	prior, seen := n.lastSlot[raw.AccountID]
	n.mu.Unlock()

	if seen && raw.Slot < prior {
		atomic.AddUint64(&n.orderDrops, 1)
		n.log.Debug().Uint64("slot", raw.Slot).Uint64("prior_slot", prior).Msg("dropped out-of-order notification")
		return Event{}, false
	}

	var env envelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		atomic.AddUint64(&n.decodeDrops, 1)
		n.log.Debug().Err(err).Msg("dropped unparseable notification")
		return Event{}, false
	}

	event, ok := n.decodeByKind(env, raw)
	if !ok {
		atomic.AddUint64(&n.decodeDrops, 1)
		return Event{}, false
	}

	n.mu.Lock()
	n.lastSlot[raw.AccountID] = raw.Slot
	n.mu.Unlock()

	return event, true
}

func (n *Normalizer) decodeByKind(env envelope, raw domain.RawNotification) (Event, bool) {
	switch env.Kind {
	case kindSwap:
		var s domain.SwapEvent
		if err := json.Unmarshal(env.Payload, &s); err != nil {
			n.log.Debug().Err(err).Msg("dropped malformed swap payload")
			return Event{}, false
		}
		s.Slot = raw.Slot
		s.ObservedAt = raw.ObservedAt
		return Event{Swap: &s}, true

	case kindPoolState:
		var p domain.PoolStateEvent
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			n.log.Debug().Err(err).Msg("dropped malformed pool state payload")
			return Event{}, false
		}
		p.Slot = raw.Slot
		p.ObservedAt = raw.ObservedAt
		return Event{PoolState: &p}, true

	case kindLendingPosition:
		var l domain.LendingPositionEvent
		if err := json.Unmarshal(env.Payload, &l); err != nil {
			n.log.Debug().Err(err).Msg("dropped malformed lending position payload")
			return Event{}, false
		}
		l.Slot = raw.Slot
		l.ObservedAt = raw.ObservedAt
		return Event{LendingPosition: &l}, true

	case kindBlockReward:
		var b domain.BlockRewardEvent
		if err := json.Unmarshal(env.Payload, &b); err != nil {
			n.log.Debug().Err(err).Msg("dropped malformed block reward payload")
			return Event{}, false
		}
		b.Slot = raw.Slot
		b.ObservedAt = raw.ObservedAt
		return Event{BlockReward: &b}, true

	default:
		n.log.Debug().Str("kind", env.Kind).Msg("dropped unknown instruction kind")
		return Event{}, false
	}
}

// DecodeDrops returns the cumulative count of unparseable notifications.
func (n *Normalizer) DecodeDrops() uint64 { return atomic.LoadUint64(&n.decodeDrops) }

// OrderDrops returns the cumulative count of out-of-order notifications.
func (n *Normalizer) OrderDrops() uint64 { return atomic.LoadUint64(&n.orderDrops) }
