// Package subscription implements the Subscription Hub: topic-indexed
// fan-out of opportunities, bundles, and status to WebSocket subscribers,
// generalizing the teacher's SSE event stream to a typed, multi-topic,
// per-subscriber-FIFO protocol.
package subscription

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Topic is one of the hub's fixed set of fan-out channels. Topics are
// enumerated; there is no dynamic topic creation.
type Topic string

const (
	TopicOpportunitiesArbitrage  Topic = "opportunities.arbitrage"
	TopicOpportunitiesLiquidation Topic = "opportunities.liquidation"
	TopicOpportunitiesSandwich   Topic = "opportunities.sandwich"
	TopicBundlesSubmitted        Topic = "bundles.submitted"
	TopicBundlesStatus           Topic = "bundles.status"
	TopicMarketPoolUpdates       Topic = "market.pool_updates"
	TopicSystemHealth            Topic = "system.health"
)

var allTopics = []Topic{
	TopicOpportunitiesArbitrage,
	TopicOpportunitiesLiquidation,
	TopicOpportunitiesSandwich,
	TopicBundlesSubmitted,
	TopicBundlesStatus,
	TopicMarketPoolUpdates,
	TopicSystemHealth,
}

// Envelope is the wire shape delivered to subscribers: seq is monotonic
// per topic per subscriber.
type Envelope struct {
	Topic   Topic       `json:"topic" msgpack:"topic"`
	Seq     uint64      `json:"seq" msgpack:"seq"`
	TsNanos int64       `json:"ts" msgpack:"ts"`
	Payload interface{} `json:"payload" msgpack:"payload"`
}

// DropNotice is the server-originated control frame sent exactly once
// when a subscriber is dropped from a topic for backpressure.
type DropNotice struct {
	Topic  Topic  `json:"topic" msgpack:"topic"`
	Reason string `json:"reason" msgpack:"reason"`
}

// FilterFunc lets a subscriber narrow a topic server-side (profit floor,
// venue allow-list, ...) before delivery.
type FilterFunc func(payload interface{}) bool

const subscriberQueueDepth = 256

// subscriber holds one client's per-topic delivery state. Its maps are
// guarded by mu; queue sends happen outside mu and are safe for
// concurrent publishers.
type subscriber struct {
	id       string
	queues   map[Topic]chan Envelope
	filters  map[Topic]FilterFunc
	seq      map[Topic]*uint64
	dropped  map[Topic]bool
	mu       sync.Mutex
	notices  chan DropNotice
	closed   int32
}

// Hub is the Subscription Hub.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	log         zerolog.Logger
}

// New creates a Hub.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		log:         log.With().Str("component", "subscription_hub").Logger(),
	}
}

// Register creates a subscriber identity under id; registering an id
// that already exists is a no-op. Topics are subscribed to individually
// via Subscribe.
func (h *Hub) Register(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[id]; ok {
		return
	}
	h.subscribers[id] = &subscriber{
		id:      id,
		queues:  make(map[Topic]chan Envelope),
		filters: make(map[Topic]FilterFunc),
		seq:     make(map[Topic]*uint64),
		dropped: make(map[Topic]bool),
		notices: make(chan DropNotice, len(allTopics)),
	}
}

// Unregister removes a subscriber and releases its queues.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		atomic.StoreInt32(&sub.closed, 1)
	}
}

// Subscribe opts subscriber id into topic, optionally with a filter.
// Re-subscribing after a drop clears the dropped flag, per §4.10's
// contract that a dropped subscriber receives no further events on
// that topic until it re-subscribes.
func (h *Hub) Subscribe(id string, topic Topic, filter FilterFunc) chan Envelope {
	h.mu.RLock()
	sub, ok := h.subscribers[id]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	q, exists := sub.queues[topic]
	if !exists {
		q = make(chan Envelope, subscriberQueueDepth)
		sub.queues[topic] = q
		var zero uint64
		sub.seq[topic] = &zero
	}
	sub.filters[topic] = filter
	sub.dropped[topic] = false
	return q
}

// Unsubscribe removes id's interest in topic.
func (h *Hub) Unsubscribe(id string, topic Topic) {
	h.mu.RLock()
	sub, ok := h.subscribers[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	sub.mu.Lock()
	delete(sub.queues, topic)
	delete(sub.filters, topic)
	delete(sub.seq, topic)
	sub.mu.Unlock()
}

// Notices returns the channel of drop control frames for a subscriber.
func (h *Hub) Notices(id string) chan DropNotice {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subscribers[id]
	if !ok {
		return nil
	}
	return sub.notices
}

// Publish fans payload out to every subscriber of topic. Delivery is
// at-most-once and non-blocking per subscriber: a full per-subscriber
// queue drops that subscriber from topic rather than buffering
// unboundedly or blocking other subscribers (no head-of-line blocking
// across topics, since each topic has its own channel per subscriber).
func (h *Hub) Publish(topic Topic, nowNanos int64, payload interface{}) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if atomic.LoadInt32(&sub.closed) == 1 {
			continue
		}
		h.deliverOne(sub, topic, nowNanos, payload)
	}
}

func (h *Hub) deliverOne(sub *subscriber, topic Topic, nowNanos int64, payload interface{}) {
	sub.mu.Lock()
	q, ok := sub.queues[topic]
	if !ok || sub.dropped[topic] {
		sub.mu.Unlock()
		return
	}
	if f := sub.filters[topic]; f != nil && !f(payload) {
		sub.mu.Unlock()
		return
	}
	seqPtr := sub.seq[topic]
	*seqPtr++
	env := Envelope{Topic: topic, Seq: *seqPtr, TsNanos: nowNanos, Payload: payload}
	sub.mu.Unlock()

	select {
	case q <- env:
	default:
		h.dropSubscriber(sub, topic, "queue_full")
	}
}

func (h *Hub) dropSubscriber(sub *subscriber, topic Topic, reason string) {
	sub.mu.Lock()
	alreadyDropped := sub.dropped[topic]
	sub.dropped[topic] = true
	sub.mu.Unlock()
	if alreadyDropped {
		return // exactly one drop notice per offending drop window
	}

	h.log.Warn().Str("subscriber", sub.id).Str("topic", string(topic)).Str("reason", reason).Msg("subscriber dropped from topic")

	select {
	case sub.notices <- DropNotice{Topic: topic, Reason: reason}:
	default:
		// notices channel itself is sized to len(allTopics); this should
		// never fill, but never block a publisher on a stuck consumer.
	}
}
