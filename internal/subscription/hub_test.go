package subscription

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SubscribeWithoutRegisterReturnsNil(t *testing.T) {
	h := New(zerolog.Nop())
	q := h.Subscribe("unknown", TopicSystemHealth, nil)
	assert.Nil(t, q)
}

func TestHub_PublishDeliversToSubscriber(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicMarketPoolUpdates, nil)
	require.NotNil(t, q)

	h.Publish(TopicMarketPoolUpdates, 100, "payload-1")

	env := <-q
	assert.Equal(t, TopicMarketPoolUpdates, env.Topic)
	assert.Equal(t, uint64(1), env.Seq)
	assert.Equal(t, int64(100), env.TsNanos)
	assert.Equal(t, "payload-1", env.Payload)
}

func TestHub_PublishSeqIsMonotonicPerTopic(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, nil)

	h.Publish(TopicSystemHealth, 1, "a")
	h.Publish(TopicSystemHealth, 2, "b")

	first := <-q
	second := <-q
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
}

func TestHub_PublishOnlyDeliversToSubscribedTopic(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, nil)

	h.Publish(TopicBundlesSubmitted, 1, "other-topic")

	select {
	case env := <-q:
		t.Fatalf("unexpected delivery: %+v", env)
	default:
	}
}

func TestHub_FilterSuppressesNonMatchingPayloads(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, func(payload interface{}) bool {
		return payload == "keep"
	})

	h.Publish(TopicSystemHealth, 1, "drop-me")
	h.Publish(TopicSystemHealth, 2, "keep")

	env := <-q
	assert.Equal(t, "keep", env.Payload)

	select {
	case extra := <-q:
		t.Fatalf("unexpected second delivery: %+v", extra)
	default:
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, nil)
	h.Unsubscribe("client-1", TopicSystemHealth)

	h.Publish(TopicSystemHealth, 1, "after-unsubscribe")

	select {
	case env := <-q:
		t.Fatalf("unexpected delivery after unsubscribe: %+v", env)
	default:
	}
}

func TestHub_FullQueueDropsSubscriberAndNotifies(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, nil)
	notices := h.Notices("client-1")

	for i := 0; i < subscriberQueueDepth+5; i++ {
		h.Publish(TopicSystemHealth, int64(i), i)
	}

	notice := <-notices
	assert.Equal(t, TopicSystemHealth, notice.Topic)
	assert.Equal(t, "queue_full", notice.Reason)

	assert.Len(t, q, subscriberQueueDepth)
}

func TestHub_ReSubscribeClearsDroppedFlag(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	q := h.Subscribe("client-1", TopicSystemHealth, nil)

	for i := 0; i < subscriberQueueDepth+1; i++ {
		h.Publish(TopicSystemHealth, int64(i), i)
	}
	<-h.Notices("client-1") // drain the drop notice

	// Drain the queue, then re-subscribe to clear the dropped flag.
	for len(q) > 0 {
		<-q
	}
	q = h.Subscribe("client-1", TopicSystemHealth, nil)

	h.Publish(TopicSystemHealth, 999, "after-resubscribe")
	env := <-q
	assert.Equal(t, "after-resubscribe", env.Payload)
}

func TestHub_UnregisterStopsAllDelivery(t *testing.T) {
	h := New(zerolog.Nop())
	h.Register("client-1")
	h.Subscribe("client-1", TopicSystemHealth, nil)
	h.Unregister("client-1")

	assert.NotPanics(t, func() {
		h.Publish(TopicSystemHealth, 1, "after-unregister")
	})
	assert.Nil(t, h.Notices("client-1"))
}
