package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBus_EmitDispatchesToSubscribedHandlers(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var received []string
	b.Subscribe(TypePoolUpdated, func(data Data) {
		d, ok := data.(*PoolUpdatedData)
		if ok {
			received = append(received, d.VenueID)
		}
	})

	b.Emit(&PoolUpdatedData{VenueID: "pool-1"})
	b.Emit(&PoolUpdatedData{VenueID: "pool-2"})

	assert.Equal(t, []string{"pool-1", "pool-2"}, received)
}

func TestBus_EmitWithNoSubscribersIsANoOp(t *testing.T) {
	b := NewBus(zerolog.Nop())
	assert.NotPanics(t, func() {
		b.Emit(&BundleComposedData{BundleID: "abc"})
	})
}

func TestBus_MultipleSubscribersAllReceive(t *testing.T) {
	b := NewBus(zerolog.Nop())
	var a, c int
	b.Subscribe(TypeSequenceGap, func(data Data) { a++ })
	b.Subscribe(TypeSequenceGap, func(data Data) { c++ })

	b.Emit(&SequenceGapData{LastGoodSlot: 1, ReconnectedAtSlot: 2})

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}

func TestBus_SubscribersOnlyReceiveTheirOwnEventType(t *testing.T) {
	b := NewBus(zerolog.Nop())
	var poolUpdates, bundleSubmits int
	b.Subscribe(TypePoolUpdated, func(data Data) { poolUpdates++ })
	b.Subscribe(TypeBundleSubmitted, func(data Data) { bundleSubmits++ })

	b.Emit(&PoolUpdatedData{VenueID: "x"})

	assert.Equal(t, 1, poolUpdates)
	assert.Equal(t, 0, bundleSubmits)
}
