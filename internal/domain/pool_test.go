package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolState_IsCLMM(t *testing.T) {
	concentrated := PoolState{ID: PoolID{Venue: VenueAMMConcentrated}}
	assert.True(t, concentrated.IsCLMM())

	constant := PoolState{ID: PoolID{Venue: VenueAMMConstantProduct}}
	assert.False(t, constant.IsCLMM())
}

func TestPoolState_Price(t *testing.T) {
	assert.Equal(t, 0.0, (&PoolState{ReserveA: 0, ReserveB: 500}).Price())
	assert.Equal(t, 2.0, (&PoolState{ReserveA: 100, ReserveB: 200}).Price())
}
