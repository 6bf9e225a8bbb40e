package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_NowNanosIsCloseToWallClock(t *testing.T) {
	s := NewSystem()
	before := time.Now().UnixNano()
	got := s.NowNanos()
	after := time.Now().UnixNano()

	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, after)
}

func TestFrozen_StartsAtGivenNanos(t *testing.T) {
	f := NewFrozen(1_000)
	assert.Equal(t, int64(1_000), f.NowNanos())
	assert.Equal(t, time.Unix(0, 1_000), f.Now())
}

func TestFrozen_AdvanceMovesBothNanosAndWallClock(t *testing.T) {
	f := NewFrozen(0)
	f.Advance(5 * time.Second)

	assert.Equal(t, int64(5*time.Second), f.NowNanos())
	assert.Equal(t, time.Unix(0, 0).Add(5*time.Second), f.Now())
}

func TestFrozen_NeverAdvancesOnItsOwn(t *testing.T) {
	f := NewFrozen(42)
	first := f.NowNanos()
	time.Sleep(time.Millisecond)
	second := f.NowNanos()

	assert.Equal(t, first, second)
}
