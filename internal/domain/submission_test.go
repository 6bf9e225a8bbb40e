package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalState_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusLanded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
}

func TestTerminalState_String(t *testing.T) {
	assert.Equal(t, "PENDING", StatusPending.String())
	assert.Equal(t, "LANDED", StatusLanded.String())
	assert.Equal(t, "FAILED", StatusFailed.String())
	assert.Equal(t, "EXPIRED", StatusExpired.String())
	assert.Equal(t, "REJECTED", StatusRejected.String())
	assert.Equal(t, "UNKNOWN", TerminalState(99).String())
}
