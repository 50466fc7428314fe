package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateActive(t *testing.T) {
	assert.False(t, StateIdle.active())
	assert.True(t, StateConnecting.active())
	assert.True(t, StateOpen.active())
	assert.True(t, StateClosing.active())
	assert.False(t, StateClosed.active())
	assert.False(t, StateFailed.active())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
