package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_MonotonicPath(t *testing.T) {
	assert.True(t, canTransition(Created, Starting))
	assert.True(t, canTransition(Starting, Ready))
	assert.True(t, canTransition(Starting, Stopped))
	assert.True(t, canTransition(Ready, Stopping))
	assert.True(t, canTransition(Stopping, Stopped))
}

func TestCanTransition_RejectsBackwardAndSkippedMoves(t *testing.T) {
	assert.False(t, canTransition(Ready, Created))
	assert.False(t, canTransition(Created, Ready))
	assert.False(t, canTransition(Stopped, Created))
	assert.False(t, canTransition(Stopped, Starting))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "unknown", State(99).String())
}
