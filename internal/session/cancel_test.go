package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCancelToken_IsUnique(t *testing.T) {
	a := NewCancelToken()
	b := NewCancelToken()
	assert.NotEqual(t, a, b)
}

func TestCancelRegistry_RegisterLookupRelease(t *testing.T) {
	r := newCancelRegistry()
	tok := NewCancelToken()
	_, cancel := context.WithCancel(context.Background())

	release := r.register(tok, cancel, 42)

	entry, ok := r.lookup(tok)
	assert.True(t, ok)
	assert.Equal(t, int64(42), entry.rpcID)

	release()

	_, ok = r.lookup(tok)
	assert.False(t, ok, "release should remove the registry entry")
}

func TestCancelRegistry_LookupUnknownToken(t *testing.T) {
	r := newCancelRegistry()
	_, ok := r.lookup(NewCancelToken())
	assert.False(t, ok)
}
