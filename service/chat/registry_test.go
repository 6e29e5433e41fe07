package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLastSetupWins(t *testing.T) {
	r := NewRegistry()
	c1 := NewClient("conn-1", nil, 1)
	c2 := NewClient("conn-2", nil, 1)
	c1.UserID = "alice"
	c2.UserID = "alice"

	r.Register("alice", c1)
	r.Register("alice", c2)

	require.Equal(t, 1, r.Size())
	assert.Same(t, c2, r.Lookup("alice"))
}

func TestRegistryUnregisterOnlyAuthoritative(t *testing.T) {
	r := NewRegistry()
	c1 := NewClient("conn-1", nil, 1)
	c2 := NewClient("conn-2", nil, 1)
	c1.UserID = "alice"
	c2.UserID = "alice"

	r.Register("alice", c1)
	r.Register("alice", c2)

	// the superseded connection going away must not evict its replacement
	r.Unregister(c1)
	assert.Same(t, c2, r.Lookup("alice"))

	r.Unregister(c2)
	assert.Nil(t, r.Lookup("alice"))
	assert.Equal(t, 0, r.Size())
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	c := NewClient("conn-1", nil, 1)
	c.UserID = "bob"
	r.Unregister(c)
	assert.Nil(t, r.Lookup("bob"))
}

func TestRegistryLookupByConnID(t *testing.T) {
	r := NewRegistry()
	c := NewClient("conn-9", nil, 1)
	c.UserID = "bob"
	r.Register("bob", c)
	assert.Same(t, c, r.GetByConnID("conn-9"))
	assert.Nil(t, r.GetByConnID("nope"))
}
