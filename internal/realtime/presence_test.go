package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Online("u1"))
	assert.Equal(t, 0, r.OnlineCount())

	phone := newClient("u1", nil)
	laptop := newClient("u1", nil)
	other := newClient("u2", nil)

	r.Add(phone)
	r.Add(laptop)
	r.Add(other)

	assert.True(t, r.Online("u1"))
	assert.True(t, r.Online("u2"))
	assert.Equal(t, 2, r.OnlineCount(), "distinct identities, not connections")
	assert.Len(t, r.Clients("u1"), 2)

	// One of two connections dropping keeps the identity online.
	r.Remove(phone)
	assert.True(t, r.Online("u1"))

	r.Remove(laptop)
	assert.False(t, r.Online("u1"))
	assert.Equal(t, 1, r.OnlineCount())

	// Removing an unknown connection is a no-op.
	r.Remove(phone)
	assert.Equal(t, 1, r.OnlineCount())
}
