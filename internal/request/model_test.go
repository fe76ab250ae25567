package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Expired(StatusOpen, past, now))
	assert.False(t, Expired(StatusOpen, future, now))

	// Only open requests expire.
	for _, status := range []string{StatusNegotiating, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled} {
		assert.False(t, Expired(status, past, now), status)
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.Equal(t, StatusCancelled, EffectiveStatus(StatusOpen, past, now))
	assert.Equal(t, StatusOpen, EffectiveStatus(StatusOpen, future, now))
	assert.Equal(t, StatusNegotiating, EffectiveStatus(StatusNegotiating, past, now))
	assert.Equal(t, StatusCompleted, EffectiveStatus(StatusCompleted, past, now))
}

func TestAssignedConsistent(t *testing.T) {
	provider := "provider-1"
	empty := ""

	// Assigned-family statuses need an assignee.
	for _, status := range []string{StatusAssigned, StatusInProgress, StatusCompleted} {
		assert.True(t, AssignedConsistent(status, &provider), status)
		assert.False(t, AssignedConsistent(status, nil), status)
		assert.False(t, AssignedConsistent(status, &empty), status)
	}

	// Everything else must not carry one.
	for _, status := range []string{StatusOpen, StatusNegotiating, StatusCancelled} {
		assert.True(t, AssignedConsistent(status, nil), status)
		assert.True(t, AssignedConsistent(status, &empty), status)
		assert.False(t, AssignedConsistent(status, &provider), status)
	}
}

func TestAcceptsOffers(t *testing.T) {
	assert.True(t, AcceptsOffers(StatusOpen))
	assert.True(t, AcceptsOffers(StatusNegotiating))
	for _, status := range []string{StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled} {
		assert.False(t, AcceptsOffers(status), status)
	}
}
