package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationMembership(t *testing.T) {
	conv := &Conversation{ParticipantA: "seeker-1", ParticipantB: "provider-1"}

	assert.True(t, conv.Includes("seeker-1"))
	assert.True(t, conv.Includes("provider-1"))
	assert.False(t, conv.Includes("stranger"))

	assert.Equal(t, "provider-1", conv.Other("seeker-1"))
	assert.Equal(t, "seeker-1", conv.Other("provider-1"))

	assert.Equal(t, [2]string{"seeker-1", "provider-1"}, conv.Participants())
}
