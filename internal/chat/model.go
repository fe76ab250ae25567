package chat

import "time"

// Conversation is a two-party thread, optionally anchored to a service
// request.
type Conversation struct {
	ID           string    `json:"id"`
	RequestID    *string   `json:"request_id,omitempty"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// Participants returns both sides of the conversation.
func (c *Conversation) Participants() [2]string {
	return [2]string{c.ParticipantA, c.ParticipantB}
}

// Includes reports whether a user is one of the two participants.
func (c *Conversation) Includes(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// Other returns the counterpart of a participant.
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Message is one chat message inside a conversation.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}
