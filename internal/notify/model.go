package notify

import (
	"encoding/json"
	"time"
)

// Notification type tags.
const (
	TypeNewMessage       = "message:new"
	TypeNewOffer         = "offer:new"
	TypeOfferAccepted    = "offer:accepted"
	TypeOfferRejected    = "offer:rejected"
	TypeNegotiation      = "negotiation:message"
	TypePaymentCreated   = "payment:created"
	TypePaymentCompleted = "payment:completed"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Delivery channels.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// Notification is the durable record written for every significant event.
// The realtime push carries it; a recipient who was offline recovers it by
// listing notifications.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Priority  string          `json:"priority"`
	Channels  []string        `json:"channels"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// wsEvents maps a notification type to the websocket event name pushed to
// the recipient's personal room.
var wsEvents = map[string]string{
	TypeNewMessage:       "notify:newMessage",
	TypeNewOffer:         "notify:newOffer",
	TypeOfferAccepted:    "notify:offerAccepted",
	TypeOfferRejected:    "notify:offerRejected",
	TypeNegotiation:      "negotiation:message",
	TypePaymentCreated:   "payment:created",
	TypePaymentCompleted: "payment:completed",
}

// WSEvent returns the push event name for a notification type.
func WSEvent(ntype string) string {
	if evt, ok := wsEvents[ntype]; ok {
		return evt
	}
	return "notify:generic"
}
