package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/realtime"
)

// Service persists a durable Notification for every significant event, then
// best-effort pushes it: over the event bus when the recipient is present,
// and onto the email queue when the channel list asks for it. Delivery
// failures are logged and swallowed; they never fail the transition that
// produced the event.
type Service struct {
	store *Store
	hub   *realtime.Hub
	queue *Queue
	pool  *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool, hub *realtime.Hub, queue *Queue) *Service {
	return &Service{store: NewStore(pool), hub: hub, queue: queue, pool: pool}
}

func (s *Service) Store() *Store { return s.store }

// Emit records and forwards one event. Data must be JSON-marshallable.
func (s *Service) Emit(ctx context.Context, userID, ntype, title, message string, data interface{}, priority string, channels ...string) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			log.Printf("[notify] dropping unmarshallable payload for %s: %v", ntype, err)
		} else {
			raw = b
		}
	}

	n := &Notification{
		UserID:   userID,
		Type:     ntype,
		Title:    title,
		Message:  message,
		Data:     raw,
		Priority: priority,
		Channels: channels,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		log.Printf("[notify] failed to persist %s for user %s: %v", ntype, userID, err)
		return
	}

	// Push only reaches recipients present at publish time; everyone else
	// recovers the persisted record by listing notifications.
	s.hub.PublishUser(userID, WSEvent(ntype), n)

	for _, ch := range n.Channels {
		if ch == ChannelEmail && s.queue != nil {
			s.emitEmail(ctx, n)
		}
	}
}

// Broadcast pushes a minimal payload to a topic room without persisting.
// Used for room-scoped echoes (e.g. the negotiation thread) where the
// durable record already went to the personal channel.
func (s *Service) Broadcast(room, event string, data interface{}) {
	s.hub.Publish(room, event, data)
}

func (s *Service) emitEmail(ctx context.Context, n *Notification) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, n.UserID).Scan(&email)
	if err != nil || email == "" {
		return
	}
	if err := s.queue.EnqueueEmail(email, n.Title, n.Message); err != nil {
		log.Printf("[notify] email enqueue failed for %s: %v", n.ID, err)
	}
}
