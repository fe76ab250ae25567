package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/notify"
	"github.com/khidma-app/khidma/internal/realtime"
)

// Service owns conversations and messages and fans out their realtime
// events. The websocket dispatcher calls into it through closures wired in
// main; the REST handlers call it directly.
type Service struct {
	pool     *pgxpool.Pool
	notifier *notify.Service
}

func NewService(pool *pgxpool.Pool, notifier *notify.Service) *Service {
	return &Service{pool: pool, notifier: notifier}
}

// Ensure returns the conversation between two users for a request, creating
// it when absent. The pair is stored in a canonical order so the same two
// people never get two threads for one request.
func (s *Service) Ensure(ctx context.Context, requestID *string, userA, userB string) (*Conversation, error) {
	if userA == userB {
		return nil, apperr.Validation("a conversation needs two distinct participants")
	}
	if userA > userB {
		userA, userB = userB, userA
	}

	conv := &Conversation{ParticipantA: userA, ParticipantB: userB, RequestID: requestID}
	err := s.pool.QueryRow(ctx, `
        SELECT id, created_at FROM conversations
        WHERE participant_a = $1 AND participant_b = $2
          AND request_id IS NOT DISTINCT FROM $3`,
		userA, userB, requestID,
	).Scan(&conv.ID, &conv.CreatedAt)
	if err == nil {
		return conv, nil
	}

	conv.ID = uuid.New().String()
	err = s.pool.QueryRow(ctx, `
        INSERT INTO conversations (id, request_id, participant_a, participant_b)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`,
		conv.ID, requestID, userA, userB,
	).Scan(&conv.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create conversation")
	}
	return conv, nil
}

// Get loads one conversation.
func (s *Service) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	conv.ID = id
	err := s.pool.QueryRow(ctx, `
        SELECT request_id, participant_a, participant_b, created_at
        FROM conversations WHERE id = $1`, id,
	).Scan(&conv.RequestID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt)
	if err != nil {
		return nil, apperr.NotFound("conversation")
	}
	return &conv, nil
}

// CanAccess checks the caller against the participant list. This is the
// authorization used per message and per room join.
func (s *Service) CanAccess(ctx context.Context, conversationID, userID string) (bool, error) {
	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return conv.Includes(userID), nil
}

// ListForUser returns the user's conversations, most recent first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, request_id, participant_a, participant_b, created_at
        FROM conversations
        WHERE participant_a = $1 OR participant_b = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list conversations")
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.RequestID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse conversation")
		}
		out = append(out, conv)
	}
	return out, nil
}

// Send persists a message and fans it out: the conversation room gets the
// message, the counterpart gets a durable notification (which also reaches
// their personal channel).
func (s *Service) Send(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}

	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Includes(senderID) {
		return nil, apperr.Forbidden("not a participant in this conversation")
	}

	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	err = s.pool.QueryRow(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, content)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`,
		msg.ID, conversationID, senderID, content,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to send message")
	}

	s.notifier.Broadcast(realtime.ConversationRoom(conversationID), "notify:newMessage", msg)
	s.notifier.Emit(ctx, conv.Other(senderID), notify.TypeNewMessage,
		"New message", content, msg, notify.PriorityNormal, notify.ChannelPush)

	return msg, nil
}

// Messages returns a conversation's history, optionally since a timestamp
// for incremental fetches.
func (s *Service) Messages(ctx context.Context, conversationID, userID string, since *time.Time) ([]Message, error) {
	ok, err := s.CanAccess(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("not a participant in this conversation")
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, conversation_id, sender_id, content, created_at, read_at
        FROM messages
        WHERE conversation_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
        ORDER BY created_at ASC`, conversationID, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list messages")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse message")
		}
		out = append(out, m)
	}
	return out, nil
}

// MarkRead stamps every unread message addressed to the caller and echoes a
// read receipt into the room.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) error {
	ok, err := s.CanAccess(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("not a participant in this conversation")
	}

	tag, err := s.pool.Exec(ctx, `
        UPDATE messages SET read_at = NOW()
        WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to mark messages read")
	}

	if tag.RowsAffected() > 0 {
		s.notifier.Broadcast(realtime.ConversationRoom(conversationID), "message:read", map[string]interface{}{
			"conversation_id": conversationID,
			"user_id":         userID,
			"read_at":         time.Now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// UnreadCount counts messages addressed to the user that are still unread.
func (s *Service) UnreadCount(ctx context.Context, conversationID, userID string) (int64, error) {
	ok, err := s.CanAccess(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.Forbidden("not a participant in this conversation")
	}

	var count int64
	err = s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM messages
        WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "failed to compute unread count")
	}
	return count, nil
}
