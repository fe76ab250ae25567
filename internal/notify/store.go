package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Store persists notifications. After creation a record only changes through
// the read/unread toggles.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes the record and fills in id and created_at.
func (s *Store) Insert(ctx context.Context, n *Notification) error {
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if len(n.Channels) == 0 {
		n.Channels = []string{ChannelPush}
	}
	err := s.pool.QueryRow(ctx, `
        INSERT INTO notifications (user_id, type, title, message, data, priority, channels)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`,
		n.UserID, n.Type, n.Title, n.Message, n.Data, n.Priority, n.Channels,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to persist notification")
	}
	return nil
}

// List returns the user's notifications, newest first.
func (s *Store) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, user_id, type, title, message, data, priority, channels, is_read, read_at, created_at
        FROM notifications
        WHERE user_id = $1 AND ($2 = FALSE OR NOT is_read)
        ORDER BY created_at DESC
        LIMIT 200`, userID, unreadOnly)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load notifications")
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data,
			&n.Priority, &n.Channels, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse notification")
		}
		out = append(out, n)
	}
	return out, nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead stamps read_at and flips is_read.
func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE notifications SET is_read = TRUE, read_at = NOW()
        WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}

// MarkUnread restores is_read=false and clears read_at.
func (s *Store) MarkUnread(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `
        UPDATE notifications SET is_read = FALSE, read_at = NULL
        WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to mark notification unread")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}
