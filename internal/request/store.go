package request

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Store persists and queries service requests.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `id, seeker_id, category, subcategory, description, urgency,
    governorate, city, status, assigned_to, expires_at, completed_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var r ServiceRequest
	var subcategory *string
	err := row.Scan(&r.ID, &r.SeekerID, &r.Category, &subcategory, &r.Description,
		&r.Urgency, &r.Governorate, &r.City, &r.Status, &r.AssignedTo,
		&r.ExpiresAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if subcategory != nil {
		r.Subcategory = *subcategory
	}
	return &r, nil
}

// Create inserts a new open request with the default expiry window.
func (s *Store) Create(ctx context.Context, r *ServiceRequest) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Urgency == "" {
		r.Urgency = "normal"
	}
	if r.ExpiresAt.IsZero() {
		r.ExpiresAt = time.Now().Add(DefaultTTL)
	}
	r.Status = StatusOpen

	_, err := s.pool.Exec(ctx, `
        INSERT INTO service_requests
            (id, seeker_id, category, subcategory, description, urgency, governorate, city, status, expires_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
		r.ID, r.SeekerID, r.Category, r.Subcategory, r.Description, r.Urgency,
		r.Governorate, r.City, r.Status, r.ExpiresAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to create request")
	}
	return nil
}

// Get loads a request and applies lazy expiry: an open request past its
// deadline is transitioned to cancelled on this read-modify path. The
// conditional WHERE keeps the write race-free.
func (s *Store) Get(ctx context.Context, id string) (*ServiceRequest, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM service_requests WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.NotFound("request")
	}

	if Expired(r.Status, r.ExpiresAt, time.Now()) {
		tag, err := s.pool.Exec(ctx, `
            UPDATE service_requests SET status = $1, updated_at = NOW()
            WHERE id = $2 AND status = $3`,
			StatusCancelled, id, StatusOpen)
		if err == nil && tag.RowsAffected() == 1 {
			r.Status = StatusCancelled
		}
	}
	return r, nil
}

// ListOpen returns publicly browsable requests, filtered by the effective
// status so stale-but-expired rows never show up. No write happens here.
func (s *Store) ListOpen(ctx context.Context, governorate, category string) ([]ServiceRequest, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+selectColumns+` FROM service_requests
        WHERE status IN ($1, $2) AND expires_at > NOW()
          AND ($3 = '' OR governorate = $3)
          AND ($4 = '' OR category = $4)
        ORDER BY created_at DESC
        LIMIT 100`,
		StatusOpen, StatusNegotiating, governorate, category)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list requests")
	}
	defer rows.Close()
	return collect(rows)
}

// ListBySeeker returns everything a seeker has posted, newest first.
func (s *Store) ListBySeeker(ctx context.Context, seekerID string) ([]ServiceRequest, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+selectColumns+` FROM service_requests
        WHERE seeker_id = $1 ORDER BY created_at DESC`, seekerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list requests")
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]ServiceRequest, error) {
	now := time.Now()
	var out []ServiceRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse request")
		}
		r.Status = EffectiveStatus(r.Status, r.ExpiresAt, now)
		out = append(out, *r)
	}
	return out, nil
}

// Delete removes a request. Only the owner may delete, and only while the
// request is still open.
func (s *Store) Delete(ctx context.Context, id, seekerID string) error {
	var ownerID, status string
	err := s.pool.QueryRow(ctx,
		`SELECT seeker_id, status FROM service_requests WHERE id = $1`, id,
	).Scan(&ownerID, &status)
	if err != nil {
		return apperr.NotFound("request")
	}
	if ownerID != seekerID {
		return apperr.Forbidden("not the owner of this request")
	}
	if status != StatusOpen {
		return apperr.InvalidState("only open requests can be deleted")
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM service_requests WHERE id = $1 AND status = $2`, id, StatusOpen)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to delete request")
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("only open requests can be deleted")
	}
	return nil
}
