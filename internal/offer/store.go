package offer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Store persists offers and their negotiation threads. Multi-entity
// transitions (create/accept/reject/negotiate) live in the coordinator; the
// store covers single-document reads and owner edits.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectColumns = `id, request_id, provider_id, price, start_date, duration,
    scope_of_work, deposit, milestone, final, status, expires_at, created_at, updated_at`

// ScanRow reads one offer row in selectColumns order. Shared with the
// coordinator, which runs its own transactional queries.
func ScanRow(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.RequestID, &o.ProviderID, &o.Price, &o.StartDate,
		&o.Duration, &o.ScopeOfWork, &o.Schedule.Deposit, &o.Schedule.Milestone,
		&o.Schedule.Final, &o.Status, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SelectColumns exposes the canonical column list for coordinator queries.
func SelectColumns() string { return selectColumns }

// Get loads an offer and applies lazy expiry on this read-modify path.
func (s *Store) Get(ctx context.Context, id string) (*Offer, error) {
	o, err := ScanRow(s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.NotFound("offer")
	}

	if Expired(o.Status, o.ExpiresAt, time.Now()) {
		tag, err := s.pool.Exec(ctx, `
            UPDATE offers SET status = $1, updated_at = NOW()
            WHERE id = $2 AND status = $3`,
			StatusExpired, id, StatusPending)
		if err == nil && tag.RowsAffected() == 1 {
			o.Status = StatusExpired
		}
	}
	return o, nil
}

// ListByRequest returns all offers on a request, newest first, with the
// effective status applied for readers.
func (s *Store) ListByRequest(ctx context.Context, requestID string) ([]Offer, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+selectColumns+` FROM offers
        WHERE request_id = $1 ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list offers")
	}
	defer rows.Close()

	now := time.Now()
	var out []Offer
	for rows.Next() {
		o, err := ScanRow(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse offer")
		}
		o.Status = EffectiveStatus(o.Status, o.ExpiresAt, now)
		out = append(out, *o)
	}
	return out, nil
}

// ListByProvider returns a provider's own offers, newest first.
func (s *Store) ListByProvider(ctx context.Context, providerID string) ([]Offer, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT `+selectColumns+` FROM offers
        WHERE provider_id = $1 ORDER BY created_at DESC`, providerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list offers")
	}
	defer rows.Close()

	now := time.Now()
	var out []Offer
	for rows.Next() {
		o, err := ScanRow(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse offer")
		}
		o.Status = EffectiveStatus(o.Status, o.ExpiresAt, now)
		out = append(out, *o)
	}
	return out, nil
}

func (s *Store) requestOwner(ctx context.Context, requestID string) (string, error) {
	var seekerID string
	err := s.pool.QueryRow(ctx,
		`SELECT seeker_id FROM service_requests WHERE id = $1`, requestID).Scan(&seekerID)
	if err != nil {
		return "", apperr.NotFound("request")
	}
	return seekerID, nil
}

// UpdateTerms lets the owning provider re-propose terms. Allowed while the
// offer is pending or negotiating; the write resets the offer to pending with
// a fresh deadline, so acceptance always applies the last formally proposed
// terms.
func (s *Store) UpdateTerms(ctx context.Context, id, providerID string, terms Terms) (*Offer, error) {
	if err := ValidateTerms(terms.Price, terms.Duration, terms.ScopeOfWork, terms.Schedule); err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.ProviderID != providerID {
		return nil, apperr.Forbidden("not the owner of this offer")
	}
	if !Active(o.Status) {
		return nil, apperr.InvalidState("only pending or negotiating offers can be edited")
	}

	row := s.pool.QueryRow(ctx, `
        UPDATE offers
        SET price = $1, start_date = $2, duration = $3, scope_of_work = $4,
            deposit = $5, milestone = $6, final = $7,
            status = $8, expires_at = $9, updated_at = NOW()
        WHERE id = $10 AND status IN ($8, $11)
        RETURNING `+selectColumns,
		terms.Price, terms.StartDate, terms.Duration, terms.ScopeOfWork,
		terms.Schedule.Deposit, terms.Schedule.Milestone, terms.Schedule.Final,
		StatusPending, time.Now().Add(DefaultTTL), id, StatusNegotiating)
	updated, err := ScanRow(row)
	if err != nil {
		return nil, apperr.InvalidState("only pending or negotiating offers can be edited")
	}
	return updated, nil
}

// NegotiationHistory returns the ordered thread for an offer.
func (s *Store) NegotiationHistory(ctx context.Context, offerID string) ([]NegotiationMessage, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, offer_id, author_id, message, counter_price, created_at
        FROM negotiation_messages WHERE offer_id = $1 ORDER BY created_at ASC`, offerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load negotiation history")
	}
	defer rows.Close()

	var out []NegotiationMessage
	for rows.Next() {
		var m NegotiationMessage
		if err := rows.Scan(&m.ID, &m.OfferID, &m.AuthorID, &m.Message, &m.CounterPrice, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse negotiation message")
		}
		out = append(out, m)
	}
	return out, nil
}

// VisibleTo reports whether a user may see an offer: the issuing provider or
// the owner of the target request. Re-derived wherever offer-scoped realtime
// rooms are joined.
func (s *Store) VisibleTo(ctx context.Context, offerID, userID string) (bool, error) {
	var providerID, seekerID string
	err := s.pool.QueryRow(ctx, `
        SELECT o.provider_id, r.seeker_id
        FROM offers o JOIN service_requests r ON r.id = o.request_id
        WHERE o.id = $1`, offerID,
	).Scan(&providerID, &seekerID)
	if err != nil {
		return false, apperr.NotFound("offer")
	}
	return userID == providerID || userID == seekerID, nil
}
