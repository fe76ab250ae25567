package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/notify"
	"github.com/khidma-app/khidma/internal/offer"
	"github.com/khidma-app/khidma/internal/realtime"
	"github.com/khidma-app/khidma/internal/request"
)

// Coordinator orchestrates every transition that spans a request, its
// offers, and the resulting payment. All validation completes before the
// first write; the write sequence runs inside one database transaction under
// the request's row lock, and the in-process Locker serializes local callers
// on the same aggregate. Notifications fire only after commit and their
// failures never surface to the caller.
type Coordinator struct {
	pool     *pgxpool.Pool
	locks    *Locker
	notifier *notify.Service
}

func NewCoordinator(pool *pgxpool.Pool, notifier *notify.Service) *Coordinator {
	return &Coordinator{pool: pool, locks: NewLocker(), notifier: notifier}
}

// lockedRequest is the request snapshot taken under FOR UPDATE.
type lockedRequest struct {
	SeekerID   string
	Status     string
	AssignedTo *string
	ExpiresAt  time.Time
}

// lockRequest takes the row lock and applies lazy expiry in place: an open
// request past its deadline becomes cancelled before the caller sees it.
func lockRequest(ctx context.Context, tx pgx.Tx, requestID string) (*lockedRequest, error) {
	var r lockedRequest
	err := tx.QueryRow(ctx, `
        SELECT seeker_id, status, assigned_to, expires_at
        FROM service_requests WHERE id = $1 FOR UPDATE`, requestID,
	).Scan(&r.SeekerID, &r.Status, &r.AssignedTo, &r.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load request")
	}

	if request.Expired(r.Status, r.ExpiresAt, time.Now()) {
		if _, err := tx.Exec(ctx, `
            UPDATE service_requests SET status = $1, updated_at = NOW()
            WHERE id = $2`, request.StatusCancelled, requestID); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to expire request")
		}
		r.Status = request.StatusCancelled
	}
	return &r, nil
}

// CreateOffer inserts a pending offer for a verified provider against an
// open or negotiating request. The request's first active offer advances it
// to negotiating.
func (co *Coordinator) CreateOffer(ctx context.Context, requestID, providerID string, providerVerified bool, terms offer.Terms) (*offer.Offer, error) {
	if !providerVerified {
		return nil, apperr.Forbidden("provider account is not verified")
	}
	if err := offer.ValidateTerms(terms.Price, terms.Duration, terms.ScopeOfWork, terms.Schedule); err != nil {
		return nil, err
	}
	if terms.StartDate.IsZero() {
		return nil, apperr.Validation("timeline start date is required")
	}

	unlock := co.locks.Lock(requestID)
	defer unlock()

	tx, err := co.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "transaction start failed")
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SeekerID == providerID {
		return nil, apperr.Forbidden("you cannot offer on your own request")
	}
	if !request.AcceptsOffers(req.Status) {
		return nil, apperr.InvalidState("request is not accepting offers")
	}

	var active int
	if err := tx.QueryRow(ctx, `
        SELECT COUNT(*) FROM offers
        WHERE request_id = $1 AND provider_id = $2 AND status IN ($3, $4)`,
		requestID, providerID, offer.StatusPending, offer.StatusNegotiating,
	).Scan(&active); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to check existing offers")
	}
	if active > 0 {
		return nil, apperr.Conflict("you already have an active offer on this request")
	}

	o := &offer.Offer{
		ID:          uuid.New().String(),
		RequestID:   requestID,
		ProviderID:  providerID,
		Price:       terms.Price,
		StartDate:   terms.StartDate,
		Duration:    terms.Duration,
		ScopeOfWork: terms.ScopeOfWork,
		Schedule:    terms.Schedule,
		Status:      offer.StatusPending,
		ExpiresAt:   time.Now().Add(offer.DefaultTTL),
	}
	row := tx.QueryRow(ctx, `
        INSERT INTO offers
            (id, request_id, provider_id, price, start_date, duration, scope_of_work,
             deposit, milestone, final, status, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at, updated_at`,
		o.ID, o.RequestID, o.ProviderID, o.Price, o.StartDate, o.Duration, o.ScopeOfWork,
		o.Schedule.Deposit, o.Schedule.Milestone, o.Schedule.Final, o.Status, o.ExpiresAt)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to create offer")
	}

	if req.Status == request.StatusOpen {
		if _, err := tx.Exec(ctx, `
            UPDATE service_requests SET status = $1, updated_at = NOW()
            WHERE id = $2 AND status = $3`,
			request.StatusNegotiating, requestID, request.StatusOpen); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to advance request")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	co.notifier.Emit(ctx, req.SeekerID, notify.TypeNewOffer,
		"New offer on your request",
		fmt.Sprintf("A provider offered %d for your request.", o.Price),
		o, notify.PriorityNormal, notify.ChannelPush, notify.ChannelEmail)

	return o, nil
}

// AcceptOffer is the authoritative acceptance path: accept this offer,
// assign the request to its provider, reject every other active offer. The
// conditional status update makes the first accept win; a concurrent second
// accept fails with InvalidState instead of clobbering the assignment.
func (co *Coordinator) AcceptOffer(ctx context.Context, offerID, seekerID string) (*offer.Offer, error) {
	requestID, err := co.requestIDForOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := co.locks.Lock(requestID)
	defer unlock()

	tx, err := co.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "transaction start failed")
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SeekerID != seekerID {
		return nil, apperr.Forbidden("only the request owner can accept an offer")
	}

	o, err := offer.ScanRow(tx.QueryRow(ctx,
		`SELECT `+offer.SelectColumns()+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		return nil, apperr.NotFound("offer")
	}
	if offer.Expired(o.Status, o.ExpiresAt, time.Now()) {
		if _, err := tx.Exec(ctx, `
            UPDATE offers SET status = $1, updated_at = NOW()
            WHERE id = $2 AND status = $3`,
			offer.StatusExpired, offerID, offer.StatusPending); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to expire offer")
		}
		return nil, apperr.InvalidState("offer has expired")
	}
	if o.Status != offer.StatusPending {
		return nil, apperr.InvalidState("offer is not pending")
	}

	// Step 1, guarded: only one accept can flip the status.
	tag, err := tx.Exec(ctx, `
        UPDATE offers SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		offer.StatusAccepted, offerID, offer.StatusPending)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to accept offer")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidState("offer is not pending")
	}

	// Step 2: assignment follows the offer that actually won step 1.
	if _, err := tx.Exec(ctx, `
        UPDATE service_requests SET status = $1, assigned_to = $2, updated_at = NOW()
        WHERE id = $3`,
		request.StatusAssigned, o.ProviderID, requestID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to assign request")
	}

	// Step 3: every other competing offer loses.
	rejected, err := co.rejectOtherOffers(ctx, tx, requestID, offerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	o.Status = offer.StatusAccepted
	co.notifier.Emit(ctx, o.ProviderID, notify.TypeOfferAccepted,
		"Your offer was accepted",
		"The seeker accepted your offer. You can now arrange payment.",
		o, notify.PriorityHigh, notify.ChannelPush, notify.ChannelEmail)
	for _, providerID := range rejected {
		co.notifier.Emit(ctx, providerID, notify.TypeOfferRejected,
			"Your offer was not selected",
			"The seeker went with another offer on this request.",
			map[string]string{"request_id": requestID}, notify.PriorityLow, notify.ChannelPush)
	}
	co.notifier.Broadcast(realtime.OfferRoom(offerID), "notify:offerAccepted", o)

	return o, nil
}

func (co *Coordinator) rejectOtherOffers(ctx context.Context, tx pgx.Tx, requestID, acceptedID string) ([]string, error) {
	rows, err := tx.Query(ctx, `
        UPDATE offers SET status = $1, updated_at = NOW()
        WHERE request_id = $2 AND id <> $3 AND status IN ($4, $5)
        RETURNING provider_id`,
		offer.StatusRejected, requestID, acceptedID,
		offer.StatusPending, offer.StatusNegotiating)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to reject competing offers")
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to reject competing offers")
		}
		providers = append(providers, id)
	}
	return providers, nil
}

// RejectOffer declines a single pending offer. No cascade.
func (co *Coordinator) RejectOffer(ctx context.Context, offerID, seekerID string) (*offer.Offer, error) {
	requestID, err := co.requestIDForOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := co.locks.Lock(requestID)
	defer unlock()

	tx, err := co.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "transaction start failed")
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.SeekerID != seekerID {
		return nil, apperr.Forbidden("only the request owner can reject an offer")
	}

	row := tx.QueryRow(ctx, `
        UPDATE offers SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING `+offer.SelectColumns(),
		offer.StatusRejected, offerID, offer.StatusPending)
	o, err := offer.ScanRow(row)
	if err != nil {
		// The offer exists (its request id resolved above), so the only
		// way to miss the conditional update is a non-pending status.
		return nil, apperr.InvalidState("offer is not pending")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	co.notifier.Emit(ctx, o.ProviderID, notify.TypeOfferRejected,
		"Your offer was declined",
		"The seeker declined your offer.",
		map[string]string{"offer_id": offerID, "request_id": requestID},
		notify.PriorityLow, notify.ChannelPush)

	return o, nil
}

// NegotiateOffer appends a thread entry and advances the offer to
// negotiating. Repeated calls from either side are idempotent on the status.
func (co *Coordinator) NegotiateOffer(ctx context.Context, offerID, actorID, message string, counterPrice *int64) (*offer.NegotiationMessage, error) {
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	if counterPrice != nil && *counterPrice < 0 {
		return nil, apperr.Validation("counter price must be non-negative")
	}

	requestID, err := co.requestIDForOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := co.locks.Lock(requestID)
	defer unlock()

	tx, err := co.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "transaction start failed")
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	o, err := offer.ScanRow(tx.QueryRow(ctx,
		`SELECT `+offer.SelectColumns()+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		return nil, apperr.NotFound("offer")
	}
	if actorID != o.ProviderID && actorID != req.SeekerID {
		return nil, apperr.Forbidden("only the provider or the request owner can negotiate")
	}
	if o.Status != offer.StatusPending && o.Status != offer.StatusNegotiating {
		return nil, apperr.InvalidState("offer is no longer negotiable")
	}

	entry := &offer.NegotiationMessage{
		OfferID:      offerID,
		AuthorID:     actorID,
		Message:      message,
		CounterPrice: counterPrice,
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO negotiation_messages (offer_id, author_id, message, counter_price)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`,
		offerID, actorID, message, counterPrice,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to append negotiation message")
	}

	if _, err := tx.Exec(ctx, `
        UPDATE offers SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		offer.StatusNegotiating, offerID, offer.StatusPending); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to advance offer")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	recipient := o.ProviderID
	if actorID == o.ProviderID {
		recipient = req.SeekerID
	}
	co.notifier.Emit(ctx, recipient, notify.TypeNegotiation,
		"New negotiation message", message, entry, notify.PriorityNormal, notify.ChannelPush)
	co.notifier.Broadcast(realtime.OfferRoom(offerID), "negotiation:message", entry)

	return entry, nil
}

func (co *Coordinator) requestIDForOffer(ctx context.Context, offerID string) (string, error) {
	var requestID string
	err := co.pool.QueryRow(ctx,
		`SELECT request_id FROM offers WHERE id = $1`, offerID).Scan(&requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("offer")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "failed to load offer")
	}
	return requestID, nil
}
