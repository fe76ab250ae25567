package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/khidma-app/khidma/internal/apperr"
	"github.com/khidma-app/khidma/internal/notify"
	"github.com/khidma-app/khidma/internal/offer"
	"github.com/khidma-app/khidma/internal/payment"
	"github.com/khidma-app/khidma/internal/request"
)

// CreatePayment settles an accepted offer: fee and provider share are
// recomputed from the amount, the payment is inserted pending, and the
// request advances to in_progress. Exactly one payment may exist per offer.
func (co *Coordinator) CreatePayment(ctx context.Context, offerID, seekerID string, amount int64, method string) (*payment.Payment, error) {
	if !payment.ValidMethod(method) {
		return nil, apperr.Validation("unknown payment method")
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
	if req.SeekerID != seekerID {
		return nil, apperr.Forbidden("only the request owner can create the payment")
	}

	o, err := offer.ScanRow(tx.QueryRow(ctx,
		`SELECT `+offer.SelectColumns()+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		return nil, apperr.NotFound("offer")
	}
	if o.Status != offer.StatusAccepted {
		return nil, apperr.InvalidState("payment requires an accepted offer")
	}
	if amount != o.Price {
		return nil, apperr.Validation(
			fmt.Sprintf("amount must equal the accepted offer price (%d)", o.Price))
	}

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE offer_id = $1`, offerID).Scan(&existing); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to check existing payment")
	}
	if existing > 0 {
		return nil, apperr.Conflict("a payment already exists for this offer")
	}

	// Fee is always recomputed here, never trusted from the caller, and the
	// invariants are checked before the insert.
	fee, providerAmount, err := payment.ComputeAmounts(amount)
	if err != nil {
		return nil, err
	}

	p := &payment.Payment{
		ID:             uuid.New().String(),
		RequestID:      requestID,
		OfferID:        offerID,
		SeekerID:       seekerID,
		ProviderID:     o.ProviderID,
		Amount:         amount,
		PlatformFee:    fee,
		ProviderAmount: providerAmount,
		Status:         payment.StatusPending,
		Method:         method,
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO payments
            (id, request_id, offer_id, seeker_id, provider_id, amount, platform_fee,
             provider_amount, status, method)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at`,
		p.ID, p.RequestID, p.OfferID, p.SeekerID, p.ProviderID, p.Amount,
		p.PlatformFee, p.ProviderAmount, p.Status, p.Method,
	).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, apperr.Wrap(apperr.KindConflict, err, "a payment already exists for this offer")
	}

	if _, err := tx.Exec(ctx, `
        UPDATE service_requests SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		request.StatusInProgress, requestID, request.StatusAssigned); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to advance request")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	co.notifier.Emit(ctx, p.ProviderID, notify.TypePaymentCreated,
		"Payment created",
		fmt.Sprintf("A payment of %d was created (your share after fee: %d).", p.Amount, p.ProviderAmount),
		p, notify.PriorityHigh, notify.ChannelPush, notify.ChannelEmail)

	return p, nil
}

// UpdatePaymentStatus moves a manual-gateway payment along its transition
// table. Automated gateways settle via their own callbacks and reject
// operator updates. Completing the payment completes the request.
func (co *Coordinator) UpdatePaymentStatus(ctx context.Context, paymentID, newStatus, verifierID string, verifierIsAdmin bool) (*payment.Payment, error) {
	switch newStatus {
	case payment.StatusAgreed, payment.StatusCompleted, payment.StatusDisputed, payment.StatusRefunded:
	default:
		return nil, apperr.Validation("unknown payment status")
	}

	var requestID string
	err := co.pool.QueryRow(ctx,
		`SELECT request_id FROM payments WHERE id = $1`, paymentID).Scan(&requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("payment")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to load payment")
	}

	unlock := co.locks.Lock(requestID)
	defer unlock()

	tx, err := co.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "transaction start failed")
	}
	defer tx.Rollback(ctx)

	if _, err := lockRequest(ctx, tx, requestID); err != nil {
		return nil, err
	}

	p, err := payment.ScanRow(tx.QueryRow(ctx,
		`SELECT `+payment.SelectColumns()+` FROM payments WHERE id = $1`, paymentID))
	if err != nil {
		return nil, apperr.NotFound("payment")
	}
	if !payment.ManualMethod(p.Method) {
		return nil, apperr.InvalidState("only manual payment methods can be updated by hand")
	}
	if !verifierIsAdmin && verifierID != p.SeekerID {
		return nil, apperr.Forbidden("only an admin or the paying seeker can update this payment")
	}
	if !payment.CanTransition(p.Status, newStatus) {
		return nil, apperr.InvalidState(
			fmt.Sprintf("payment cannot move from %s to %s", p.Status, newStatus))
	}

	// The amount fields ride along unchanged, but the invariants are still
	// re-verified before the write.
	if _, _, err := payment.ComputeAmounts(p.Amount); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
        UPDATE payments SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3`,
		newStatus, paymentID, p.Status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to update payment")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidState("payment status changed concurrently")
	}

	if newStatus == payment.StatusCompleted {
		if _, err := tx.Exec(ctx, `
            UPDATE service_requests SET status = $1, completed_at = NOW(), updated_at = NOW()
            WHERE id = $2`,
			request.StatusCompleted, requestID); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to complete request")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit failed")
	}

	p.Status = newStatus
	if newStatus == payment.StatusCompleted {
		completedAt := time.Now().UTC().Format(time.RFC3339)
		for _, userID := range []string{p.SeekerID, p.ProviderID} {
			co.notifier.Emit(ctx, userID, notify.TypePaymentCompleted,
				"Payment completed",
				fmt.Sprintf("Payment for request was completed at %s.", completedAt),
				p, notify.PriorityHigh, notify.ChannelPush, notify.ChannelEmail)
		}
	}

	return p, nil
}
