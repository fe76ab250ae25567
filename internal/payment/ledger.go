package payment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Ledger reads payment records. Writes go through the coordinator, which
// recomputes fees via ComputeAmounts inside its transaction.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const selectColumns = `id, request_id, offer_id, seeker_id, provider_id, amount,
    platform_fee, provider_amount, status, method, transaction_id, created_at, updated_at`

// ScanRow reads one payment row in selectColumns order.
func ScanRow(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.RequestID, &p.OfferID, &p.SeekerID, &p.ProviderID,
		&p.Amount, &p.PlatformFee, &p.ProviderAmount, &p.Status, &p.Method,
		&p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SelectColumns exposes the canonical column list for coordinator queries.
func SelectColumns() string { return selectColumns }

// Get loads one payment.
func (l *Ledger) Get(ctx context.Context, id string) (*Payment, error) {
	p, err := ScanRow(l.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.NotFound("payment")
	}
	return p, nil
}

// ListForUser returns payments where the user is either side.
func (l *Ledger) ListForUser(ctx context.Context, userID string) ([]Payment, error) {
	rows, err := l.pool.Query(ctx, `
        SELECT `+selectColumns+` FROM payments
        WHERE seeker_id = $1 OR provider_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to list payments")
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := ScanRow(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "failed to parse payment")
		}
		out = append(out, *p)
	}
	return out, nil
}
