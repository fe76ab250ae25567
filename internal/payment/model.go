package payment

import (
	"time"

	"github.com/khidma-app/khidma/internal/apperr"
)

// Status values for a payment.
const (
	StatusPending   = "pending"
	StatusAgreed    = "agreed"
	StatusCompleted = "completed"
	StatusDisputed  = "disputed"
	StatusRefunded  = "refunded"
)

// FeePercent is the platform's cut of every settlement.
const FeePercent = 5

// Payment is the settlement record tied to exactly one accepted offer.
type Payment struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"request_id"`
	OfferID        string    `json:"offer_id"`
	SeekerID       string    `json:"seeker_id"`
	ProviderID     string    `json:"provider_id"`
	Amount         int64     `json:"amount"`
	PlatformFee    int64     `json:"platform_fee"`
	ProviderAmount int64     `json:"provider_amount"`
	Status         string    `json:"status"`
	Method         string    `json:"method"`
	TransactionID  *string   `json:"transaction_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Fee is the platform fee for an amount in integer currency units, rounded
// to the nearest unit (half up).
func Fee(amount int64) int64 {
	return (amount*FeePercent + 50) / 100
}

// ComputeAmounts recomputes fee and provider share from the amount and checks
// the ledger invariants. It never clamps; a violation fails the write. Run on
// every path that touches amount or fee fields before persisting.
func ComputeAmounts(amount int64) (fee, providerAmount int64, err error) {
	if amount < 0 {
		return 0, 0, apperr.Validation("amount must be non-negative")
	}
	fee = Fee(amount)
	providerAmount = amount - fee
	if fee > amount {
		return 0, 0, apperr.Validation("platform fee exceeds amount")
	}
	if providerAmount < 0 {
		return 0, 0, apperr.Validation("provider amount must be non-negative")
	}
	return fee, providerAmount, nil
}

// ManualMethod reports whether a gateway tag is settled by hand rather than
// by a gateway callback. Only manual methods accept operator status updates.
func ManualMethod(method string) bool {
	switch method {
	case "cash", "bank_transfer":
		return true
	default:
		return false
	}
}

// ValidMethod is the closed set of accepted gateway tags.
func ValidMethod(method string) bool {
	switch method {
	case "cash", "bank_transfer", "card", "wallet":
		return true
	default:
		return false
	}
}

// transitions maps each status to the statuses it may move to.
var transitions = map[string][]string{
	StatusPending:  {StatusAgreed, StatusCompleted, StatusDisputed, StatusRefunded},
	StatusAgreed:   {StatusCompleted, StatusDisputed, StatusRefunded},
	StatusDisputed: {StatusCompleted, StatusRefunded},
}

// CanTransition reports whether a status move is allowed. Completed and
// refunded are terminal.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
