package offer

import "time"

// Status values for an offer.
const (
	StatusPending     = "pending"
	StatusNegotiating = "negotiating"
	StatusAccepted    = "accepted"
	StatusRejected    = "rejected"
	StatusExpired     = "expired"
)

// DefaultTTL is how long a pending offer stays live before lazy expiry.
const DefaultTTL = 48 * time.Hour

// Schedule splits the offer price across payment stages. The three parts may
// not exceed the price.
type Schedule struct {
	Deposit   int64 `json:"deposit"`
	Milestone int64 `json:"milestone"`
	Final     int64 `json:"final"`
}

// Offer is a provider's priced proposal against a request.
type Offer struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	ProviderID  string    `json:"provider_id"`
	Price       int64     `json:"price"`
	StartDate   time.Time `json:"start_date"`
	Duration    string    `json:"duration"`
	ScopeOfWork string    `json:"scope_of_work"`
	Schedule    Schedule  `json:"payment_schedule"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terms carries a provider's proposal fields when creating or editing an
// offer.
type Terms struct {
	Price       int64     `json:"price"`
	StartDate   time.Time `json:"start_date"`
	Duration    string    `json:"duration"`
	ScopeOfWork string    `json:"scope_of_work"`
	Schedule    Schedule  `json:"payment_schedule"`
}

// NegotiationMessage is one entry of an offer's negotiation thread.
type NegotiationMessage struct {
	ID           string    `json:"id"`
	OfferID      string    `json:"offer_id"`
	AuthorID     string    `json:"author_id"`
	Message      string    `json:"message"`
	CounterPrice *int64    `json:"counter_price,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Active offers are the ones still competing: pending or negotiating.
func Active(status string) bool {
	return status == StatusPending || status == StatusNegotiating
}

// Expired reports whether a pending offer has passed its deadline.
// Negotiating offers are deliberately kept alive; the parties are talking.
func Expired(status string, expiresAt, now time.Time) bool {
	return status == StatusPending && now.After(expiresAt)
}

// EffectiveStatus is the status a reader should act on without waiting for
// the lazy write-back.
func EffectiveStatus(status string, expiresAt, now time.Time) string {
	if Expired(status, expiresAt, now) {
		return StatusExpired
	}
	return status
}

// ValidateTerms checks field constraints on offer terms before any write.
func ValidateTerms(price int64, duration, scopeOfWork string, sched Schedule) error {
	switch {
	case price < 0:
		return errNegativePrice
	case duration == "":
		return errMissingDuration
	case scopeOfWork == "":
		return errMissingScope
	case sched.Deposit < 0 || sched.Milestone < 0 || sched.Final < 0:
		return errNegativeSchedule
	case sched.Deposit+sched.Milestone+sched.Final > price:
		return errScheduleExceedsPrice
	}
	return nil
}
