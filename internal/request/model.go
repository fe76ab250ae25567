package request

import "time"

// Status values for a service request.
const (
	StatusOpen        = "open"
	StatusNegotiating = "negotiating"
	StatusAssigned    = "assigned"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
)

// DefaultTTL is how long an open request stays live before lazy expiry.
const DefaultTTL = 7 * 24 * time.Hour

// ServiceRequest is a seeker's posted need. Location is governorate/city
// only; street-level detail is never stored or exposed.
type ServiceRequest struct {
	ID          string     `json:"id"`
	SeekerID    string     `json:"seeker_id"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory,omitempty"`
	Description string     `json:"description"`
	Urgency     string     `json:"urgency"`
	Governorate string     `json:"governorate"`
	City        string     `json:"city"`
	Status      string     `json:"status"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Expired reports whether an open request has passed its deadline. Only open
// requests expire; anything already negotiating or beyond keeps its status.
func Expired(status string, expiresAt, now time.Time) bool {
	return status == StatusOpen && now.After(expiresAt)
}

// EffectiveStatus is the status a reader should act on without waiting for
// the lazy write-back: an expired open request reads as cancelled.
func EffectiveStatus(status string, expiresAt, now time.Time) string {
	if Expired(status, expiresAt, now) {
		return StatusCancelled
	}
	return status
}

// AssignedConsistent checks the core invariant: assigned_to is set exactly
// when the request is assigned, in progress, or completed.
func AssignedConsistent(status string, assignedTo *string) bool {
	switch status {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		return assignedTo != nil && *assignedTo != ""
	default:
		return assignedTo == nil || *assignedTo == ""
	}
}

// AcceptsOffers reports whether new offers may target the request.
func AcceptsOffers(status string) bool {
	return status == StatusOpen || status == StatusNegotiating
}
