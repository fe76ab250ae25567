package offer

import "github.com/khidma-app/khidma/internal/apperr"

var (
	errNegativePrice        = apperr.Validation("price must be non-negative")
	errMissingDuration      = apperr.Validation("timeline duration is required")
	errMissingScope         = apperr.Validation("scope of work is required")
	errNegativeSchedule     = apperr.Validation("payment schedule parts must be non-negative")
	errScheduleExceedsPrice = apperr.Validation("payment schedule exceeds the offer price")
)
