package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khidma-app/khidma/internal/apperr"
)

func TestActive(t *testing.T) {
	assert.True(t, Active(StatusPending))
	assert.True(t, Active(StatusNegotiating))
	for _, status := range []string{StatusAccepted, StatusRejected, StatusExpired} {
		assert.False(t, Active(status), status)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Expired(StatusPending, past, now))
	assert.False(t, Expired(StatusPending, future, now))

	// A negotiating offer stays alive past its deadline; the parties are
	// still talking.
	assert.False(t, Expired(StatusNegotiating, past, now))
	assert.False(t, Expired(StatusAccepted, past, now))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.Equal(t, StatusExpired, EffectiveStatus(StatusPending, past, now))
	assert.Equal(t, StatusPending, EffectiveStatus(StatusPending, future, now))
	assert.Equal(t, StatusNegotiating, EffectiveStatus(StatusNegotiating, past, now))
}

func TestValidateTerms(t *testing.T) {
	ok := Schedule{Deposit: 200, Milestone: 300, Final: 500}
	require.NoError(t, ValidateTerms(1000, "3 days", "paint the hallway", ok))

	// A schedule that covers less than the price is fine.
	require.NoError(t, ValidateTerms(1000, "3 days", "paint the hallway", Schedule{Deposit: 100}))
	require.NoError(t, ValidateTerms(0, "1 day", "inspection", Schedule{}))
}

func TestValidateTermsFailures(t *testing.T) {
	cases := []struct {
		name     string
		price    int64
		duration string
		scope    string
		sched    Schedule
	}{
		{"negative price", -1, "1 day", "scope", Schedule{}},
		{"missing duration", 100, "", "scope", Schedule{}},
		{"missing scope", 100, "1 day", "", Schedule{}},
		{"negative deposit", 100, "1 day", "scope", Schedule{Deposit: -1}},
		{"negative milestone", 100, "1 day", "scope", Schedule{Milestone: -1}},
		{"negative final", 100, "1 day", "scope", Schedule{Final: -1}},
		{"schedule exceeds price", 100, "1 day", "scope", Schedule{Deposit: 60, Milestone: 60}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTerms(tc.price, tc.duration, tc.scope, tc.sched)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}
