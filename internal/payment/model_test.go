package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khidma-app/khidma/internal/apperr"
)

func TestFee(t *testing.T) {
	cases := []struct {
		amount int64
		fee    int64
	}{
		{0, 0},
		{1000, 50},
		{100, 5},
		{99, 5},   // 4.95 rounds up
		{10, 1},   // 0.5 rounds half up
		{9, 0},    // 0.45 rounds down
		{20, 1},
		{12345, 617}, // 617.25 rounds down
	}
	for _, tc := range cases {
		assert.Equal(t, tc.fee, Fee(tc.amount), "amount=%d", tc.amount)
	}
}

func TestComputeAmounts(t *testing.T) {
	fee, provider, err := ComputeAmounts(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fee)
	assert.Equal(t, int64(950), provider)
	assert.Equal(t, int64(1000), fee+provider)
}

func TestComputeAmountsNegative(t *testing.T) {
	_, _, err := ComputeAmounts(-1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestComputeAmountsSumInvariant(t *testing.T) {
	for amount := int64(0); amount <= 500; amount++ {
		fee, provider, err := ComputeAmounts(amount)
		require.NoError(t, err)
		assert.Equal(t, amount, fee+provider, "amount=%d", amount)
		assert.GreaterOrEqual(t, fee, int64(0))
		assert.GreaterOrEqual(t, provider, int64(0))
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusAgreed},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusDisputed},
		{StatusPending, StatusRefunded},
		{StatusAgreed, StatusCompleted},
		{StatusAgreed, StatusDisputed},
		{StatusAgreed, StatusRefunded},
		{StatusDisputed, StatusCompleted},
		{StatusDisputed, StatusRefunded},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{StatusCompleted, StatusRefunded},
		{StatusCompleted, StatusPending},
		{StatusRefunded, StatusCompleted},
		{StatusRefunded, StatusPending},
		{StatusAgreed, StatusPending},
		{StatusDisputed, StatusAgreed},
		{StatusPending, StatusPending},
		{"bogus", StatusCompleted},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMethods(t *testing.T) {
	assert.True(t, ManualMethod("cash"))
	assert.True(t, ManualMethod("bank_transfer"))
	assert.False(t, ManualMethod("card"))
	assert.False(t, ManualMethod("wallet"))
	assert.False(t, ManualMethod(""))

	for _, m := range []string{"cash", "bank_transfer", "card", "wallet"} {
		assert.True(t, ValidMethod(m), m)
	}
	assert.False(t, ValidMethod("cheque"))
	assert.False(t, ValidMethod(""))
}
