package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozodbek-dev/anonchat-bot/store"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

func newAccount(t *testing.T, s *store.MemoryStore, userID int64, balance float64) {
	t.Helper()
	_, _, err := s.GetOrCreate(userID, "u", "User")
	require.NoError(t, err)
	if balance != 0 {
		require.NoError(t, s.Credit(userID, balance, true))
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	s := store.NewMemoryStore()
	newAccount(t, s, 42, 4999)

	svc := NewService(s)
	_, err := svc.Purchase(42, types.PlanOneMonth)
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)

	// Nothing was activated or recorded.
	_, err = s.CurrentSubscription(42)
	assert.ErrorIs(t, err, types.ErrNotFound)

	history, err := s.PaymentHistory(42, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	balance, _, err := s.Balance(42)
	require.NoError(t, err)
	assert.Equal(t, 4999.0, balance)
}

func TestPurchaseDebitsAndRecords(t *testing.T) {
	s := store.NewMemoryStore()
	newAccount(t, s, 42, 10000)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return base })

	svc := NewService(s)
	result, err := svc.Purchase(42, types.PlanOneMonth)
	require.NoError(t, err)

	assert.Equal(t, types.PlanOneMonth, result.Plan)
	assert.Equal(t, 5000.0, result.Price)
	assert.Equal(t, 5000.0, result.Remaining)
	assert.NotZero(t, result.SubscriptionID)

	balance, total, err := s.Balance(42)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, balance)
	assert.Equal(t, 10000.0, total, "a purchase is not a deposit")

	sub, err := svc.CurrentSubscription(42)
	require.NoError(t, err)
	assert.Equal(t, result.SubscriptionID, sub.ID)
	assert.Equal(t, base.AddDate(0, 0, 30), sub.EndDate)

	history, err := svc.PaymentHistory(42, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	p := history[0]
	assert.Equal(t, types.MethodBalance, p.Method)
	assert.Equal(t, 5000.0, p.Amount)
	require.NotNil(t, p.MerchantData)
	assert.Equal(t, "subscription:1", *p.MerchantData)
	assert.Nil(t, p.TransactionID)

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	assert.True(t, a.IsPremium)
}

func TestPurchaseExtendsActiveSubscription(t *testing.T) {
	s := store.NewMemoryStore()
	newAccount(t, s, 42, 20000)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return base })

	svc := NewService(s)
	first, err := svc.Purchase(42, types.PlanOneMonth)
	require.NoError(t, err)
	second, err := svc.Purchase(42, types.PlanOneMonth)
	require.NoError(t, err)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)

	sub, err := svc.CurrentSubscription(42)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 60), sub.EndDate)

	balance, _, err := s.Balance(42)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, balance)

	history, err := svc.PaymentHistory(42, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPurchaseInvalidPlan(t *testing.T) {
	s := store.NewMemoryStore()
	newAccount(t, s, 42, 100000)

	svc := NewService(s)
	_, err := svc.Purchase(42, types.Plan("forever"))
	assert.ErrorIs(t, err, types.ErrInvalidPlan)
}

func TestPurchaseExactBalance(t *testing.T) {
	s := store.NewMemoryStore()
	newAccount(t, s, 42, 5000)

	svc := NewService(s)
	result, err := svc.Purchase(42, types.PlanOneMonth)
	require.NoError(t, err)
	assert.Zero(t, result.Remaining)

	balance, _, err := s.Balance(42)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
