package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTable(t *testing.T) {
	cases := []struct {
		plan  Plan
		days  int
		price float64
	}{
		{PlanOneMonth, 30, 5000.00},
		{PlanThreeMonths, 90, 12000.00},
		{PlanSixMonths, 180, 25000.00},
		{PlanOneYear, 365, 50000.00},
	}
	for _, tc := range cases {
		require.True(t, tc.plan.Valid(), string(tc.plan))
		assert.Equal(t, tc.days, tc.plan.Days())
		assert.Equal(t, tc.price, tc.plan.Price())
		assert.NotEmpty(t, tc.plan.Title())
	}

	assert.False(t, Plan("2_weeks").Valid())
	assert.False(t, Plan("").Valid())
}

func TestNextWindowFresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	start, end := NextWindow(nil, PlanOneMonth, now)
	assert.Equal(t, now, start)
	assert.Equal(t, now.AddDate(0, 0, 30), end)
}

func TestNextWindowExtendsUnexpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := &Subscription{
		StartDate: now.AddDate(0, 0, -10),
		EndDate:   now.AddDate(0, 0, 20),
		IsActive:  true,
	}

	start, end := NextWindow(current, PlanThreeMonths, now)
	assert.Equal(t, current.EndDate, start)
	assert.Equal(t, current.EndDate.AddDate(0, 0, 90), end)
}

func TestNextWindowResetsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := &Subscription{
		StartDate: now.AddDate(0, 0, -40),
		EndDate:   now.AddDate(0, 0, -10),
		IsActive:  true,
	}

	start, end := NextWindow(current, PlanOneMonth, now)
	assert.Equal(t, now, start)
	assert.Equal(t, now.AddDate(0, 0, 30), end)
}

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var nilSub *Subscription
	assert.False(t, nilSub.ActiveAt(now))

	sub := &Subscription{IsActive: true, EndDate: now.Add(time.Hour)}
	assert.True(t, sub.ActiveAt(now))

	sub.EndDate = now.Add(-time.Hour)
	assert.False(t, sub.ActiveAt(now))

	sub.EndDate = now.Add(time.Hour)
	sub.IsActive = false
	assert.False(t, sub.ActiveAt(now))
}

func TestPaymentMethodGate(t *testing.T) {
	assert.True(t, MethodBalance.AcceptedForNewPayments())
	assert.False(t, MethodClick.AcceptedForNewPayments())
	assert.False(t, MethodPayme.AcceptedForNewPayments())
	assert.False(t, MethodPaynet.AcceptedForNewPayments())
}
