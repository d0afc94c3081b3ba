package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozodbek-dev/anonchat-bot/types"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	s := NewMemoryStore()

	token, isNew, err := s.GetOrCreate(42, "alice", "Alice")
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotEmpty(t, token)

	again, isNew, err := s.GetOrCreate(42, "alice", "Alice")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, token, again)

	// A changed username is refreshed without minting a new token.
	same, isNew, err := s.GetOrCreate(42, "alice_new", "Alice")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, token, same)

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", a.Username)
}

func TestResolveByToken(t *testing.T) {
	s := NewMemoryStore()

	token, _, err := s.GetOrCreate(42, "alice", "Alice")
	require.NoError(t, err)

	id, err := s.ResolveByToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = s.ResolveByToken("no-such-token")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSetHiddenRequiresPremium(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "alice", "Alice")
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetHidden(42), types.ErrNotPremium)
	assert.ErrorIs(t, s.SetHidden(999), types.ErrNotFound)

	_, err = s.ActivateOrExtend(42, types.PlanOneMonth)
	require.NoError(t, err)
	require.NoError(t, s.SetHidden(42))

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	assert.True(t, a.IsHidden)
}

func TestMatchPairsWaiters(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)
	_, _, err = s.GetOrCreate(99, "b", "B")
	require.NoError(t, err)

	require.NoError(t, s.JoinQueue(42))
	_, err = s.Match(42)
	assert.ErrorIs(t, err, types.ErrNoPartner)

	n, err := s.QueueLen()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.JoinQueue(99))
	partnerID, err := s.Match(99)
	require.NoError(t, err)
	assert.Equal(t, int64(42), partnerID)

	// Both queue entries are consumed and the session is symmetric.
	n, err = s.QueueLen()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p, err := s.Partner(42)
	require.NoError(t, err)
	assert.Equal(t, int64(99), p)
	p, err = s.Partner(99)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p)

	// Chat members cannot rejoin the queue.
	assert.ErrorIs(t, s.JoinQueue(42), types.ErrAlreadyInChat)
	assert.ErrorIs(t, s.JoinQueue(99), types.ErrAlreadyInChat)
}

func TestJoinQueueTwice(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.JoinQueue(42))
	assert.ErrorIs(t, s.JoinQueue(42), types.ErrAlreadyInQueue)

	require.NoError(t, s.LeaveQueue(42))
	require.NoError(t, s.JoinQueue(42))
}

func TestMatchWithoutJoining(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Match(42)
	assert.ErrorIs(t, err, types.ErrNotInQueue)
}

func TestRecentAccountsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		_, _, err := s.GetOrCreate(i, "", fmt.Sprintf("U%d", i))
		require.NoError(t, err)
		s.SetCreatedAt(i, base.Add(time.Duration(i)*time.Hour))
	}

	recent, err := s.RecentAccounts(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].UserID)
	assert.Equal(t, int64(4), recent[1].UserID)
	assert.Equal(t, int64(3), recent[2].UserID)
}

func TestMatchRejectsStaleQueuedCaller(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.JoinQueue(42))
	require.NoError(t, s.JoinQueue(99))
	_, err := s.Match(42)
	require.NoError(t, err)

	// Re-create the race window where a paired account still holds a
	// queue row, then let it attempt a second match.
	s.mu.Lock()
	s.queue[42] = s.now()
	s.mu.Unlock()
	require.NoError(t, s.JoinQueue(7))

	_, err = s.Match(42)
	assert.ErrorIs(t, err, types.ErrAlreadyInChat)

	// The stale row is reaped, the original session stands, and the
	// waiting user keeps their place.
	n, err := s.QueueLen()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	partnerID, err := s.Partner(42)
	require.NoError(t, err)
	assert.Equal(t, int64(99), partnerID)
}

func TestMatchRejectsStaleQueuedPartner(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.JoinQueue(42))
	require.NoError(t, s.JoinQueue(99))
	_, err := s.Match(42)
	require.NoError(t, err)

	s.mu.Lock()
	s.queue[99] = s.now()
	s.mu.Unlock()
	require.NoError(t, s.JoinQueue(7))

	_, err = s.Match(7)
	assert.ErrorIs(t, err, types.ErrAlreadyInChat)

	// 99 stays with its original partner and never enters a second
	// session; 7 remains queued for a real one.
	partnerID, err := s.Partner(99)
	require.NoError(t, err)
	assert.Equal(t, int64(42), partnerID)
	_, err = s.Match(7)
	assert.ErrorIs(t, err, types.ErrNoPartner)
}

func TestEndIdempotent(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.JoinQueue(42))
	require.NoError(t, s.JoinQueue(99))
	_, err := s.Match(42)
	require.NoError(t, err)

	ended, partnerID, err := s.End(99)
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, int64(42), partnerID)

	ended, partnerID, err = s.End(99)
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Zero(t, partnerID)

	_, err = s.Partner(42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestEndSessionByID(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)
	_, _, err = s.GetOrCreate(99, "b", "B")
	require.NoError(t, err)
	require.NoError(t, s.JoinQueue(42))
	require.NoError(t, s.JoinQueue(99))
	_, err = s.Match(42)
	require.NoError(t, err)

	sessions, err := s.ActiveSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	u1, u2, err := s.EndSessionByID(sessions[0].SessionID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{42, 99}, []int64{u1, u2})

	_, _, err = s.EndSessionByID(sessions[0].SessionID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBanExpiresWithClock(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.SetNow(func() time.Time { return current })

	require.NoError(t, s.Ban(42, 60*time.Minute, "spam"))

	banned, until, err := s.CheckBan(42)
	require.NoError(t, err)
	require.True(t, banned)
	require.NotNil(t, until)
	assert.Equal(t, base.Add(60*time.Minute), *until)

	count, err := s.BannedCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	current = base.Add(61 * time.Minute)
	banned, until, err = s.CheckBan(42)
	require.NoError(t, err)
	assert.False(t, banned)
	assert.Nil(t, until)

	count, err = s.BannedCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBanReplacesPrevious(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return base })

	require.NoError(t, s.Ban(42, time.Hour, "first"))
	require.NoError(t, s.Ban(42, 10*time.Minute, "second"))

	_, until, err := s.CheckBan(42)
	require.NoError(t, err)
	require.NotNil(t, until)
	assert.Equal(t, base.Add(10*time.Minute), *until)

	removed, err := s.Unban(42)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Unban(42)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCreditKeepsTotalOnDebit(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)

	require.NoError(t, s.Credit(42, 100, true))
	require.NoError(t, s.Credit(42, -30, false))

	balance, total, err := s.Balance(42)
	require.NoError(t, err)
	assert.Equal(t, 70.0, balance)
	assert.Equal(t, 100.0, total)
}

func TestCreatePaymentRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	txn := "click-12345"

	id, err := s.CreatePayment(42, 5000, types.MethodBalance, &txn, nil)
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = s.CreatePayment(42, 5000, types.MethodBalance, &txn, nil)
	assert.ErrorIs(t, err, types.ErrDuplicateTransaction)

	exists, err := s.TransactionIDExists(txn)
	require.NoError(t, err)
	assert.True(t, exists)

	// Two payments without a transaction id never collide.
	_, err = s.CreatePayment(42, 5000, types.MethodBalance, nil, nil)
	require.NoError(t, err)
	_, err = s.CreatePayment(42, 5000, types.MethodBalance, nil, nil)
	require.NoError(t, err)
}

func TestCreatePaymentRejectsLegacyMethods(t *testing.T) {
	s := NewMemoryStore()
	for _, m := range []types.PaymentMethod{types.MethodClick, types.MethodPayme, types.MethodPaynet} {
		_, err := s.CreatePayment(42, 5000, m, nil, nil)
		assert.ErrorIs(t, err, types.ErrInvalidPaymentMethod, string(m))
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	s := NewMemoryStore()
	id, err := s.CreatePayment(42, 5000, types.MethodBalance, nil, nil)
	require.NoError(t, err)

	txn := "prov-1"
	require.NoError(t, s.UpdatePaymentStatus(id, types.PaymentCompleted, &txn))

	history, err := s.PaymentHistory(42, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.PaymentCompleted, history[0].Status)
	require.NotNil(t, history[0].TransactionID)
	assert.Equal(t, txn, *history[0].TransactionID)

	assert.ErrorIs(t, s.UpdatePaymentStatus(9999, types.PaymentFailed, nil), types.ErrNotFound)
}

func TestActivateOrExtendAddsTime(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.SetNow(func() time.Time { return base })

	firstID, err := s.ActivateOrExtend(42, types.PlanOneMonth)
	require.NoError(t, err)

	sub, err := s.CurrentSubscription(42)
	require.NoError(t, err)
	assert.Equal(t, base, sub.StartDate)
	assert.Equal(t, base.AddDate(0, 0, 30), sub.EndDate)

	// A second purchase while still active extends from the old end date
	// and reuses the row.
	secondID, err := s.ActivateOrExtend(42, types.PlanOneMonth)
	require.NoError(t, err)
	assert.Equal(t, firstID, secondID)

	sub, err = s.CurrentSubscription(42)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 30), sub.StartDate)
	assert.Equal(t, base.AddDate(0, 0, 60), sub.EndDate)

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	assert.True(t, a.IsPremium)
}

func TestActivateOrExtendAfterExpiry(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.SetNow(func() time.Time { return current })

	_, err = s.ActivateOrExtend(42, types.PlanOneMonth)
	require.NoError(t, err)

	current = base.AddDate(0, 0, 45)
	_, err = s.ActivateOrExtend(42, types.PlanOneMonth)
	require.NoError(t, err)

	sub, err := s.CurrentSubscription(42)
	require.NoError(t, err)
	assert.Equal(t, current, sub.StartDate)
	assert.Equal(t, current.AddDate(0, 0, 30), sub.EndDate)
}

func TestActivateOrExtendInvalidPlan(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.ActivateOrExtend(42, types.Plan("lifetime"))
	assert.ErrorIs(t, err, types.ErrInvalidPlan)
}

func TestEnsureCodeStable(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)

	code, err := s.EnsureCode(42)
	require.NoError(t, err)
	require.Len(t, code, 8)
	for _, r := range code {
		assert.Contains(t, referralCodeAlphabet, string(r))
	}

	again, err := s.EnsureCode(42)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	owner, err := s.AccountByReferralCode(code)
	require.NoError(t, err)
	assert.Equal(t, int64(42), owner.UserID)
}

func TestSetReferrerIfEmptyOnce(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "a", "A")
	require.NoError(t, err)

	set, err := s.SetReferrerIfEmpty(42, 7)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.SetReferrerIfEmpty(42, 8)
	require.NoError(t, err)
	assert.False(t, set)

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	require.NotNil(t, a.ReferredBy)
	assert.Equal(t, int64(7), *a.ReferredBy)
}

func TestReferralStats(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.GetOrCreate(7, "ref", "Referrer")
	require.NoError(t, err)
	for _, id := range []int64{100, 101, 102} {
		_, _, err := s.GetOrCreate(id, "u", "User")
		require.NoError(t, err)
		set, err := s.SetReferrerIfEmpty(id, 7)
		require.NoError(t, err)
		require.True(t, set)
	}

	stats, err := s.ReferralStats(7)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 3*types.ReferralBonus, stats.Earnings)
}

func TestChatMessageCountIsDirectionless(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.LogMessage(42, 99, "hi"))
	require.NoError(t, s.LogMessage(99, 42, "hello"))
	require.NoError(t, s.LogMessage(42, 7, "other"))

	count, err := s.ChatMessageCount(42, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.ChatMessageCount(99, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCountAccounts(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []int64{1, 2, 3} {
		_, _, err := s.GetOrCreate(id, "u", "User")
		require.NoError(t, err)
	}
	_, err := s.ActivateOrExtend(2, types.PlanOneMonth)
	require.NoError(t, err)

	total, premium, err := s.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, premium)
}
