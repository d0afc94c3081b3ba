package referral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozodbek-dev/anonchat-bot/store"
)

func setupReferrer(t *testing.T, s *store.MemoryStore) string {
	t.Helper()
	_, _, err := s.GetOrCreate(7, "ref", "Referrer")
	require.NoError(t, err)
	code, err := s.EnsureCode(7)
	require.NoError(t, err)
	return code
}

func TestAttributeCreditsExactlyOnce(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	_, _, err := s.GetOrCreate(42, "new", "Newcomer")
	require.NoError(t, err)

	var notified []int64
	engine := NewEngine(s, func(userID int64, text string) error {
		notified = append(notified, userID)
		assert.NotEmpty(t, text)
		return nil
	}, nil)

	paid, err := engine.Attribute(42, code)
	require.NoError(t, err)
	assert.True(t, paid)

	balance, total, err := s.Balance(7)
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)
	assert.Equal(t, 0.0, total, "bonus must not count as deposit")
	assert.Equal(t, []int64{7}, notified)

	// A replayed deep link pays nothing.
	paid, err = engine.Attribute(42, code)
	require.NoError(t, err)
	assert.False(t, paid)

	balance, _, err = s.Balance(7)
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)
}

func TestAttributeOutsideGraceWindow(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	_, _, err := s.GetOrCreate(42, "old", "Oldtimer")
	require.NoError(t, err)
	s.SetCreatedAt(42, time.Now().Add(-2*GraceWindow))

	engine := NewEngine(s, nil, nil)
	paid, err := engine.Attribute(42, code)
	require.NoError(t, err)
	assert.False(t, paid)

	balance, _, err := s.Balance(7)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestAttributeSelfReferral(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	engine := NewEngine(s, nil, nil)
	paid, err := engine.Attribute(7, code)
	require.NoError(t, err)
	assert.False(t, paid)

	a, err := s.GetAccount(7)
	require.NoError(t, err)
	assert.Nil(t, a.ReferredBy)
}

func TestAttributeUnknownCode(t *testing.T) {
	s := store.NewMemoryStore()
	_, _, err := s.GetOrCreate(42, "new", "Newcomer")
	require.NoError(t, err)

	engine := NewEngine(s, nil, nil)
	paid, err := engine.Attribute(42, "NOPE1234")
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestAttributeUnknownUser(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	engine := NewEngine(s, nil, nil)
	paid, err := engine.Attribute(404, code)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestAttributeSecondCodeDoesNotSteal(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	_, _, err := s.GetOrCreate(8, "ref2", "Other")
	require.NoError(t, err)
	otherCode, err := s.EnsureCode(8)
	require.NoError(t, err)

	_, _, err = s.GetOrCreate(42, "new", "Newcomer")
	require.NoError(t, err)

	engine := NewEngine(s, nil, nil)
	paid, err := engine.Attribute(42, code)
	require.NoError(t, err)
	require.True(t, paid)

	paid, err = engine.Attribute(42, otherCode)
	require.NoError(t, err)
	assert.False(t, paid)

	a, err := s.GetAccount(42)
	require.NoError(t, err)
	require.NotNil(t, a.ReferredBy)
	assert.Equal(t, int64(7), *a.ReferredBy)

	balance, _, err := s.Balance(8)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestAttributeSurvivesNotifyFailure(t *testing.T) {
	s := store.NewMemoryStore()
	code := setupReferrer(t, s)

	_, _, err := s.GetOrCreate(42, "new", "Newcomer")
	require.NoError(t, err)

	engine := NewEngine(s, func(userID int64, text string) error {
		return assert.AnError
	}, nil)

	paid, err := engine.Attribute(42, code)
	require.NoError(t, err)
	assert.True(t, paid)

	balance, _, err := s.Balance(7)
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)
}
