package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

const (
	referralCodeLen      = 8
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeRetries  = 10
)

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}

// EnsureCode returns the account's referral code, generating and persisting
// a globally unique one on first use. Uniqueness is guaranteed by the
// column constraint with retry on collision, not by randomness alone.
func (s *PostgresStore) EnsureCode(userID int64) (string, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var existing *string
	err := s.pool.QueryRow(ctx, `
SELECT referral_code FROM users WHERE user_id = $1
`, userID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if existing != nil {
		return *existing, nil
	}

	for attempt := 0; attempt < referralCodeRetries; attempt++ {
		code, err := newReferralCode()
		if err != nil {
			return "", err
		}
		tag, err := s.pool.Exec(ctx, `
UPDATE users SET referral_code = $1
WHERE user_id = $2 AND referral_code IS NULL
`, code, userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				continue
			}
			return "", err
		}
		if tag.RowsAffected() > 0 {
			return code, nil
		}
		// A concurrent call won; return its code.
		if err := s.pool.QueryRow(ctx, `
SELECT referral_code FROM users WHERE user_id = $1
`, userID).Scan(&existing); err != nil {
			return "", err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	return "", fmt.Errorf("referral code generation: no unique candidate after %d attempts", referralCodeRetries)
}

func (s *PostgresStore) AccountByReferralCode(code string) (*types.Account, error) {
	ctx, cancel := opCtx()
	defer cancel()

	code = strings.TrimSpace(code)
	var userID int64
	err := s.pool.QueryRow(ctx, `
SELECT user_id FROM users WHERE referral_code = $1
`, code).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetAccount(userID)
}

// SetReferrerIfEmpty is the one-shot attribution guard: the write happens
// only when referred_by is still unset.
func (s *PostgresStore) SetReferrerIfEmpty(userID, referrerID int64) (bool, error) {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE users SET referred_by = $1
WHERE user_id = $2 AND referred_by IS NULL
`, referrerID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ReferralStats(userID int64) (*types.ReferralStats, error) {
	ctx, cancel := opCtx()
	defer cancel()

	stats := &types.ReferralStats{}
	var code *string
	var referrerID *int64
	err := s.pool.QueryRow(ctx, `
SELECT u.referral_code,
       u.referred_by,
       (SELECT COUNT(*) FROM users r WHERE r.referred_by = u.user_id),
       COALESCE((SELECT ref.name FROM users ref WHERE ref.user_id = u.referred_by), '')
FROM users u
WHERE u.user_id = $1
`, userID).Scan(&code, &referrerID, &stats.Count, &stats.ReferrerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if code != nil {
		stats.Code = *code
	}
	stats.ReferrerID = referrerID
	stats.Earnings = float64(stats.Count) * types.ReferralBonus
	return stats, nil
}
