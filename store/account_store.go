package store

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// GetOrCreate returns the account token, minting the account on first
// contact. The unique constraint on user_id is the source of truth under
// concurrent calls: losing the insert race falls back to the winner's row.
func (s *PostgresStore) GetOrCreate(userID int64, username, name string) (string, bool, error) {
	ctx, cancel := opCtx()
	defer cancel()

	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	var token, curUsername, curName string
	err := s.pool.QueryRow(ctx, `
SELECT token, username, name
FROM users
WHERE user_id = $1
`, userID).Scan(&token, &curUsername, &curName)
	switch {
	case err == nil:
		if curUsername != username || curName != name {
			if _, err := s.pool.Exec(ctx, `
UPDATE users SET username = $1, name = $2 WHERE user_id = $3
`, username, name, userID); err != nil {
				return "", false, err
			}
		}
		return token, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return "", false, err
	}

	token = uuid.NewString()
	tag, err := s.pool.Exec(ctx, `
INSERT INTO users (user_id, username, name, token)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO NOTHING
`, userID, username, name, token)
	if err != nil {
		return "", false, err
	}
	if tag.RowsAffected() > 0 {
		return token, true, nil
	}

	// Lost the race: another handler inserted the row between the select
	// and the insert. Its token wins.
	err = s.pool.QueryRow(ctx, `SELECT token FROM users WHERE user_id = $1`, userID).Scan(&token)
	if err != nil {
		return "", false, err
	}
	return token, false, nil
}

func (s *PostgresStore) GetAccount(userID int64) (*types.Account, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var a types.Account
	err := s.pool.QueryRow(ctx, `
SELECT user_id, username, name, token, is_admin, is_superuser, is_premium,
       is_hidden, balance, total_deposited, referral_code, referred_by, created_at
FROM users
WHERE user_id = $1
`, userID).Scan(&a.UserID, &a.Username, &a.Name, &a.Token, &a.IsAdmin, &a.IsSuperuser,
		&a.IsPremium, &a.IsHidden, &a.Balance, &a.TotalDeposited, &a.ReferralCode,
		&a.ReferredBy, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) ResolveByToken(token string) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var userID int64
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM users WHERE token = $1`, strings.TrimSpace(token)).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// UpdateDisplayFields refreshes username and name, skipping the write when
// nothing changed.
func (s *PostgresStore) UpdateDisplayFields(userID int64, username, name string) error {
	ctx, cancel := opCtx()
	defer cancel()

	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	_, err := s.pool.Exec(ctx, `
UPDATE users
SET username = $1, name = $2
WHERE user_id = $3 AND (username <> $1 OR name <> $2)
`, username, name, userID)
	return err
}

// SetHidden is the only capability gate in the account store: it succeeds
// only for premium accounts.
func (s *PostgresStore) SetHidden(userID int64) error {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE users SET is_hidden = TRUE WHERE user_id = $1 AND is_premium
`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return types.ErrNotFound
	}
	return types.ErrNotPremium
}

func (s *PostgresStore) AdminIDs() ([]int64, error) {
	return s.selectIDs(`SELECT user_id FROM users WHERE is_admin`)
}

func (s *PostgresStore) AllIDs() ([]int64, error) {
	return s.selectIDs(`SELECT user_id FROM users ORDER BY user_id`)
}

func (s *PostgresStore) selectIDs(query string) ([]int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) RecentAccounts(limit int) ([]*types.Account, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
SELECT user_id, username, name, token, is_admin, is_superuser, is_premium,
       is_hidden, balance, total_deposited, referral_code, referred_by, created_at
FROM users
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*types.Account
	for rows.Next() {
		var a types.Account
		if err := rows.Scan(&a.UserID, &a.Username, &a.Name, &a.Token, &a.IsAdmin,
			&a.IsSuperuser, &a.IsPremium, &a.IsHidden, &a.Balance, &a.TotalDeposited,
			&a.ReferralCode, &a.ReferredBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) CountAccounts() (int, int, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var total, premium int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE is_premium) FROM users
`).Scan(&total, &premium)
	if err != nil {
		return 0, 0, err
	}
	return total, premium, nil
}
