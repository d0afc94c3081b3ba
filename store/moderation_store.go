package store

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// CheckBan is read-and-reap: the expired row, if any, is deleted as part of
// the same call.
func (s *PostgresStore) CheckBan(userID int64) (bool, *time.Time, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if _, err := s.pool.Exec(ctx, `
DELETE FROM muted_users WHERE user_id = $1 AND muted_until <= NOW()
`, userID); err != nil {
		return false, nil, err
	}

	var until time.Time
	err := s.pool.QueryRow(ctx, `
SELECT muted_until FROM muted_users WHERE user_id = $1
`, userID).Scan(&until)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, &until, nil
}

// Ban replaces any existing ban for the account; durations never stack.
func (s *PostgresStore) Ban(userID int64, d time.Duration, reason string) error {
	ctx, cancel := opCtx()
	defer cancel()

	var reasonArg *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonArg = &r
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO muted_users (user_id, muted_until, reason)
VALUES ($1, NOW() + $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
  muted_until = EXCLUDED.muted_until,
  reason = EXCLUDED.reason,
  created_at = NOW()
`, userID, d, reasonArg)
	return err
}

func (s *PostgresStore) Unban(userID int64) (bool, error) {
	ctx, cancel := opCtx()
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM muted_users WHERE user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) BannedUsers() ([]*types.BannedUser, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT mu.user_id, mu.muted_until, COALESCE(mu.reason, ''), mu.created_at,
       COALESCE(u.name, ''), COALESCE(u.username, '')
FROM muted_users mu
LEFT JOIN users u ON mu.user_id = u.user_id
WHERE mu.muted_until > NOW()
ORDER BY mu.muted_until DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banned []*types.BannedUser
	for rows.Next() {
		var b types.BannedUser
		if err := rows.Scan(&b.UserID, &b.MutedUntil, &b.Reason, &b.CreatedAt, &b.Name, &b.Username); err != nil {
			return nil, err
		}
		banned = append(banned, &b)
	}
	return banned, rows.Err()
}

func (s *PostgresStore) BannedCount() (int, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM muted_users WHERE muted_until > NOW()
`).Scan(&count)
	return count, err
}
