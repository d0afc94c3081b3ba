package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// ActivateOrExtend creates or extends the account's subscription window and
// flips is_premium. The row lock on the newest active subscription
// serializes concurrent purchases for the same account, so both extensions
// land instead of one overwriting the other.
func (s *PostgresStore) ActivateOrExtend(userID int64, plan types.Plan) (int64, error) {
	if !plan.Valid() {
		return 0, types.ErrInvalidPlan
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	var current *types.Subscription
	var sub types.Subscription
	err = tx.QueryRow(ctx, `
SELECT id, user_id, plan, start_date, end_date, is_active
FROM subscriptions
WHERE user_id = $1 AND is_active
ORDER BY end_date DESC
LIMIT 1
FOR UPDATE
`, userID).Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.StartDate, &sub.EndDate, &sub.IsActive)
	switch {
	case err == nil:
		current = &sub
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, err
	}

	start, end := types.NextWindow(current, plan, now)

	var subscriptionID int64
	if current != nil {
		// Extend or reset in place, reusing the row id.
		if _, err := tx.Exec(ctx, `
UPDATE subscriptions
SET plan = $1, start_date = $2, end_date = $3
WHERE id = $4
`, plan, start, end, current.ID); err != nil {
			return 0, err
		}
		subscriptionID = current.ID
	} else {
		if err := tx.QueryRow(ctx, `
INSERT INTO subscriptions (user_id, plan, start_date, end_date, is_active)
VALUES ($1, $2, $3, $4, TRUE)
RETURNING id
`, userID, plan, start, end).Scan(&subscriptionID); err != nil {
			return 0, err
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE users SET is_premium = TRUE WHERE user_id = $1
`, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return subscriptionID, nil
}

func (s *PostgresStore) CurrentSubscription(userID int64) (*types.Subscription, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var sub types.Subscription
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, plan, start_date, end_date, is_active, created_at
FROM subscriptions
WHERE user_id = $1 AND is_active
ORDER BY end_date DESC
LIMIT 1
`, userID).Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.StartDate, &sub.EndDate, &sub.IsActive, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
