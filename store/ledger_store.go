package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

const pgUniqueViolation = "23505"

// Credit applies a relative balance change so concurrent credits compose
// without a lost update. amount may be negative for debits; alsoTotal must
// never accompany a debit.
func (s *PostgresStore) Credit(userID int64, amount float64, alsoTotal bool) error {
	ctx, cancel := opCtx()
	defer cancel()

	var err error
	if alsoTotal {
		_, err = s.pool.Exec(ctx, `
UPDATE users
SET balance = balance + $1, total_deposited = total_deposited + $1
WHERE user_id = $2
`, amount, userID)
	} else {
		_, err = s.pool.Exec(ctx, `
UPDATE users SET balance = balance + $1 WHERE user_id = $2
`, amount, userID)
	}
	return err
}

func (s *PostgresStore) Balance(userID int64) (float64, float64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var balance, totalDeposited float64
	err := s.pool.QueryRow(ctx, `
SELECT balance, total_deposited FROM users WHERE user_id = $1
`, userID).Scan(&balance, &totalDeposited)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, types.ErrNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return balance, totalDeposited, nil
}

// CreatePayment writes a pending payment record. Only the balance method is
// accepted for new rows; the transaction id pre-check gives callbacks a
// friendly duplicate rejection and the unique index closes the race.
func (s *PostgresStore) CreatePayment(userID int64, amount float64, method types.PaymentMethod, transactionID, merchantData *string) (int64, error) {
	if !method.AcceptedForNewPayments() {
		return 0, types.ErrInvalidPaymentMethod
	}

	if transactionID != nil {
		exists, err := s.TransactionIDExists(*transactionID)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, types.ErrDuplicateTransaction
		}
	}

	ctx, cancel := opCtx()
	defer cancel()

	var paymentID int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO payments (user_id, amount, method, status, transaction_id, merchant_data)
VALUES ($1, $2, $3, 'pending', $4, $5)
RETURNING id
`, userID, amount, method, transactionID, merchantData).Scan(&paymentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, types.ErrDuplicateTransaction
		}
		return 0, err
	}
	return paymentID, nil
}

func (s *PostgresStore) TransactionIDExists(transactionID string) (bool, error) {
	if transactionID == "" {
		return false, nil
	}
	ctx, cancel := opCtx()
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = $1)
`, transactionID).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) UpdatePaymentStatus(paymentID int64, status types.PaymentStatus, transactionID *string) error {
	ctx, cancel := opCtx()
	defer cancel()

	var err error
	if transactionID != nil {
		_, err = s.pool.Exec(ctx, `
UPDATE payments SET status = $1, transaction_id = $2 WHERE id = $3
`, status, *transactionID, paymentID)
	} else {
		_, err = s.pool.Exec(ctx, `
UPDATE payments SET status = $1 WHERE id = $2
`, status, paymentID)
	}
	return err
}

func (s *PostgresStore) PaymentHistory(userID int64, limit int) ([]*types.Payment, error) {
	ctx, cancel := opCtx()
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, amount, method, status, transaction_id, merchant_data, created_at
FROM payments
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*types.Payment
	for rows.Next() {
		var p types.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Method, &p.Status,
			&p.TransactionID, &p.MerchantData, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
