package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ozodbek-dev/anonchat-bot/types"
)

// JoinQueue inserts the waiter inside a transaction. The guarded insert
// rejects callers already queued or already in a session; the membership
// re-check after the insert closes the window where the insert waited out a
// concurrent Match that paired this caller. READ COMMITTED gives the
// re-check a fresh snapshot, so it sees that Match's commit.
func (s *PostgresStore) JoinQueue(userID int64) error {
	ctx, cancel := opCtx()
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
INSERT INTO chat_queue (user_id)
SELECT $1
WHERE NOT EXISTS (
  SELECT 1 FROM chat_session_members WHERE user_id = $1
)
ON CONFLICT (user_id) DO NOTHING
`, userID)
	if err != nil {
		return err
	}

	var inChat bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM chat_session_members WHERE user_id = $1)
`, userID).Scan(&inChat); err != nil {
		return err
	}
	if inChat {
		// Rolling back discards the queue row if this call inserted one.
		return types.ErrAlreadyInChat
	}
	if tag.RowsAffected() == 0 {
		return types.ErrAlreadyInQueue
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) LeaveQueue(userID int64) error {
	ctx, cancel := opCtx()
	defer cancel()

	_, err := s.pool.Exec(ctx, `DELETE FROM chat_queue WHERE user_id = $1`, userID)
	return err
}

// Match pops the caller and one uniform-random other waiter out of the queue
// and creates the session, all in a single transaction. SKIP LOCKED keeps
// two concurrent matchers from grabbing the same waiter; the membership
// primary key makes one-session-per-account a hard invariant, so a waiter
// whose queue row went stale mid-race fails the member insert instead of
// ending up in two sessions.
func (s *PostgresStore) Match(userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var partnerID int64
	err = tx.QueryRow(ctx, `
DELETE FROM chat_queue
WHERE user_id = (
  SELECT user_id FROM chat_queue
  WHERE user_id <> $1
  ORDER BY random()
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
RETURNING user_id
`, userID).Scan(&partnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, types.ErrNoPartner
	}
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM chat_queue WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		// The caller was matched away (or never joined); rolling back
		// returns the partner to the queue untouched.
		return 0, types.ErrNotInQueue
	}

	var sessionID int64
	if err := tx.QueryRow(ctx, `
INSERT INTO chat_sessions (user1_id, user2_id) VALUES ($1, $2) RETURNING id
`, userID, partnerID).Scan(&sessionID); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO chat_session_members (user_id, session_id) VALUES ($1, $3), ($2, $3)
`, userID, partnerID, sessionID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			_ = tx.Rollback(ctx)
			s.reapStaleQueueRows(userID, partnerID)
			return 0, types.ErrAlreadyInChat
		}
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return partnerID, nil
}

// reapStaleQueueRows removes queue entries of accounts that turned out to be
// mid-session, so the failed match is not retried against the same rows.
func (s *PostgresStore) reapStaleQueueRows(userIDs ...int64) {
	ctx, cancel := opCtx()
	defer cancel()

	_, _ = s.pool.Exec(ctx, `
DELETE FROM chat_queue q
WHERE q.user_id = ANY($1)
  AND EXISTS (SELECT 1 FROM chat_session_members m WHERE m.user_id = q.user_id)
`, userIDs)
}

func (s *PostgresStore) Partner(userID int64) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var partnerID int64
	err := s.pool.QueryRow(ctx, `
SELECT CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END
FROM chat_sessions
WHERE user1_id = $1 OR user2_id = $1
`, userID).Scan(&partnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return partnerID, nil
}

// End deletes the caller's session and returns the partner so they can be
// notified. Idempotent: ended=false when no session existed. Member rows go
// with the session via ON DELETE CASCADE.
func (s *PostgresStore) End(userID int64) (bool, int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var partnerID int64
	err := s.pool.QueryRow(ctx, `
DELETE FROM chat_sessions
WHERE user1_id = $1 OR user2_id = $1
RETURNING CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END
`, userID).Scan(&partnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, partnerID, nil
}

func (s *PostgresStore) QueueLen() (int, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_queue`).Scan(&count)
	return count, err
}

func (s *PostgresStore) ActiveSessions() ([]*types.ChatOverview, error) {
	ctx, cancel := opCtx()
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT cs.id, cs.user1_id, cs.user2_id, cs.created_at,
       COALESCE(u1.name, ''), COALESCE(u2.name, '')
FROM chat_sessions cs
LEFT JOIN users u1 ON cs.user1_id = u1.user_id
LEFT JOIN users u2 ON cs.user2_id = u2.user_id
ORDER BY cs.created_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*types.ChatOverview
	for rows.Next() {
		var c types.ChatOverview
		if err := rows.Scan(&c.SessionID, &c.User1ID, &c.User2ID, &c.CreatedAt, &c.User1Name, &c.User2Name); err != nil {
			return nil, err
		}
		chats = append(chats, &c)
	}
	return chats, rows.Err()
}

func (s *PostgresStore) EndSessionByID(sessionID int64) (int64, int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var user1ID, user2ID int64
	err := s.pool.QueryRow(ctx, `
DELETE FROM chat_sessions WHERE id = $1 RETURNING user1_id, user2_id
`, sessionID).Scan(&user1ID, &user2ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, types.ErrNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return user1ID, user2ID, nil
}
