package store

import "strings"

func (s *PostgresStore) LogMessage(senderID, receiverID int64, text string) error {
	ctx, cancel := opCtx()
	defer cancel()

	_, err := s.pool.Exec(ctx, `
INSERT INTO message_log (sender_id, receiver_id, message)
VALUES ($1, $2, $3)
`, senderID, receiverID, text)
	return err
}

func (s *PostgresStore) ChatMessageCount(user1ID, user2ID int64) (int, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var count int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM message_log
WHERE (sender_id = $1 AND receiver_id = $2)
   OR (sender_id = $2 AND receiver_id = $1)
`, user1ID, user2ID).Scan(&count)
	return count, err
}

func (s *PostgresStore) LogAdminAction(adminID int64, action, details string) error {
	ctx, cancel := opCtx()
	defer cancel()

	var detailsArg *string
	if d := strings.TrimSpace(details); d != "" {
		detailsArg = &d
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO admin_logs (admin_id, action, details)
VALUES ($1, $2, $3)
`, adminID, action, detailsArg)
	return err
}
