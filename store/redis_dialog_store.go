package store

import (
	"strconv"
	"time"

	"github.com/ozodbek-dev/anonchat-bot/types"
)

// RedisDialogStore keeps each user's conversation position (question flow,
// live chat, admin ban/broadcast flows) between updates. State is advisory
// UI memory with a TTL; the Postgres store stays the source of truth for
// everything with invariants.
type RedisDialogStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisDialogStore(redisClient *RedisClient, ttlHours int) *RedisDialogStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisDialogStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisDialogStore) stateKey(userID int64) string {
	return s.client.generateKey("dialog_state", strconv.FormatInt(userID, 10))
}

func (s *RedisDialogStore) State(userID int64) (*types.DialogState, error) {
	var state types.DialogState
	found, err := s.client.Get(s.stateKey(userID), &state)
	if err != nil {
		return nil, err
	}
	if !found || state.Name == "" {
		return nil, nil
	}
	return &state, nil
}

func (s *RedisDialogStore) SetState(userID int64, state *types.DialogState) error {
	if state == nil || state.Name == "" {
		return s.client.Del(s.stateKey(userID))
	}
	return s.client.Set(s.stateKey(userID), state, s.ttl)
}

func (s *RedisDialogStore) ClearState(userID int64) error {
	return s.client.Del(s.stateKey(userID))
}

var _ types.DialogStore = (*RedisDialogStore)(nil)
