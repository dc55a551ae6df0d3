package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authd:session:"

// RedisStore keeps each session under its own key with a native TTL, so
// Redis expires rows on its own and DeleteExpired has nothing to do.
type RedisStore struct {
	rdb redis.Cmdable
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

var _ Store = (*RedisStore)(nil)

type redisRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Create(ctx context.Context, row Row) error {
	ttl := row.ExpiresAt.Sub(row.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("session.Create: expiry not after creation")
	}

	payload, err := json.Marshal(redisRecord{UserID: row.UserID, CreatedAt: row.CreatedAt, ExpiresAt: row.ExpiresAt})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(row.TokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("session.Create: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, tokenHash string) (Row, error) {
	data, err := s.rdb.Get(ctx, redisKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Row{}, ErrSessionNotFound
		}
		return Row{}, fmt.Errorf("session.Get: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Row{}, fmt.Errorf("session.Get: decode: %w", err)
	}
	return Row{
		TokenHash: tokenHash,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt.UTC(),
		ExpiresAt: rec.ExpiresAt.UTC(),
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := s.rdb.Del(ctx, redisKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("session.Delete: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func redisKey(tokenHash string) string { return redisKeyPrefix + tokenHash }
