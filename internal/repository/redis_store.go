package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sheet-qa/internal/session"
)

const redisKeyPrefix = "sheetqa:session:"

// redisAPI is the subset of *redis.Client used by RedisStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps each session as a JSON snapshot under its own key.
type RedisStore struct {
	rdb redisAPI
	ttl time.Duration
}

func NewRedisStore(rdb redisAPI, ttl time.Duration) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

// NewRedisClient connects using a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*session.State, bool, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("repository: redis get: %w", err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("repository: decode snapshot: %w", err)
	}
	state, err := session.Restore(snap)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (r *RedisStore) Save(ctx context.Context, s *session.State) error {
	if s == nil || s.ID == "" {
		return errors.New("repository: Save: session ID is required")
	}
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("repository: encode snapshot: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("repository: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("repository: redis del: %w", err)
	}
	return nil
}
