package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roast-backend/internal/model"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "roast:session:"

// RedisStorage stores each session as a JSON string whose key expires
// ttl after the last save.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStorage(redisURL string, ttl time.Duration) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewRedisStorageWithClient(redis.NewClient(opt), ttl), nil
}

func NewRedisStorageWithClient(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (r *RedisStorage) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: failed to ping Redis: %v", ErrStorageInit, err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	session.Messages = session.Messages.Clone()
	return &session, nil
}

func (r *RedisStorage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(cloneSession(session))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+session.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, sessionID string) error {
	n, err := r.client.Del(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PurgeExpired is a no-op: keys carry their own expiry.
func (r *RedisStorage) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	return 0, nil
}
