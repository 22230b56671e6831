package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:v1:"

// RedisRepository keeps each client's session in one hash. Writes go through
// MULTI/EXEC so the three fields always land together.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository builds a Redis-backed repository. A positive ttl expires
// the hash after that long, matching the session max age.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func redisKey(clientID string) string {
	return redisKeyPrefix + clientID
}

// Load reads the three fields in a single HMGET.
func (r *RedisRepository) Load(ctx context.Context, clientID string) (Fields, error) {
	vals, err := r.client.HMGet(ctx, redisKey(clientID), KeyVerified, KeyPhone, KeyAuthTime).Result()
	if err != nil {
		return Fields{}, fmt.Errorf("load session: %w", err)
	}
	f := Fields{
		Verified: stringOrEmpty(vals, 0),
		Phone:    stringOrEmpty(vals, 1),
		AuthTime: stringOrEmpty(vals, 2),
	}
	if f.Empty() {
		return Fields{}, ErrNotFound
	}
	return f, nil
}

// Save replaces the hash atomically.
func (r *RedisRepository) Save(ctx context.Context, clientID string, fields Fields) error {
	if !fields.Complete() {
		return ErrIncomplete
	}
	key := redisKey(clientID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			KeyVerified, fields.Verified,
			KeyPhone, fields.Phone,
			KeyAuthTime, fields.AuthTime,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear deletes the hash.
func (r *RedisRepository) Clear(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, redisKey(clientID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func stringOrEmpty(vals []interface{}, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}
