package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisBackend stores one key per browsing session: <prefix>:tok:<sid>.
type RedisBackend struct {
	redis   redis.UniversalClient
	prefix  string
	ttl     time.Duration
	sliding bool
}

// NewRedisBackend returns a backend whose keys expire after ttl. With sliding
// enabled every successful Load pushes the expiry out by ttl again.
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration, sliding bool) *RedisBackend {
	return &RedisBackend{
		redis:   client,
		prefix:  prefix,
		ttl:     ttl,
		sliding: sliding,
	}
}

func (b *RedisBackend) key(sid string) string {
	return b.prefix + ":tok:" + sid
}

func (b *RedisBackend) Load(ctx context.Context, sid string) (string, error) {
	key := b.key(sid)

	token, err := b.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if b.sliding && b.ttl > 0 {
		if err := b.redis.Expire(ctx, key, b.ttl).Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return token, nil
}

func (b *RedisBackend) Save(ctx context.Context, sid, token string) error {
	if err := b.redis.Set(ctx, b.key(sid), token, b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, sid string) error {
	if err := b.redis.Del(ctx, b.key(sid)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL reports the remaining lifetime of the persisted token for sid.
func (b *RedisBackend) TTL(ctx context.Context, sid string) (time.Duration, error) {
	d, err := b.redis.TTL(ctx, b.key(sid)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return d, nil
}

// Ping measures one round trip to Redis.
func (b *RedisBackend) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
