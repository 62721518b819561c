// Package rate throttles failed sign-in attempts with fixed-window Redis
// counters, one per email and one per client IP.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds sign-in throttle tuning.
type Config struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
	ThrottleIP  bool          `yaml:"throttle_ip"`
	Prefix      string        `yaml:"prefix"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		MaxAttempts: 10,
		Window:      15 * time.Minute,
		ThrottleIP:  true,
		Prefix:      "ga",
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxAttempts <= 0 {
		return errors.New("throttle max_attempts must be > 0")
	}
	if c.Window <= 0 {
		return errors.New("throttle window must be > 0")
	}
	if c.Prefix == "" {
		return errors.New("throttle prefix must not be empty")
	}
	return nil
}

// Limiter counts failed sign-ins. A nil *Limiter allows everything.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns nil when cfg is disabled.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if !cfg.Enabled || redisClient == nil {
		return nil
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when the email or IP has used up its
// failure budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		if err := l.checkCounter(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// RecordFailure counts one rejected sign-in. It returns ErrRateLimited once
// the attempt pushed a counter past the budget.
func (l *Limiter) RecordFailure(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	limited := false
	for _, key := range l.keys(email, ip) {
		count, err := l.incrementWithTTL(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counters after a successful sign-in.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failure count for email in the current window.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.ThrottleIP && ip != "" {
		keys = append(keys, l.config.Prefix+":rl:login:ip:"+ip)
	}
	return keys
}

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":rl:login:u:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the expiry.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
