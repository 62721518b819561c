package rate

import "errors"

var (
	// ErrRateLimited means the sign-in budget for the email or client IP is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter read and write failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
