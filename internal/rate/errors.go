package rate

import "errors"

var (
	// ErrRateLimited reports that the attempt budget for a challenge is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports a Redis transport or server failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
