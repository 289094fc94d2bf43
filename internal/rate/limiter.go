package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds attempt limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	Prefix      string
}

// Limiter enforces a per-challenge response-attempt budget using Redis
// counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "afs"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckSubmit checks whether the challenge is within its attempt budget.
// Returns [ErrRateLimited] if not.
func (l *Limiter) CheckSubmit(ctx context.Context, sessionID, challengeID string) error {
	count, err := l.redis.Get(ctx, l.key(sessionID, challengeID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementSubmit records a failed response attempt for the challenge.
func (l *Limiter) IncrementSubmit(ctx context.Context, sessionID, challengeID string) error {
	count, err := l.incrementWithTTL(ctx, l.key(sessionID, challengeID), l.config.Cooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetSubmit clears the attempt counter. Called when a message resolves Ok.
func (l *Limiter) ResetSubmit(ctx context.Context, sessionID, challengeID string) error {
	if err := l.redis.Del(ctx, l.key(sessionID, challengeID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(sessionID, challengeID string) string {
	return l.config.Prefix + ":" + sessionID + ":" + challengeID
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
