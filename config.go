package goAuthFlow

import (
	"errors"
	"time"
)

// Config tunes the Engine. Zero values fall back to the defaults applied by
// [Builder.Build]; a Config is treated as immutable after Build.
type Config struct {
	Token     TokenConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls finish-proof issuance. Issuance is enabled by
// providing key material; without it FinishSession returns no token.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// Enabled reports whether key material was provided.
func (c TokenConfig) Enabled() bool {
	return len(c.PrivateKey) > 0
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the per-challenge response-attempt budget.
// Requires a Redis client on the Builder when Enabled.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
	RedisPrefix string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counter set.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
		},
		RateLimit: RateLimitConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
			RedisPrefix: "afs",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	return out
}

// Validate checks cross-field consistency. Called once by [Builder.Build].
func (c Config) Validate() error {
	if c.Token.Enabled() && c.Token.TTL <= 0 {
		return errors.New("Token TTL must be positive when issuance is enabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts <= 0 {
			return errors.New("RateLimit MaxAttempts must be positive")
		}
		if c.RateLimit.Cooldown <= 0 {
			return errors.New("RateLimit Cooldown must be positive")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be positive")
	}
	return nil
}
