package goAuthFlow

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name: "token enabled without ttl",
			mutate: func(c *Config) {
				c.Token.PrivateKey = []byte("key material")
				c.Token.TTL = 0
			},
			wantMsg: "Token TTL",
		},
		{
			name: "rate limit without attempts",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.MaxAttempts = 0
			},
			wantMsg: "MaxAttempts",
		},
		{
			name: "rate limit without cooldown",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Cooldown = 0
			},
			wantMsg: "Cooldown",
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantMsg: "BufferSize",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantMsg, err)
			}
		})
	}
}

func TestTokenConfigEnabledByKeyMaterial(t *testing.T) {
	var cfg TokenConfig
	if cfg.Enabled() {
		t.Fatal("no key material must mean disabled")
	}
	cfg.PrivateKey = []byte("secret")
	if !cfg.Enabled() {
		t.Fatal("key material must mean enabled")
	}
}

func TestCloneConfigDetachesKeyMaterial(t *testing.T) {
	original := defaultConfig()
	original.Token.TTL = time.Hour
	original.Token.PrivateKey = []byte("private")
	original.Token.PublicKey = []byte("public")

	clone := cloneConfig(original)
	original.Token.PrivateKey[0] = 'X'
	original.Token.PublicKey[0] = 'X'

	if clone.Token.PrivateKey[0] != 'p' || clone.Token.PublicKey[0] != 'p' {
		t.Fatal("clone must not share key slices with the original")
	}
	if clone.Token.TTL != time.Hour {
		t.Fatal("clone must carry scalar fields")
	}
}
