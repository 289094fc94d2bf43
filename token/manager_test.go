package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func newEd25519Manager(t *testing.T, mutate func(*Config)) (*Manager, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cfg := Config{
		TTL:        time.Hour,
		PrivateKey: priv,
		PublicKey:  pub,
		Issuer:     "authflow-test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, pub
}

func TestIssueVerifyEd25519(t *testing.T) {
	m, _ := newEd25519Manager(t, nil)

	tokenString, err := m.Issue("s1", "acct-1", 3)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "s1" {
		t.Fatalf("subject = %q, want s1", claims.Subject)
	}
	if claims.AccountID != "acct-1" || claims.AccountVersion != 3 {
		t.Fatalf("unexpected account claims %+v", claims)
	}
	if claims.Issuer != "authflow-test" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected iat and exp claims")
	}
}

func TestIssueVerifyHS256(t *testing.T) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("read secret: %v", err)
	}
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    secret,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tokenString, err := m.Issue("s1", "acct-1", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "s1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m, _ := newEd25519Manager(t, func(c *Config) { c.TTL = time.Millisecond })

	tokenString, err := m.Issue("s1", "acct-1", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.Verify(tokenString); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyWrongKeyRejected(t *testing.T) {
	issuer, _ := newEd25519Manager(t, nil)
	verifier, _ := newEd25519Manager(t, nil)

	tokenString, err := issuer.Issue("s1", "acct-1", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := verifier.Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyCrossMethodRejected(t *testing.T) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("read secret: %v", err)
	}
	hs, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	tokenString, err := hs.Issue("s1", "acct-1", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ed, _ := newEd25519Manager(t, nil)
	if _, err := ed.Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("an hs256 token must not verify as ed25519, got %v", err)
	}
}

func TestVerifyWrongIssuerRejected(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	issuer, err := NewManager(Config{TTL: time.Hour, PrivateKey: priv, PublicKey: pub, Issuer: "other"})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	verifier, err := NewManager(Config{TTL: time.Hour, PrivateKey: priv, PublicKey: pub, Issuer: "authflow-test"})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tokenString, err := issuer.Issue("s1", "acct-1", 1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := verifier.Verify(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbageRejected(t *testing.T) {
	m, _ := newEd25519Manager(t, nil)
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{PrivateKey: priv, PublicKey: pub}},
		{"negative leeway", Config{TTL: time.Hour, Leeway: -time.Second, PrivateKey: priv, PublicKey: pub}},
		{"excessive leeway", Config{TTL: time.Hour, Leeway: 3 * time.Minute, PrivateKey: priv, PublicKey: pub}},
		{"short ed25519 key", Config{TTL: time.Hour, PrivateKey: priv[:32], PublicKey: pub}},
		{"short ed25519 public key", Config{TTL: time.Hour, PrivateKey: priv, PublicKey: pub[:16]}},
		{"short hs256 secret", Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("short")}},
		{"unknown method", Config{TTL: time.Hour, SigningMethod: "rs512", PrivateKey: priv, PublicKey: pub}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("NewManager must reject the config")
			}
		})
	}

	// Method defaults to ed25519 when unset.
	m, err := NewManager(Config{TTL: time.Hour, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected a manager")
	}
}
