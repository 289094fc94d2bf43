package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Curve25519 (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrInvalidToken reports a token that failed parsing or verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired reports a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Config holds token issuance parameters.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the ed25519 private key (MethodEd25519) or the HMAC
	// secret (MethodHS256).
	PrivateKey []byte
	// PublicKey is the ed25519 public key; unused for MethodHS256.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

// SessionClaims is the claim set of a finish proof. Subject carries the
// session id.
type SessionClaims struct {
	AccountID      string `json:"aid"`
	AccountVersion uint32 `json:"av"`
	jwt.RegisteredClaims
}

// Manager issues and verifies finish proofs. Safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodEd25519
	}

	switch cfg.SigningMethod {
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("ed25519 private key must be 64 bytes")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 public key must be 32 bytes")
		}
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 secret must be at least 32 bytes")
		}
	default:
		return nil, fmt.Errorf("unsupported signing method %q", cfg.SigningMethod)
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a finish proof for the given session.
func (m *Manager) Issue(sessionID, accountID string, accountVersion uint32) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		AccountID:      accountID,
		AccountVersion: accountVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.PrivateKey)
	default:
		key := ed25519.PrivateKey(m.config.PrivateKey)
		return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	}
}

// Verify parses and verifies a finish proof.
func (m *Manager) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	options := []jwt.ParserOption{
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, m.verifyKey, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) verifyKey(t *jwt.Token) (any, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.config.PrivateKey, nil
	default:
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ed25519.PublicKey(m.config.PublicKey), nil
	}
}
