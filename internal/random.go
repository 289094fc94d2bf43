package internal

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
)

const (
	nonceSize     = 32
	otpSecretSize = 20
)

// NewNonce returns a fresh random nonce encoded as compact base64url.
// Used by signature challenges as the value the client must sign.
func NewNonce() (string, error) {
	var raw [nonceSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewOTPSecret returns a fresh random HOTP secret in base32, the alphabet
// expected by RFC 4226 implementations.
func NewOTPSecret() (string, error) {
	var raw [otpSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:]), nil
}
