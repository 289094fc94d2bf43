package challenge

import (
	"context"
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/internal"
)

// Verifier is the opaque signature-verification collaborator.
type Verifier interface {
	Verify(publicKey, message, signature []byte) bool
}

// Ed25519Verifier verifies Ed25519 signatures over raw message bytes.
type Ed25519Verifier struct{}

// Verify implements [Verifier].
func (Ed25519Verifier) Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// SignatureParams is the challengeParameters shape for DigitalSignature defs.
type SignatureParams struct {
	// KeyField is the account field holding the base64 public key. Empty
	// means "publicKey".
	KeyField string `json:"keyField,omitempty"`
}

type selectKeyExpected struct {
	PublicKey string `json:"publicKey"`
}

type selectKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type signNonceRequest struct {
	Nonce string `json:"nonce"`
}

type signNonceExpected struct {
	Nonce     string `json:"nonce"`
	PublicKey string `json:"publicKey"`
}

type signNonceResponse struct {
	Signature string `json:"signature"`
}

// SignatureHandler drives the two-message DigitalSignature challenge:
// SelectKey pins the client to the account's registered public key, SignNonce
// makes it prove possession of the private half by signing a fresh nonce.
type SignatureHandler struct {
	verify Verifier
}

// NewSignatureHandler builds a [SignatureHandler]. A nil verifier defaults to
// [Ed25519Verifier].
func NewSignatureHandler(verify Verifier) *SignatureHandler {
	if verify == nil {
		verify = Ed25519Verifier{}
	}
	return &SignatureHandler{verify: verify}
}

// Type implements [Handler].
func (h *SignatureHandler) Type() Type {
	return TypeDigitalSignature
}

// DraftNextMessage implements [Handler].
func (h *SignatureHandler) DraftNextMessage(ctx context.Context, env Env, processed []Message) (*Draft, error) {
	switch len(processed) {
	case 0:
		return h.draftSelectKey(ctx, env)
	case 1:
		return h.draftSignNonce(processed)
	default:
		return nil, nil
	}
}

func (h *SignatureHandler) draftSelectKey(ctx context.Context, env Env) (*Draft, error) {
	keyField, err := h.keyField(env)
	if err != nil {
		return nil, err
	}
	publicKey, err := env.field(ctx, keyField)
	if err != nil {
		return nil, fmt.Errorf("load public key field %q: %w", keyField, err)
	}

	expRaw, err := marshalPayload(selectKeyExpected{PublicKey: publicKey})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgSelectKey, Request: json.RawMessage(`{}`), Expected: expRaw}, nil
}

func (h *SignatureHandler) draftSignNonce(processed []Message) (*Draft, error) {
	selected, ok := processedByName(processed, internal.MsgSelectKey)
	if !ok {
		return nil, fmt.Errorf("message %s not processed before %s", internal.MsgSelectKey, internal.MsgSignNonce)
	}
	var key selectKeyExpected
	if err := json.Unmarshal(selected.Expected, &key); err != nil {
		return nil, fmt.Errorf("decode expected payload: %w", err)
	}

	nonce, err := internal.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	reqRaw, err := marshalPayload(signNonceRequest{Nonce: nonce})
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(signNonceExpected{Nonce: nonce, PublicKey: key.PublicKey})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgSignNonce, Request: reqRaw, Expected: expRaw}, nil
}

// ValidateResponse implements [Handler].
func (h *SignatureHandler) ValidateResponse(ctx context.Context, env Env, processed []Message, pending Message, response json.RawMessage) (Status, error) {
	switch pending.Name {
	case internal.MsgSelectKey:
		return h.validateSelectKey(pending, response)
	case internal.MsgSignNonce:
		return h.validateSignNonce(pending, response)
	default:
		return Status{}, fmt.Errorf("message %q is not appropriate for the challenge", pending.Name)
	}
}

func (h *SignatureHandler) validateSelectKey(pending Message, response json.RawMessage) (Status, error) {
	var exp selectKeyExpected
	if err := json.Unmarshal(pending.Expected, &exp); err != nil {
		return Status{}, fmt.Errorf("decode expected payload: %w", err)
	}
	var resp selectKeyResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonPublicKeyMismatch), nil
	}

	if len(resp.PublicKey) != len(exp.PublicKey) ||
		subtle.ConstantTimeCompare([]byte(resp.PublicKey), []byte(exp.PublicKey)) != 1 {
		return StatusError(ReasonPublicKeyMismatch), nil
	}
	return StatusOk, nil
}

func (h *SignatureHandler) validateSignNonce(pending Message, response json.RawMessage) (Status, error) {
	var exp signNonceExpected
	if err := json.Unmarshal(pending.Expected, &exp); err != nil {
		return Status{}, fmt.Errorf("decode expected payload: %w", err)
	}
	var resp signNonceResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidSignature), nil
	}

	publicKey, err := base64.StdEncoding.DecodeString(exp.PublicKey)
	if err != nil {
		return Status{}, fmt.Errorf("decode stored public key: %w", err)
	}
	signature, err := base64.StdEncoding.DecodeString(resp.Signature)
	if err != nil {
		return StatusError(ReasonInvalidSignature), nil
	}

	if !h.verify.Verify(publicKey, []byte(exp.Nonce), signature) {
		return StatusError(ReasonInvalidSignature), nil
	}
	return StatusOk, nil
}

func (h *SignatureHandler) keyField(env Env) (string, error) {
	var params SignatureParams
	if len(env.Params) > 0 {
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return "", fmt.Errorf("decode signature challenge parameters: %w", err)
		}
	}
	if params.KeyField == "" {
		return "publicKey", nil
	}
	return params.KeyField, nil
}
