package challenge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/internal"
)

// Exchanger is the opaque SRP collaborator. The state blob it returns from
// Begin is persisted in the ExchangePublicKeys expected payload, so later
// messages can resume the exchange after a process restart.
type Exchanger interface {
	// Begin starts a server-side exchange against the stored verifier and
	// returns the opaque state plus the server public value sent to the
	// client.
	Begin(ctx context.Context, verifier string) (state json.RawMessage, serverPublic string, err error)
	// VerifyClientProof checks the client's proof against the exchange state
	// and the client public value.
	VerifyClientProof(ctx context.Context, state json.RawMessage, clientPublic, clientProof string) (bool, error)
	// ServerProof derives the server's proof for a client-verified exchange.
	ServerProof(ctx context.Context, state json.RawMessage, clientPublic, clientProof string) (string, error)
}

// SRPParams is the challengeParameters shape for SecureRemotePassword defs.
type SRPParams struct {
	// VerifierField is the account field holding the SRP verifier. Empty
	// means "srpVerifier".
	VerifierField string `json:"verifierField,omitempty"`
	// SaltField is the account field holding the SRP salt. Empty means
	// "srpSalt".
	SaltField string `json:"saltField,omitempty"`
}

type srpSelectRequest struct {
	FieldID string `json:"fieldId"`
}

type srpSelectExpected struct {
	FieldID string `json:"fieldId"`
}

type srpSelectResponse struct {
	FieldID string `json:"fieldId"`
}

type srpExchangeRequest struct {
	Salt            string `json:"salt"`
	ServerPublicKey string `json:"serverPublicKey"`
}

type srpExchangeExpected struct {
	State json.RawMessage `json:"state"`
}

type srpExchangeResponse struct {
	ClientPublicKey string `json:"clientPublicKey"`
}

type srpProofResponse struct {
	ClientProof string `json:"clientProof"`
}

type srpServerProofRequest struct {
	ServerProof string `json:"serverProof"`
}

type srpServerProofResponse struct {
	Verified bool `json:"verified"`
}

// SRPHandler drives the four-message SecureRemotePassword challenge:
// SelectSecurePassword pins the credential field, ExchangePublicKeys trades
// ephemeral publics, ComputeClientProof checks the client's proof, and
// VerifyServerProof hands the server's proof back for acknowledgement.
type SRPHandler struct {
	exchange Exchanger
}

// NewSRPHandler builds an [SRPHandler] over the given exchanger.
func NewSRPHandler(exchange Exchanger) *SRPHandler {
	return &SRPHandler{exchange: exchange}
}

// Type implements [Handler].
func (h *SRPHandler) Type() Type {
	return TypeSecureRemotePassword
}

// DraftNextMessage implements [Handler].
func (h *SRPHandler) DraftNextMessage(ctx context.Context, env Env, processed []Message) (*Draft, error) {
	switch len(processed) {
	case 0:
		return h.draftSelect(env)
	case 1:
		return h.draftExchange(ctx, env)
	case 2:
		return &Draft{
			Name:     internal.MsgComputeClientProof,
			Request:  json.RawMessage(`{}`),
			Expected: json.RawMessage(`{}`),
		}, nil
	case 3:
		return h.draftServerProof(ctx, processed)
	default:
		return nil, nil
	}
}

func (h *SRPHandler) draftSelect(env Env) (*Draft, error) {
	params, err := h.params(env)
	if err != nil {
		return nil, err
	}

	reqRaw, err := marshalPayload(srpSelectRequest{FieldID: params.VerifierField})
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(srpSelectExpected{FieldID: params.VerifierField})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgSelectSecurePassword, Request: reqRaw, Expected: expRaw}, nil
}

func (h *SRPHandler) draftExchange(ctx context.Context, env Env) (*Draft, error) {
	params, err := h.params(env)
	if err != nil {
		return nil, err
	}
	verifier, err := env.field(ctx, params.VerifierField)
	if err != nil {
		return nil, fmt.Errorf("load verifier field %q: %w", params.VerifierField, err)
	}
	salt, err := env.field(ctx, params.SaltField)
	if err != nil {
		return nil, fmt.Errorf("load salt field %q: %w", params.SaltField, err)
	}

	state, serverPublic, err := h.exchange.Begin(ctx, verifier)
	if err != nil {
		return nil, fmt.Errorf("begin exchange: %w", err)
	}

	reqRaw, err := marshalPayload(srpExchangeRequest{Salt: salt, ServerPublicKey: serverPublic})
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(srpExchangeExpected{State: state})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgExchangePublicKeys, Request: reqRaw, Expected: expRaw}, nil
}

func (h *SRPHandler) draftServerProof(ctx context.Context, processed []Message) (*Draft, error) {
	state, clientPublic, err := exchangeArtifacts(processed)
	if err != nil {
		return nil, err
	}
	proofMsg, ok := processedByName(processed, internal.MsgComputeClientProof)
	if !ok {
		return nil, fmt.Errorf("message %s not processed before %s",
			internal.MsgComputeClientProof, internal.MsgVerifyServerProof)
	}
	var proof srpProofResponse
	if err := json.Unmarshal(proofMsg.Response, &proof); err != nil {
		return nil, fmt.Errorf("decode client proof: %w", err)
	}

	serverProof, err := h.exchange.ServerProof(ctx, state, clientPublic, proof.ClientProof)
	if err != nil {
		return nil, fmt.Errorf("derive server proof: %w", err)
	}

	reqRaw, err := marshalPayload(srpServerProofRequest{ServerProof: serverProof})
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(srpServerProofRequest{ServerProof: serverProof})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgVerifyServerProof, Request: reqRaw, Expected: expRaw}, nil
}

// ValidateResponse implements [Handler].
func (h *SRPHandler) ValidateResponse(ctx context.Context, env Env, processed []Message, pending Message, response json.RawMessage) (Status, error) {
	switch pending.Name {
	case internal.MsgSelectSecurePassword:
		return h.validateSelect(pending, response)
	case internal.MsgExchangePublicKeys:
		return h.validateExchange(response)
	case internal.MsgComputeClientProof:
		return h.validateClientProof(ctx, processed, response)
	case internal.MsgVerifyServerProof:
		return h.validateServerProof(response)
	default:
		return Status{}, fmt.Errorf("message %q is not appropriate for the challenge", pending.Name)
	}
}

func (h *SRPHandler) validateSelect(pending Message, response json.RawMessage) (Status, error) {
	var exp srpSelectExpected
	if err := json.Unmarshal(pending.Expected, &exp); err != nil {
		return Status{}, fmt.Errorf("decode expected payload: %w", err)
	}
	var resp srpSelectResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonUnknownField), nil
	}
	if resp.FieldID != exp.FieldID {
		return StatusError(ReasonUnknownField), nil
	}
	return StatusOk, nil
}

func (h *SRPHandler) validateExchange(response json.RawMessage) (Status, error) {
	var resp srpExchangeResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidPublicKey), nil
	}
	if resp.ClientPublicKey == "" {
		return StatusError(ReasonInvalidPublicKey), nil
	}
	return StatusOk, nil
}

func (h *SRPHandler) validateClientProof(ctx context.Context, processed []Message, response json.RawMessage) (Status, error) {
	state, clientPublic, err := exchangeArtifacts(processed)
	if err != nil {
		return Status{}, err
	}
	var resp srpProofResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidProof), nil
	}

	ok, err := h.exchange.VerifyClientProof(ctx, state, clientPublic, resp.ClientProof)
	if err != nil {
		return Status{}, fmt.Errorf("verify client proof: %w", err)
	}
	if !ok {
		return StatusError(ReasonInvalidProof), nil
	}
	return StatusOk, nil
}

func (h *SRPHandler) validateServerProof(response json.RawMessage) (Status, error) {
	var resp srpServerProofResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidProof), nil
	}
	if !resp.Verified {
		return StatusError(ReasonInvalidProof), nil
	}
	return StatusOk, nil
}

// exchangeArtifacts pulls the persisted exchange state and client public
// value out of the processed ExchangePublicKeys message.
func exchangeArtifacts(processed []Message) (json.RawMessage, string, error) {
	exchange, ok := processedByName(processed, internal.MsgExchangePublicKeys)
	if !ok {
		return nil, "", fmt.Errorf("message %s not processed yet", internal.MsgExchangePublicKeys)
	}
	var exp srpExchangeExpected
	if err := json.Unmarshal(exchange.Expected, &exp); err != nil {
		return nil, "", fmt.Errorf("decode exchange state: %w", err)
	}
	var resp srpExchangeResponse
	if err := json.Unmarshal(exchange.Response, &resp); err != nil {
		return nil, "", fmt.Errorf("decode exchange response: %w", err)
	}
	return exp.State, resp.ClientPublicKey, nil
}

func (h *SRPHandler) params(env Env) (SRPParams, error) {
	var params SRPParams
	if len(env.Params) > 0 {
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return params, fmt.Errorf("decode srp challenge parameters: %w", err)
		}
	}
	if params.VerifierField == "" {
		params.VerifierField = "srpVerifier"
	}
	if params.SaltField == "" {
		params.SaltField = "srpSalt"
	}
	return params, nil
}
