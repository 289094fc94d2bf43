package challenge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/internal"
)

// Comparer is the opaque password-compare collaborator: it reports whether
// plaintext matches the stored hash (salt travels inside the hash encoding).
type Comparer interface {
	Compare(hash, plaintext string) (bool, error)
}

// PasswordParams is the challengeParameters shape for Password defs.
type PasswordParams struct {
	// Fields lists the password field ids the client must prove. Empty means
	// the single field "password".
	Fields []string `json:"fields,omitempty"`
}

type passwordFieldRequest struct {
	ID string `json:"id"`
}

type passwordFieldExpected struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

type passwordFieldResponse struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Fields []passwordFieldRequest `json:"fields"`
}

type passwordExpected struct {
	Fields []passwordFieldExpected `json:"fields"`
}

type passwordResponse struct {
	Fields []passwordFieldResponse `json:"fields"`
}

// PasswordHandler drives the single-message Password challenge: the client
// submits plaintext for each requested field and every one must match its
// stored hash.
type PasswordHandler struct {
	compare Comparer
}

// NewPasswordHandler builds a [PasswordHandler] over the given comparer.
func NewPasswordHandler(compare Comparer) *PasswordHandler {
	return &PasswordHandler{compare: compare}
}

// Type implements [Handler].
func (h *PasswordHandler) Type() Type {
	return TypePassword
}

// DraftNextMessage implements [Handler].
func (h *PasswordHandler) DraftNextMessage(ctx context.Context, env Env, processed []Message) (*Draft, error) {
	if len(processed) > 0 {
		return nil, nil
	}

	fields, err := h.fieldIDs(env)
	if err != nil {
		return nil, err
	}

	req := passwordRequest{}
	exp := passwordExpected{}
	for _, id := range fields {
		hash, err := env.field(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load password field %q: %w", id, err)
		}
		req.Fields = append(req.Fields, passwordFieldRequest{ID: id})
		exp.Fields = append(exp.Fields, passwordFieldExpected{ID: id, Hash: hash})
	}

	reqRaw, err := marshalPayload(req)
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(exp)
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgGetPasswordFields, Request: reqRaw, Expected: expRaw}, nil
}

// ValidateResponse implements [Handler]. Any missing or mismatching field
// resolves the message with ReasonInvalidPassword.
func (h *PasswordHandler) ValidateResponse(ctx context.Context, env Env, processed []Message, pending Message, response json.RawMessage) (Status, error) {
	var exp passwordExpected
	if err := json.Unmarshal(pending.Expected, &exp); err != nil {
		return Status{}, fmt.Errorf("decode expected payload: %w", err)
	}

	var resp passwordResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidPassword), nil
	}

	submitted := make(map[string]string, len(resp.Fields))
	for _, f := range resp.Fields {
		submitted[f.ID] = f.Password
	}

	for _, want := range exp.Fields {
		plaintext, ok := submitted[want.ID]
		if !ok {
			return StatusError(ReasonInvalidPassword), nil
		}
		match, err := h.compare.Compare(want.Hash, plaintext)
		if err != nil {
			return Status{}, fmt.Errorf("compare password field %q: %w", want.ID, err)
		}
		if !match {
			return StatusError(ReasonInvalidPassword), nil
		}
	}
	return StatusOk, nil
}

func (h *PasswordHandler) fieldIDs(env Env) ([]string, error) {
	var params PasswordParams
	if len(env.Params) > 0 {
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return nil, fmt.Errorf("decode password challenge parameters: %w", err)
		}
	}
	if len(params.Fields) == 0 {
		return []string{"password"}, nil
	}
	return params.Fields, nil
}
