package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// plainComparer treats the stored "hash" as plaintext. Good enough for
// exercising the handler without argon2 cost.
type plainComparer struct {
	err error
}

func (c plainComparer) Compare(hash, plaintext string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return hash == plaintext, nil
}

func draftPassword(t *testing.T, h *PasswordHandler, env Env) *Draft {
	t.Helper()
	draft, err := h.DraftNextMessage(context.Background(), env, nil)
	if err != nil {
		t.Fatalf("DraftNextMessage failed: %v", err)
	}
	if draft == nil || draft.Name != "GetPasswordFields" {
		t.Fatalf("unexpected draft %+v", draft)
	}
	return draft
}

func passwordDraftAsPending(draft *Draft) Message {
	return Message{Name: draft.Name, Request: draft.Request, Expected: draft.Expected}
}

func TestPasswordDraftDefaultsToSingleField(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(map[string]string{"acct/password": "hunter2"}, "")

	draft := draftPassword(t, h, env)

	var req passwordRequest
	if err := json.Unmarshal(draft.Request, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if len(req.Fields) != 1 || req.Fields[0].ID != "password" {
		t.Fatalf("unexpected request fields %+v", req.Fields)
	}

	var exp passwordExpected
	if err := json.Unmarshal(draft.Expected, &exp); err != nil {
		t.Fatalf("decode expected: %v", err)
	}
	if len(exp.Fields) != 1 || exp.Fields[0].Hash != "hunter2" {
		t.Fatalf("unexpected expected fields %+v", exp.Fields)
	}

	// The hash stays server-side.
	if strings.Contains(string(draft.Request), "hunter2") {
		t.Fatal("request payload must not carry the stored hash")
	}
}

func TestPasswordDraftHonorsConfiguredFields(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(map[string]string{
		"acct/password": "hunter2",
		"acct/pin":      "0420",
	}, `{"fields":["password","pin"]}`)

	draft := draftPassword(t, h, env)

	var req passwordRequest
	if err := json.Unmarshal(draft.Request, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if len(req.Fields) != 2 || req.Fields[0].ID != "password" || req.Fields[1].ID != "pin" {
		t.Fatalf("unexpected request fields %+v", req.Fields)
	}
}

func TestPasswordDraftFailsOnMissingField(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(nil, `{"fields":["passphrase"]}`)

	_, err := h.DraftNextMessage(context.Background(), env, nil)
	if err == nil || !strings.Contains(err.Error(), `load password field "passphrase"`) {
		t.Fatalf("expected field-load error, got %v", err)
	}
}

func TestPasswordDraftStopsAfterFirstMessage(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(map[string]string{"acct/password": "hunter2"}, "")

	draft, err := h.DraftNextMessage(context.Background(), env, []Message{{Name: "GetPasswordFields", Status: StatusOk}})
	if err != nil || draft != nil {
		t.Fatalf("sequence is one message, got draft=%+v err=%v", draft, err)
	}
}

func TestPasswordValidateVerdicts(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(map[string]string{
		"acct/password": "hunter2",
		"acct/pin":      "0420",
	}, `{"fields":["password","pin"]}`)
	pending := passwordDraftAsPending(draftPassword(t, h, env))

	tests := []struct {
		name     string
		response string
		want     Status
	}{
		{
			name:     "all fields match",
			response: `{"fields":[{"id":"password","password":"hunter2"},{"id":"pin","password":"0420"}]}`,
			want:     StatusOk,
		},
		{
			name:     "one field wrong",
			response: `{"fields":[{"id":"password","password":"hunter2"},{"id":"pin","password":"9999"}]}`,
			want:     StatusError(ReasonInvalidPassword),
		},
		{
			name:     "field omitted",
			response: `{"fields":[{"id":"password","password":"hunter2"}]}`,
			want:     StatusError(ReasonInvalidPassword),
		},
		{
			name:     "malformed payload",
			response: `not json`,
			want:     StatusError(ReasonInvalidPassword),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, err := h.ValidateResponse(context.Background(), env, nil, pending, []byte(tc.response))
			if err != nil {
				t.Fatalf("ValidateResponse failed: %v", err)
			}
			if status != tc.want {
				t.Fatalf("status = %v, want %v", status, tc.want)
			}
		})
	}
}

func TestPasswordValidateSurfacesComparerError(t *testing.T) {
	compareErr := errors.New("phc decode failed")
	h := NewPasswordHandler(plainComparer{err: compareErr})
	env := testEnv(map[string]string{"acct/password": "hunter2"}, "")
	pending := passwordDraftAsPending(draftPassword(t, h, env))

	_, err := h.ValidateResponse(context.Background(), env, nil, pending,
		[]byte(`{"fields":[{"id":"password","password":"hunter2"}]}`))
	if !errors.Is(err, compareErr) {
		t.Fatalf("expected comparer error surfaced, got %v", err)
	}
}

func TestPasswordRejectsMalformedParams(t *testing.T) {
	h := NewPasswordHandler(plainComparer{})
	env := testEnv(nil, `{"fields":`)

	_, err := h.DraftNextMessage(context.Background(), env, nil)
	if err == nil || !strings.Contains(err.Error(), "decode password challenge parameters") {
		t.Fatalf("expected params error, got %v", err)
	}
}
