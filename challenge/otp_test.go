package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// captureSender records the delivered code instead of sending it anywhere.
type captureSender struct {
	accountID string
	code      string
	err       error
}

func (s *captureSender) SendOtp(_ context.Context, accountID, code string) error {
	if s.err != nil {
		return s.err
	}
	s.accountID = accountID
	s.code = code
	return nil
}

func draftOtp(t *testing.T, h *OTPHandler, env Env) *Draft {
	t.Helper()
	draft, err := h.DraftNextMessage(context.Background(), env, nil)
	if err != nil {
		t.Fatalf("DraftNextMessage failed: %v", err)
	}
	if draft == nil || draft.Name != "GetOtp" {
		t.Fatalf("unexpected draft %+v", draft)
	}
	return draft
}

func TestOtpDraftDeliversOffChannel(t *testing.T) {
	sender := &captureSender{}
	h := NewOTPHandler(sender)
	env := testEnv(nil, "")

	draft := draftOtp(t, h, env)

	if sender.accountID != "acct" {
		t.Fatalf("delivered to %q, want acct", sender.accountID)
	}
	if len(sender.code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", sender.code)
	}
	// The code travels off channel only, never in the request payload.
	if strings.Contains(string(draft.Request), sender.code) {
		t.Fatal("request payload must not carry the code")
	}

	var exp otpExpected
	if err := json.Unmarshal(draft.Expected, &exp); err != nil {
		t.Fatalf("decode expected: %v", err)
	}
	if exp.Code != sender.code {
		t.Fatal("expected payload must pin the delivered code")
	}
}

func TestOtpEightDigitParam(t *testing.T) {
	sender := &captureSender{}
	h := NewOTPHandler(sender)
	env := testEnv(nil, `{"digits":8}`)

	draft := draftOtp(t, h, env)

	if len(sender.code) != 8 {
		t.Fatalf("expected an 8-digit code, got %q", sender.code)
	}
	var req otpRequest
	if err := json.Unmarshal(draft.Request, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Digits != 8 {
		t.Fatalf("request advertises %d digits, want 8", req.Digits)
	}
}

func TestOtpUnsupportedDigitsRejected(t *testing.T) {
	h := NewOTPHandler(&captureSender{})
	env := testEnv(nil, `{"digits":4}`)

	_, err := h.DraftNextMessage(context.Background(), env, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported otp digits 4") {
		t.Fatalf("expected digits error, got %v", err)
	}
}

func TestOtpDeliveryFailureSurfaced(t *testing.T) {
	sendErr := errors.New("sms gateway down")
	h := NewOTPHandler(&captureSender{err: sendErr})
	env := testEnv(nil, "")

	_, err := h.DraftNextMessage(context.Background(), env, nil)
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected delivery error surfaced, got %v", err)
	}
}

func TestOtpValidateVerdicts(t *testing.T) {
	sender := &captureSender{}
	h := NewOTPHandler(sender)
	env := testEnv(nil, "")
	draft := draftOtp(t, h, env)
	pending := Message{Name: draft.Name, Request: draft.Request, Expected: draft.Expected}

	status, err := h.ValidateResponse(context.Background(), env, nil, pending,
		[]byte(fmt.Sprintf(`{"otp":%q}`, sender.code)))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if status != StatusOk {
		t.Fatalf("right code: expected Ok, got %v", status)
	}

	for _, response := range []string{`{"otp":"000000"}`, `{"otp":""}`, `garbage`} {
		status, err := h.ValidateResponse(context.Background(), env, nil, pending, []byte(response))
		if err != nil {
			t.Fatalf("validate %q: %v", response, err)
		}
		if status != StatusError(ReasonInvalidOtp) {
			t.Fatalf("response %q: expected InvalidOtp, got %v", response, status)
		}
	}
}

func TestOtpCodesAreFresh(t *testing.T) {
	sender := &captureSender{}
	h := NewOTPHandler(sender)
	env := testEnv(nil, "")

	draftOtp(t, h, env)
	first := sender.code
	draftOtp(t, h, env)
	if first == sender.code {
		t.Fatal("two drafts produced the same code")
	}
}

func TestOtpSequenceCompleteAfterOneMessage(t *testing.T) {
	h := NewOTPHandler(&captureSender{})
	env := testEnv(nil, "")

	draft, err := h.DraftNextMessage(context.Background(), env, []Message{{Name: "GetOtp", Status: StatusOk}})
	if err != nil || draft != nil {
		t.Fatalf("sequence is one message, got draft=%+v err=%v", draft, err)
	}
}
