package challenge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"github.com/MrEthical07/goAuthFlow/internal"
)

// Sender is the opaque off-channel delivery collaborator (SMS, email,
// push...). The code never appears in the message request payload.
type Sender interface {
	SendOtp(ctx context.Context, accountID, code string) error
}

// OTPParams is the challengeParameters shape for OffChannelOtp defs.
type OTPParams struct {
	// Digits is the code length, 6 or 8. Zero means 6.
	Digits int `json:"digits,omitempty"`
}

type otpRequest struct {
	Delivery string `json:"delivery"`
	Digits   int    `json:"digits"`
}

type otpExpected struct {
	Code string `json:"code"`
}

type otpResponse struct {
	Otp string `json:"otp"`
}

// OTPHandler drives the single-message OffChannelOtp challenge: drafting
// generates a fresh HOTP code from a throwaway secret, hands it to the
// off-channel sender, and validation compares the submitted code in constant
// time.
type OTPHandler struct {
	send Sender
}

// NewOTPHandler builds an [OTPHandler] over the given sender.
func NewOTPHandler(send Sender) *OTPHandler {
	return &OTPHandler{send: send}
}

// Type implements [Handler].
func (h *OTPHandler) Type() Type {
	return TypeOffChannelOtp
}

// DraftNextMessage implements [Handler].
func (h *OTPHandler) DraftNextMessage(ctx context.Context, env Env, processed []Message) (*Draft, error) {
	if len(processed) > 0 {
		return nil, nil
	}

	digits, err := h.digits(env)
	if err != nil {
		return nil, err
	}

	secret, err := internal.NewOTPSecret()
	if err != nil {
		return nil, fmt.Errorf("generate otp secret: %w", err)
	}
	code, err := hotp.GenerateCodeCustom(secret, 1, hotp.ValidateOpts{
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}

	if err := h.send.SendOtp(ctx, env.AccountID, code); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}

	reqRaw, err := marshalPayload(otpRequest{Delivery: "off-channel", Digits: digits.Length()})
	if err != nil {
		return nil, err
	}
	expRaw, err := marshalPayload(otpExpected{Code: code})
	if err != nil {
		return nil, err
	}
	return &Draft{Name: internal.MsgGetOtp, Request: reqRaw, Expected: expRaw}, nil
}

// ValidateResponse implements [Handler].
func (h *OTPHandler) ValidateResponse(ctx context.Context, env Env, processed []Message, pending Message, response json.RawMessage) (Status, error) {
	var exp otpExpected
	if err := json.Unmarshal(pending.Expected, &exp); err != nil {
		return Status{}, fmt.Errorf("decode expected payload: %w", err)
	}
	var resp otpResponse
	if err := json.Unmarshal(response, &resp); err != nil {
		return StatusError(ReasonInvalidOtp), nil
	}

	if len(resp.Otp) != len(exp.Code) ||
		subtle.ConstantTimeCompare([]byte(resp.Otp), []byte(exp.Code)) != 1 {
		return StatusError(ReasonInvalidOtp), nil
	}
	return StatusOk, nil
}

func (h *OTPHandler) digits(env Env) (otp.Digits, error) {
	var params OTPParams
	if len(env.Params) > 0 {
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return 0, fmt.Errorf("decode otp challenge parameters: %w", err)
		}
	}
	switch params.Digits {
	case 0, 6:
		return otp.DigitsSix, nil
	case 8:
		return otp.DigitsEight, nil
	default:
		return 0, fmt.Errorf("unsupported otp digits %d", params.Digits)
	}
}
