package challenge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/internal"
)

// Type identifies a challenge strategy as persisted in challenge defs.
type Type string

const (
	// TypePassword proves knowledge of one or more password fields.
	TypePassword Type = internal.TypePassword
	// TypeSecureRemotePassword runs a four-message SRP-style exchange.
	TypeSecureRemotePassword Type = internal.TypeSecureRemotePassword
	// TypeDigitalSignature proves possession of a registered private key.
	TypeDigitalSignature Type = internal.TypeDigitalSignature
	// TypeOffChannelOtp proves receipt of a one-time code delivered out of band.
	TypeOffChannelOtp Type = internal.TypeOffChannelOtp
)

// MessageNames returns the ordered message sequence a challenge type
// declares, or nil for an unknown type.
func MessageNames(t Type) []string {
	return internal.MessageSequence(string(t))
}

// Stable reason codes carried by error statuses.
const (
	ReasonInvalidPassword   = "InvalidPassword"
	ReasonPublicKeyMismatch = "PublicKeyMismatch"
	ReasonInvalidSignature  = "InvalidSignature"
	ReasonUnknownField      = "UnknownField"
	ReasonInvalidPublicKey  = "InvalidPublicKey"
	ReasonInvalidProof      = "InvalidProof"
	ReasonInvalidOtp        = "InvalidOtp"
)

type statusKind uint8

const (
	kindPending statusKind = iota
	kindOk
	kindError
)

// Status is the tagged verdict of a message: pending (zero value), ok, or an
// error with a reason code. The persisted form is "" / "Ok" / "Error:<reason>".
type Status struct {
	kind   statusKind
	reason string
}

// StatusOk is the verdict that advances the message sequence.
var StatusOk = Status{kind: kindOk}

// StatusError builds an error verdict with a stable reason code.
func StatusError(reason string) Status {
	return Status{kind: kindError, reason: reason}
}

// Resolved reports whether the status is ok or error (not pending).
func (s Status) Resolved() bool { return s.kind != kindPending }

// Ok reports whether the status is the ok verdict.
func (s Status) Ok() bool { return s.kind == kindOk }

// Reason returns the reason code of an error status, or "".
func (s Status) Reason() string { return s.reason }

// String renders the persisted form: "", "Ok", or "Error:<reason>".
func (s Status) String() string {
	switch s.kind {
	case kindOk:
		return "Ok"
	case kindError:
		return "Error:" + s.reason
	default:
		return ""
	}
}

// ParseStatus parses a persisted status string. "" parses to the pending
// status.
func ParseStatus(statusMsg string) (Status, error) {
	switch {
	case statusMsg == "":
		return Status{}, nil
	case statusMsg == "Ok":
		return StatusOk, nil
	case len(statusMsg) > len("Error:") && statusMsg[:len("Error:")] == "Error:":
		return StatusError(statusMsg[len("Error:"):]), nil
	default:
		return Status{}, fmt.Errorf("statusMsg is malformed: %q", statusMsg)
	}
}

// Message is the handler-facing view of a persisted challenge message.
type Message struct {
	Name     string
	Request  json.RawMessage
	Expected json.RawMessage
	Response json.RawMessage
	Status   Status
}

// Draft is a freshly drafted message. Request is sent to the client; Expected
// stays server-side and is immutable once persisted.
type Draft struct {
	Name     string
	Request  json.RawMessage
	Expected json.RawMessage
}

// FieldLookup is the opaque account-attribute collaborator. Values are typed
// by convention per field id (PHC hash strings, base64 public keys, SRP
// verifiers).
type FieldLookup interface {
	GetField(ctx context.Context, accountVersion uint32, accountID, fieldID string) (string, error)
}

// Env carries the per-challenge context a handler may consult: the owning
// account, the def's parameters, and the field collaborator.
type Env struct {
	SessionID      string
	ChallengeID    string
	AccountID      string
	AccountVersion uint32
	Params         json.RawMessage
	Fields         FieldLookup
}

func (e Env) field(ctx context.Context, fieldID string) (string, error) {
	return e.Fields.GetField(ctx, e.AccountVersion, e.AccountID, fieldID)
}

// Handler is the per-challenge-type strategy. Implementations must be safe
// for concurrent use.
type Handler interface {
	// Type names the challenge type the handler drives.
	Type() Type
	// DraftNextMessage returns the next message given what has been processed
	// so far, or nil when the sequence is complete. The initial draft (zero
	// processed messages) must be non-nil.
	DraftNextMessage(ctx context.Context, env Env, processed []Message) (*Draft, error)
	// ValidateResponse judges the client's response to the pending message.
	// The returned status must be resolved.
	ValidateResponse(ctx context.Context, env Env, processed []Message, pending Message, response json.RawMessage) (Status, error)
}

// processedByName finds a processed message by name.
func processedByName(processed []Message, name string) (Message, bool) {
	for _, m := range processed {
		if m.Name == name {
			return m, true
		}
	}
	return Message{}, false
}

func marshalPayload(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return raw, nil
}
