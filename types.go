package goAuthFlow

import (
	"encoding/json"
	"time"

	"github.com/MrEthical07/goAuthFlow/challenge"
)

// Outcome is the lifecycle state of a session or challenge. Pending is the
// creation default; Aborted and Succeeded are terminal and never revert.
type Outcome string

const (
	// OutcomePending is an in-flight session or challenge.
	OutcomePending Outcome = "Pending"
	// OutcomeAborted is a session or challenge that failed terminally.
	OutcomeAborted Outcome = "Aborted"
	// OutcomeSucceeded is a session or challenge that completed successfully.
	OutcomeSucceeded Outcome = "Succeeded"
)

// Terminal reports whether the outcome can no longer change.
func (o Outcome) Terminal() bool {
	return o == OutcomeAborted || o == OutcomeSucceeded
}

// Session is one login attempt against a fixed account + schema version.
type Session struct {
	SessionID      string
	AccountID      string
	AccountVersion uint32
	Outcome        Outcome
}

// ChallengeDef is the immutable declaration of a challenge for one account
// schema version. MessageNames is derived from Type.
type ChallengeDef struct {
	ChallengeID    string
	AccountVersion uint32
	Type           challenge.Type
	Parameters     json.RawMessage
	MessageNames   []string
}

// Challenge is one challenge instance within a session, joined with its def.
type Challenge struct {
	SessionID   string
	ChallengeID string
	Outcome     Outcome
	Def         ChallengeDef
}

// Message is one message instance within a challenge. Request and Expected
// are immutable after drafting; Response and Status are written exactly once.
type Message struct {
	SessionID   string
	ChallengeID string
	Name        string
	Request     json.RawMessage
	Expected    json.RawMessage
	Response    json.RawMessage
	Status      challenge.Status
	CreatedAt   time.Time
}

// FieldProvider is the opaque account-attribute collaborator handlers use to
// compute expected payloads.
type FieldProvider = challenge.FieldLookup

// SubmitResult reports the verdict on one pending-message response and where
// the challenge stands afterwards. Next is nil when the challenge reached a
// terminal outcome.
type SubmitResult struct {
	Status           challenge.Status
	Next             *Message
	ChallengeOutcome Outcome
}

// FinishResult is returned by [Engine.FinishSession]. Token is empty unless
// token issuance is configured.
type FinishResult struct {
	Session *Session
	Token   string
}

// MessageInput is one entry of a batched challenge write. A zero
// (pending) Status submits the message as drafted-but-unanswered; only the
// last entry of a batch may be pending or non-Ok.
type MessageInput struct {
	Name     string
	Request  json.RawMessage
	Expected json.RawMessage
	Response json.RawMessage
	Status   challenge.Status
}

// UpsertRequest is the input of [Engine.UpsertChallengeAndMessages].
type UpsertRequest struct {
	SessionID   string
	ChallengeID string
	Messages    []MessageInput
}

// UpsertResult reports what a batch write changed.
type UpsertResult struct {
	ChallengeCreated bool
	Inserted         int
	Updated          int
	Outcome          Outcome
}
