package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/autherr"
)

// MessageView is the flow-local message shape used by the driver. StatusMsg
// is "" while the message is pending.
type MessageView struct {
	Name      string
	Request   []byte
	Expected  []byte
	Response  []byte
	StatusMsg string
}

// DraftView is a freshly drafted message before persistence.
type DraftView struct {
	Name     string
	Request  []byte
	Expected []byte
}

// ChallengeDeps captures everything the message driver needs: storage
// accessors bound to one (sessionID, challengeID) pair, plus the concrete
// handler's draft/validate strategy.
type ChallengeDeps struct {
	ChallengeType string

	ChallengeOutcome func(ctx context.Context) (string, error)
	LoadMessages     func(ctx context.Context) ([]MessageView, error)
	CreateMessage    func(ctx context.Context, name string, request, expected []byte) (*MessageView, error)
	ResolveMessage   func(ctx context.Context, name string, response []byte, statusMsg string) error
	UpdateOutcome    func(ctx context.Context, outcome string) error

	Draft    func(ctx context.Context, processed []MessageView) (*DraftView, error)
	Validate func(ctx context.Context, processed []MessageView, pending MessageView, response []byte) (string, error)
}

// SubmitResult is the outcome of processing one pending-message response.
type SubmitResult struct {
	StatusMsg        string
	Next             *MessageView
	ChallengeOutcome string
}

const (
	outcomePending   = "Pending"
	outcomeAborted   = "Aborted"
	outcomeSucceeded = "Succeeded"
	statusOk         = "Ok"
)

// RunPendingMessage returns the challenge's current pending message, drafting
// and persisting the next one when none is outstanding. A nil result means
// the challenge has no further messages: its sequence is complete.
func RunPendingMessage(ctx context.Context, deps ChallengeDeps) (*MessageView, error) {
	outcome, err := deps.ChallengeOutcome(ctx)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case outcomePending:
	case outcomeSucceeded:
		// Already finalized: the sequence ran to completion, nothing to draft.
		return nil, nil
	default:
		return nil, autherr.NewAuthError("challenge is not pending")
	}

	messages, err := deps.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}
	pending, processed := splitMessages(messages)
	if pending != nil {
		return pending, nil
	}

	draft, err := deps.Draft(ctx, processed)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		if len(processed) == 0 {
			// A handler must always produce an initial message; nil here is a
			// handler bug, not a state condition.
			return nil, fmt.Errorf("challenge handler %q drafted no initial message", deps.ChallengeType)
		}
		return nil, nil
	}

	return deps.CreateMessage(ctx, draft.Name, draft.Request, draft.Expected)
}

// RunSubmitResponse validates the response to the current pending message,
// persists the verdict, and advances the challenge: on Ok it drafts the next
// message, and finalizes the challenge outcome when the sequence is complete.
// A non-Ok verdict aborts the challenge (cascaded by the store).
func RunSubmitResponse(ctx context.Context, deps ChallengeDeps, response []byte) (*SubmitResult, error) {
	messages, err := deps.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}
	pending, processed := splitMessages(messages)
	if pending == nil {
		return nil, autherr.NewAuthError("no pending message to process; did you call PendingMessage first?")
	}

	statusMsg, err := deps.Validate(ctx, processed, *pending, response)
	if err != nil {
		return nil, err
	}

	if err := deps.ResolveMessage(ctx, pending.Name, response, statusMsg); err != nil {
		return nil, err
	}

	if statusMsg != statusOk {
		return &SubmitResult{StatusMsg: statusMsg, ChallengeOutcome: outcomeAborted}, nil
	}

	next, err := RunPendingMessage(ctx, deps)
	if err != nil {
		return nil, err
	}
	if next != nil {
		return &SubmitResult{StatusMsg: statusMsg, Next: next, ChallengeOutcome: outcomePending}, nil
	}

	if err := deps.UpdateOutcome(ctx, outcomeSucceeded); err != nil {
		return nil, err
	}
	return &SubmitResult{StatusMsg: statusMsg, ChallengeOutcome: outcomeSucceeded}, nil
}

// splitMessages separates the single pending message (if any) from the
// processed ones. Store-side invariants guarantee at most one pending
// message per challenge.
func splitMessages(messages []MessageView) (*MessageView, []MessageView) {
	var pending *MessageView
	processed := make([]MessageView, 0, len(messages))
	for i := range messages {
		if messages[i].StatusMsg == "" {
			pending = &messages[i]
			continue
		}
		processed = append(processed, messages[i])
	}
	return pending, processed
}
