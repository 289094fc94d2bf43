package goAuthFlow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/challenge"
	"github.com/MrEthical07/goAuthFlow/internal/flows"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
)

// Messages lists a challenge's messages in creation order.
func (e *Engine) Messages(ctx context.Context, sessionID, challengeID string) ([]Message, error) {
	if e == nil || e.messages == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.messages.All(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(records))
	for i := range records {
		m, err := messageFromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, nil
}

// PendingMessage returns the challenge's current pending message, drafting
// and persisting the next one when none is outstanding. A nil message with a
// nil error means the message sequence is complete: the challenge has either
// already succeeded or is about to be finalized by the next SubmitResponse.
// An aborted challenge is rejected with an [AuthError].
func (e *Engine) PendingMessage(ctx context.Context, sessionID, challengeID string) (*Message, error) {
	if e == nil || e.messages == nil {
		return nil, ErrEngineNotReady
	}

	deps, err := e.challengeDeps(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}

	view, err := flows.RunPendingMessage(ctx, *deps)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, nil
	}
	return e.messageByName(ctx, sessionID, challengeID, view.Name)
}

// SubmitResponse validates the client's response to the current pending
// message, persists the verdict, and advances the challenge. On an Ok verdict
// the next message is drafted, or the challenge is finalized Succeeded when
// the sequence is complete; any other verdict aborts the challenge.
//
// When rate limiting is configured every submission spends one unit of the
// challenge's attempt budget, refunded in full on challenge success.
func (e *Engine) SubmitResponse(ctx context.Context, sessionID, challengeID string, response json.RawMessage) (*SubmitResult, error) {
	if e == nil || e.messages == nil {
		return nil, ErrEngineNotReady
	}

	if e.limiter != nil {
		if err := e.limiter.CheckSubmit(ctx, sessionID, challengeID); err != nil {
			return nil, e.submitRateLimited(ctx, sessionID, challengeID, err)
		}
		if err := e.limiter.IncrementSubmit(ctx, sessionID, challengeID); err != nil {
			return nil, e.submitRateLimited(ctx, sessionID, challengeID, err)
		}
	}

	deps, err := e.challengeDeps(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}

	result, err := flows.RunSubmitResponse(ctx, *deps, response)
	if err != nil {
		if IsAuthError(err) {
			e.metricInc(MetricIntegrityFailure)
		}
		e.emitAudit(ctx, auditEventMessageResolved, false, "", sessionID, challengeID, err, nil)
		return nil, err
	}

	status, err := challenge.ParseStatus(result.StatusMsg)
	if err != nil {
		return nil, err
	}

	out := &SubmitResult{
		Status:           status,
		ChallengeOutcome: Outcome(result.ChallengeOutcome),
	}
	if result.Next != nil {
		next, err := e.messageByName(ctx, sessionID, challengeID, result.Next.Name)
		if err != nil {
			return nil, err
		}
		out.Next = next
	}

	e.emitAudit(ctx, auditEventMessageResolved, status.Ok(), "", sessionID, challengeID, nil, func() map[string]string {
		return map[string]string{
			"status_msg": result.StatusMsg,
		}
	})

	switch out.ChallengeOutcome {
	case OutcomeSucceeded:
		e.metricInc(MetricChallengeSucceeded)
		e.emitAudit(ctx, auditEventChallengeSucceeded, true, "", sessionID, challengeID, nil, nil)
		if e.limiter != nil {
			// Budget refund is best-effort; a leftover counter expires with
			// its cooldown TTL.
			_ = e.limiter.ResetSubmit(ctx, sessionID, challengeID)
		}
	case OutcomeAborted:
		e.metricInc(MetricChallengeAborted)
		e.emitAudit(ctx, auditEventChallengeAborted, true, "", sessionID, challengeID, nil, func() map[string]string {
			return map[string]string{
				"status_msg": result.StatusMsg,
			}
		})
	}

	return out, nil
}

func (e *Engine) submitRateLimited(ctx context.Context, sessionID, challengeID string, cause error) error {
	// Limiter backend loss fails closed: an unverifiable budget is treated
	// as spent.
	err := ErrSubmitRateLimited
	if errors.Is(cause, rate.ErrRedisUnavailable) {
		err = ErrStoreUnavailable
	}
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", sessionID, challengeID, err, nil)
	return err
}

// challengeDeps binds the message driver to one (sessionID, challengeID)
// pair: storage accessors on one side, the registered handler's
// draft/validate strategy on the other.
func (e *Engine) challengeDeps(ctx context.Context, sessionID, challengeID string) (*flows.ChallengeDeps, error) {
	record, err := e.challenges.Get(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}
	session, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	handler, err := e.handlerFor(challenge.Type(record.Def.ChallengeType))
	if err != nil {
		return nil, err
	}

	env := challenge.Env{
		SessionID:      sessionID,
		ChallengeID:    challengeID,
		AccountID:      session.AccountID,
		AccountVersion: session.AccountVersion,
		Params:         json.RawMessage(record.Def.Parameters),
		Fields:         e.fields,
	}

	return &flows.ChallengeDeps{
		ChallengeType: record.Def.ChallengeType,

		ChallengeOutcome: func(ctx context.Context) (string, error) {
			current, err := e.challenges.Get(ctx, sessionID, challengeID)
			if err != nil {
				return "", err
			}
			return current.Outcome, nil
		},
		LoadMessages: func(ctx context.Context) ([]flows.MessageView, error) {
			records, err := e.messages.All(ctx, sessionID, challengeID)
			if err != nil {
				return nil, err
			}
			views := make([]flows.MessageView, 0, len(records))
			for i := range records {
				views = append(views, viewFromRecord(&records[i]))
			}
			return views, nil
		},
		CreateMessage: func(ctx context.Context, name string, request, expected []byte) (*flows.MessageView, error) {
			created, err := e.messages.Create(ctx, sessionID, challengeID, name, request, expected, nil)
			if err != nil {
				return nil, err
			}
			e.metricInc(MetricMessageDrafted)
			e.emitAudit(ctx, auditEventMessageDrafted, true, session.AccountID, sessionID, challengeID, nil, func() map[string]string {
				return map[string]string{
					"message_name": name,
				}
			})
			view := viewFromRecord(created)
			return &view, nil
		},
		ResolveMessage: func(ctx context.Context, name string, response []byte, statusMsg string) error {
			if err := e.messages.UpdateResponseAndStatus(ctx, sessionID, challengeID, name, response, statusMsg); err != nil {
				return err
			}
			if statusMsg == stores.StatusOk {
				e.metricInc(MetricMessageOk)
			} else {
				e.metricInc(MetricMessageError)
			}
			return nil
		},
		UpdateOutcome: func(ctx context.Context, outcome string) error {
			return e.challenges.UpdateOutcome(ctx, sessionID, challengeID, outcome)
		},

		Draft: func(ctx context.Context, processed []flows.MessageView) (*flows.DraftView, error) {
			draft, err := handler.DraftNextMessage(ctx, env, handlerMessages(processed))
			if err != nil {
				return nil, err
			}
			if draft == nil {
				return nil, nil
			}
			return &flows.DraftView{
				Name:     draft.Name,
				Request:  draft.Request,
				Expected: draft.Expected,
			}, nil
		},
		Validate: func(ctx context.Context, processed []flows.MessageView, pending flows.MessageView, response []byte) (string, error) {
			pendingMsg, err := handlerMessage(pending)
			if err != nil {
				return "", err
			}
			status, err := handler.ValidateResponse(ctx, env, handlerMessages(processed), pendingMsg, response)
			if err != nil {
				return "", err
			}
			if !status.Resolved() {
				return "", fmt.Errorf("challenge handler %q returned an unresolved status", record.Def.ChallengeType)
			}
			return status.String(), nil
		},
	}, nil
}

func (e *Engine) messageByName(ctx context.Context, sessionID, challengeID, name string) (*Message, error) {
	records, err := e.messages.All(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Name == name {
			return messageFromRecord(&records[i])
		}
	}
	return nil, fmt.Errorf("message %q vanished after write", name)
}

func viewFromRecord(r *stores.MessageRecord) flows.MessageView {
	return flows.MessageView{
		Name:      r.Name,
		Request:   r.Request,
		Expected:  r.Expected,
		Response:  r.Response,
		StatusMsg: r.StatusMsg,
	}
}

// handlerMessages converts processed views for the handler. Persisted status
// strings are store-validated, so parse failures cannot occur here.
func handlerMessages(views []flows.MessageView) []challenge.Message {
	out := make([]challenge.Message, 0, len(views))
	for _, v := range views {
		m, err := handlerMessage(v)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

func handlerMessage(v flows.MessageView) (challenge.Message, error) {
	status, err := challenge.ParseStatus(v.StatusMsg)
	if err != nil {
		return challenge.Message{}, err
	}
	return challenge.Message{
		Name:     v.Name,
		Request:  json.RawMessage(v.Request),
		Expected: json.RawMessage(v.Expected),
		Response: json.RawMessage(v.Response),
		Status:   status,
	}, nil
}
