package goAuthFlow

import (
	"context"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
)

// CreateChallenge instantiates the challenge declared by (challengeID,
// session's accountVersion) inside a pending session. The new challenge
// starts Pending with no messages; creating the same challenge twice is
// rejected.
func (e *Engine) CreateChallenge(ctx context.Context, sessionID, challengeID string) (*Challenge, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" {
		return nil, autherr.NewInvalidArg("challengeId must not be empty")
	}

	record, err := e.challenges.Create(ctx, sessionID, challengeID)
	if err != nil {
		if IsAuthError(err) {
			e.metricInc(MetricIntegrityFailure)
		}
		e.emitAudit(ctx, auditEventChallengeCreated, false, "", sessionID, challengeID, err, nil)
		return nil, err
	}

	e.metricInc(MetricChallengeCreated)
	e.emitAudit(ctx, auditEventChallengeCreated, true, "", sessionID, challengeID, nil, func() map[string]string {
		return map[string]string{
			"challenge_type": record.Def.ChallengeType,
		}
	})

	return challengeFromRecord(record), nil
}

// Challenge loads a challenge instance joined with its immutable declaration.
func (e *Engine) Challenge(ctx context.Context, sessionID, challengeID string) (*Challenge, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	record, err := e.challenges.Get(ctx, sessionID, challengeID)
	if err != nil {
		return nil, err
	}
	return challengeFromRecord(record), nil
}

// AbortChallenge forces a pending challenge to the Aborted outcome, for
// flows where the client abandons a challenge (switching to an alternative
// factor). Terminal challenges are rejected.
func (e *Engine) AbortChallenge(ctx context.Context, sessionID, challengeID string) error {
	if e == nil || e.challenges == nil {
		return ErrEngineNotReady
	}

	err := e.challenges.UpdateOutcome(ctx, sessionID, challengeID, stores.OutcomeAborted)
	if err != nil {
		if IsAuthError(err) {
			e.metricInc(MetricIntegrityFailure)
		}
		e.emitAudit(ctx, auditEventChallengeAborted, false, "", sessionID, challengeID, err, nil)
		return err
	}

	e.metricInc(MetricChallengeAborted)
	e.emitAudit(ctx, auditEventChallengeAborted, true, "", sessionID, challengeID, nil, nil)

	return nil
}
