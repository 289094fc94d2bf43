package goAuthFlow

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/MrEthical07/goAuthFlow/autherr"
)

// CreateSession opens a new authentication session for the given account at a
// fixed account schema version and returns it in the Pending state. The
// session id is generated server-side.
func (e *Engine) CreateSession(ctx context.Context, accountID string, accountVersion uint32) (*Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if accountID == "" {
		return nil, autherr.NewInvalidArg("accountId must not be empty")
	}

	sessionID := uuid.NewString()

	record, err := e.sessions.Create(ctx, sessionID, accountID, accountVersion)
	if err != nil {
		e.emitAudit(ctx, auditEventSessionCreated, false, accountID, sessionID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, accountID, sessionID, "", nil, func() map[string]string {
		return map[string]string{
			"account_version": strconv.FormatUint(uint64(accountVersion), 10),
		}
	})

	return sessionFromRecord(record), nil
}

// Session loads a session by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	record, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sessionFromRecord(record), nil
}

// FinishSession marks a pending session Succeeded once every challenge
// declared for its account version has succeeded. The completeness check and
// the outcome write happen in one transaction; a session that is already
// terminal, or whose challenges are missing, pending, or aborted, is rejected
// with an [AuthError] and left untouched.
//
// When token issuance is configured the result carries a signed finish proof
// binding the session, account, and account version.
func (e *Engine) FinishSession(ctx context.Context, sessionID string) (*FinishResult, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.emitAudit(ctx, auditEventSessionFinishRejected, false, "", sessionID, "", err, nil)
		return nil, err
	}

	if err := e.sessions.Finish(ctx, sessionID); err != nil {
		e.metricInc(MetricSessionFinishRejected)
		if IsAuthError(err) {
			e.metricInc(MetricIntegrityFailure)
		}
		e.emitAudit(ctx, auditEventSessionFinishRejected, false, record.AccountID, sessionID, "", err, nil)
		return nil, err
	}

	result := &FinishResult{
		Session: &Session{
			SessionID:      record.SessionID,
			AccountID:      record.AccountID,
			AccountVersion: record.AccountVersion,
			Outcome:        OutcomeSucceeded,
		},
	}

	if e.tokens != nil {
		proof, err := e.tokens.Issue(record.SessionID, record.AccountID, record.AccountVersion)
		if err != nil {
			// The session outcome is already committed; the caller can retry
			// issuance out of band, so the finish itself is not rolled back.
			e.emitAudit(ctx, auditEventSessionFinished, false, record.AccountID, sessionID, "", err, func() map[string]string {
				return map[string]string{
					"reason": "token_issuance_failed",
				}
			})
			return result, err
		}
		result.Token = proof
	}

	e.metricInc(MetricSessionSucceeded)
	e.emitAudit(ctx, auditEventSessionFinished, true, record.AccountID, sessionID, "", nil, nil)

	return result, nil
}
