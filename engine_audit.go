package goAuthFlow

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSessionCreated        = "session_created"
	auditEventSessionFinished       = "session_finished"
	auditEventSessionFinishRejected = "session_finish_rejected"
	auditEventChallengeCreated      = "challenge_created"
	auditEventChallengeAborted      = "challenge_aborted"
	auditEventChallengeSucceeded    = "challenge_succeeded"
	auditEventMessageDrafted        = "message_drafted"
	auditEventMessageResolved       = "message_resolved"
	auditEventUpsertApplied         = "upsert_applied"
	auditEventUpsertRejected        = "upsert_rejected"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label carried on audit events.
type AuditErrorCode string

const (
	auditErrNotFound      AuditErrorCode = "entity_not_found"
	auditErrInvalidArg    AuditErrorCode = "invalid_argument"
	auditErrIntegrity     AuditErrorCode = "integrity_violation"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrNoHandler     AuditErrorCode = "no_handler"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternalError AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	sessionID string,
	challengeID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		AccountID:   accountID,
		SessionID:   sessionID,
		ChallengeID: challengeID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case IsNotFound(err):
		return auditErrNotFound
	case IsInvalidArg(err):
		return auditErrInvalidArg
	case IsAuthError(err):
		return auditErrIntegrity
	case errors.Is(err, ErrSubmitRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrNoHandler):
		return auditErrNoHandler
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternalError
	}
}
