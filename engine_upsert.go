package goAuthFlow

import (
	"context"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal/flows"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
)

// UpsertChallengeAndMessages applies one batched challenge write: it creates
// the challenge row when absent, inserts the batch's unseen messages, resolves
// its pending ones, and finalizes the challenge outcome implied by the last
// entry, all in a single transaction.
//
// The batch must be a consecutive run of the def's message sequence, already
// resolved Ok except possibly the last entry. Prior sequence positions must
// match the messages already persisted Ok; any disagreement with stored state
// rejects the whole batch with an [AuthError] and writes nothing, so a client
// can safely retry after re-reading.
func (e *Engine) UpsertChallengeAndMessages(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	if e == nil || e.upsert == nil {
		return nil, ErrEngineNotReady
	}
	if req.SessionID == "" {
		return nil, autherr.NewInvalidArg("sessionId must not be empty")
	}
	if req.ChallengeID == "" {
		return nil, autherr.NewInvalidArg("challengeId must not be empty")
	}

	session, err := e.sessions.Get(ctx, req.SessionID)
	if err != nil {
		e.emitAudit(ctx, auditEventUpsertRejected, false, "", req.SessionID, req.ChallengeID, err, nil)
		return nil, err
	}
	def, err := e.defs.Get(ctx, req.ChallengeID, session.AccountVersion)
	if err != nil {
		e.emitAudit(ctx, auditEventUpsertRejected, false, session.AccountID, req.SessionID, req.ChallengeID, err, nil)
		return nil, err
	}

	batch := make([]flows.BatchMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		batch = append(batch, flows.BatchMessage{
			Name:      m.Name,
			StatusMsg: m.Status.String(),
		})
	}

	plan, err := flows.ValidateUpsertBatch(def.Sequence, batch)
	if err != nil {
		e.metricInc(MetricUpsertRejected)
		e.emitAudit(ctx, auditEventUpsertRejected, false, session.AccountID, req.SessionID, req.ChallengeID, err, nil)
		return nil, err
	}

	writes := make([]stores.UpsertMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		writes = append(writes, stores.UpsertMessage{
			Name:      m.Name,
			Request:   m.Request,
			Expected:  m.Expected,
			Response:  m.Response,
			StatusMsg: m.Status.String(),
		})
	}

	applied, err := e.upsert.Apply(ctx, req.SessionID, req.ChallengeID, writes, plan.PriorPrefix, plan.Outcome)
	if err != nil {
		e.metricInc(MetricUpsertRejected)
		if IsAuthError(err) {
			e.metricInc(MetricIntegrityFailure)
		}
		e.emitAudit(ctx, auditEventUpsertRejected, false, session.AccountID, req.SessionID, req.ChallengeID, err, nil)
		return nil, err
	}

	e.metricInc(MetricUpsertApplied)
	if applied.ChallengeCreated {
		e.metricInc(MetricChallengeCreated)
	}
	switch Outcome(applied.Outcome) {
	case OutcomeSucceeded:
		e.metricInc(MetricChallengeSucceeded)
	case OutcomeAborted:
		e.metricInc(MetricChallengeAborted)
	}
	e.emitAudit(ctx, auditEventUpsertApplied, true, session.AccountID, req.SessionID, req.ChallengeID, nil, func() map[string]string {
		return map[string]string{
			"outcome": applied.Outcome,
		}
	})

	return &UpsertResult{
		ChallengeCreated: applied.ChallengeCreated,
		Inserted:         applied.Inserted,
		Updated:          applied.Updated,
		Outcome:          Outcome(applied.Outcome),
	}, nil
}
