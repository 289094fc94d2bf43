package goAuthFlow

import (
	"context"
	"encoding/json"

	"github.com/MrEthical07/goAuthFlow/challenge"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
	"github.com/MrEthical07/goAuthFlow/token"
)

// Engine drives authentication sessions: it owns the session, challenge, and
// message stores, the registered challenge handlers, and the ambient
// collaborators (attempt limiter, audit dispatcher, metrics, token manager).
//
// An Engine is configured once via [Builder.Build] and treated as immutable
// afterwards; all methods are safe for concurrent use.
type Engine struct {
	config     Config
	db         *stores.DB
	defs       *stores.DefStore
	sessions   *stores.SessionStore
	challenges *stores.ChallengeStore
	messages   *stores.MessageStore
	upsert     *stores.UpsertStore
	handlers   map[challenge.Type]challenge.Handler
	fields     FieldProvider
	limiter    *rate.Limiter
	audit      *auditDispatcher
	metrics    *Metrics
	tokens     *token.Manager
}

// Close drains the audit dispatcher. The database and Redis handles were
// supplied by the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// EnsureSchema creates the backing tables when they do not exist. Intended
// for tests and first boot; production deployments usually migrate
// externally.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	if e == nil || e.db == nil {
		return ErrEngineNotReady
	}
	return e.db.EnsureSchema(ctx)
}

// SeedChallengeDef registers the immutable challenge declaration for one
// account schema version. Seeding an already-present (challengeID,
// accountVersion) pair is a no-op when the declaration is identical; a
// conflicting redefinition is rejected with an [AuthError].
func (e *Engine) SeedChallengeDef(ctx context.Context, challengeID string, accountVersion uint32, challengeType challenge.Type, parameters json.RawMessage) error {
	if e == nil || e.defs == nil {
		return ErrEngineNotReady
	}
	return e.defs.Seed(ctx, challengeID, accountVersion, string(challengeType), parameters)
}

// ChallengeDefs lists the challenge declarations of one account schema
// version.
func (e *Engine) ChallengeDefs(ctx context.Context, accountVersion uint32) ([]ChallengeDef, error) {
	if e == nil || e.defs == nil {
		return nil, ErrEngineNotReady
	}
	records, err := e.defs.ListByAccountVersion(ctx, accountVersion)
	if err != nil {
		return nil, err
	}
	defs := make([]ChallengeDef, 0, len(records))
	for i := range records {
		defs = append(defs, defFromRecord(&records[i]))
	}
	return defs, nil
}

// VerifyToken parses and verifies a finish proof issued by FinishSession.
// Returns an error when token issuance is not configured.
func (e *Engine) VerifyToken(tokenString string) (*token.SessionClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.Verify(tokenString)
}

// AuditDropped reports how many audit events the dispatcher discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters. Returns an empty snapshot when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// handlerFor resolves the registered handler for a def's challenge type.
func (e *Engine) handlerFor(t challenge.Type) (challenge.Handler, error) {
	h, ok := e.handlers[t]
	if !ok {
		return nil, ErrNoHandler
	}
	return h, nil
}

// -------- RECORD CONVERSIONS --------

func sessionFromRecord(r *stores.SessionRecord) *Session {
	return &Session{
		SessionID:      r.SessionID,
		AccountID:      r.AccountID,
		AccountVersion: r.AccountVersion,
		Outcome:        Outcome(r.Outcome),
	}
}

func defFromRecord(r *stores.DefRecord) ChallengeDef {
	return ChallengeDef{
		ChallengeID:    r.ChallengeID,
		AccountVersion: r.AccountVersion,
		Type:           challenge.Type(r.ChallengeType),
		Parameters:     json.RawMessage(r.Parameters),
		MessageNames:   r.Sequence,
	}
}

func challengeFromRecord(r *stores.ChallengeRecord) *Challenge {
	return &Challenge{
		SessionID:   r.SessionID,
		ChallengeID: r.ChallengeID,
		Outcome:     Outcome(r.Outcome),
		Def:         defFromRecord(&r.Def),
	}
}

func messageFromRecord(r *stores.MessageRecord) (*Message, error) {
	status, err := challenge.ParseStatus(r.StatusMsg)
	if err != nil {
		return nil, err
	}
	return &Message{
		SessionID:   r.SessionID,
		ChallengeID: r.ChallengeID,
		Name:        r.Name,
		Request:     json.RawMessage(r.Request),
		Expected:    json.RawMessage(r.Expected),
		Response:    json.RawMessage(r.Response),
		Status:      status,
		CreatedAt:   r.CreatedAt,
	}, nil
}
