package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

// ChallengeStore persists auth_challenge rows. Challenge creation requires a
// Pending owning session and a resolvable def; outcome updates are
// conditional writes guarded on the Pending ancestry.
type ChallengeStore struct {
	db       *DB
	sessions *SessionStore
	defs     *DefStore
}

// NewChallengeStore returns a ChallengeStore over db.
func NewChallengeStore(db *DB, sessions *SessionStore, defs *DefStore) *ChallengeStore {
	return &ChallengeStore{db: db, sessions: sessions, defs: defs}
}

// Get loads one challenge joined with its immutable def.
func (s *ChallengeStore) Get(ctx context.Context, sessionID, challengeID string) (*ChallengeRecord, error) {
	return s.get(ctx, s.db.sql, sessionID, challengeID, false)
}

func (s *ChallengeStore) get(ctx context.Context, q querier, sessionID, challengeID string, lock bool) (*ChallengeRecord, error) {
	query := `
		SELECT c.outcome, s.account_version, d.challenge_type, d.challenge_parameters
		FROM auth_challenge c
		JOIN auth_session s ON s.session_id = c.session_id
		JOIN account_def_auth_challenge d
			ON d.challenge_id = c.challenge_id AND d.account_version = s.account_version
		WHERE c.session_id = ? AND c.challenge_id = ?`
	if lock {
		// Only the challenge row is mutable here; the def row is shared by
		// every session on the same account version and must stay unlocked.
		query += s.db.dialect.lockSuffixOf("c")
	}

	rec := ChallengeRecord{SessionID: sessionID, ChallengeID: challengeID}
	var params string
	err := s.db.queryRow(ctx, q, query, sessionID, challengeID).
		Scan(&rec.Outcome, &rec.Def.AccountVersion, &rec.Def.ChallengeType, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NewEntityNotFound("AuthChallenge", "challengeId", challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	rec.Def.ChallengeID = challengeID
	rec.Def.Parameters = []byte(params)
	rec.Def.Sequence = internal.MessageSequence(rec.Def.ChallengeType)
	return &rec, nil
}

// Create inserts a Pending challenge row. The owning session is locked first
// and must still be Pending when the conditional insert runs.
func (s *ChallengeStore) Create(ctx context.Context, sessionID, challengeID string) (*ChallengeRecord, error) {
	var rec *ChallengeRecord

	err := s.db.withTx(ctx, func(q querier) error {
		session, err := s.sessions.get(ctx, q, sessionID, true)
		if err != nil {
			return err
		}

		def, err := s.defs.get(ctx, q, challengeID, session.AccountVersion)
		if err != nil {
			if autherr.IsNotFound(err) {
				return fmt.Errorf("no challenge def for challenge %s at account version %d: %w",
					challengeID, session.AccountVersion, err)
			}
			return err
		}

		var exists int
		err = s.db.queryRow(ctx, q, `
			SELECT COUNT(*) FROM auth_challenge
			WHERE session_id = ? AND challenge_id = ?`,
			sessionID, challengeID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check challenge existence: %w", err)
		}
		if exists > 0 {
			return autherr.NewAuthError("challenge %s already exists for session %s", challengeID, sessionID)
		}

		res, err := s.db.exec(ctx, q, `
			INSERT INTO auth_challenge (session_id, challenge_id, outcome)
			SELECT ?, ?, ?
			WHERE EXISTS (
				SELECT 1 FROM auth_session WHERE session_id = ? AND outcome = ?
			)`,
			sessionID, challengeID, OutcomePending, sessionID, OutcomePending)
		if err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("create challenge: %w", err)
		}
		if n == 0 {
			return autherr.NewAuthError("session is not pending")
		}

		rec = &ChallengeRecord{
			SessionID:   sessionID,
			ChallengeID: challengeID,
			Outcome:     OutcomePending,
			Def:         *def,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateOutcome moves a challenge out of Pending. Pending is refused as a
// target; the write is conditioned on both the challenge and its session
// still being Pending, and a zero-row result is an integrity error.
func (s *ChallengeStore) UpdateOutcome(ctx context.Context, sessionID, challengeID, outcome string) error {
	if outcome == OutcomePending {
		return autherr.NewInvalidArg("refusing to update to default outcome")
	}
	if outcome != OutcomeAborted && outcome != OutcomeSucceeded {
		return autherr.NewInvalidArg("unknown outcome %q", outcome)
	}

	return s.db.withTx(ctx, func(q querier) error {
		return s.updateOutcome(ctx, q, sessionID, challengeID, outcome)
	})
}

func (s *ChallengeStore) updateOutcome(ctx context.Context, q querier, sessionID, challengeID, outcome string) error {
	res, err := s.db.exec(ctx, q, `
		UPDATE auth_challenge SET outcome = ?
		WHERE session_id = ? AND challenge_id = ? AND outcome = ?
		AND EXISTS (
			SELECT 1 FROM auth_session WHERE session_id = ? AND outcome = ?
		)`,
		outcome, sessionID, challengeID, OutcomePending, sessionID, OutcomePending)
	if err != nil {
		return fmt.Errorf("update challenge outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update challenge outcome: %w", err)
	}
	if n == 0 {
		return autherr.NewAuthError("challenge %s is not pending (or its session is not pending)", challengeID)
	}
	return nil
}
