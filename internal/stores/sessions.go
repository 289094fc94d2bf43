package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/autherr"
)

// SessionStore persists auth_session rows. A session is created once per
// login attempt and closed once; the outcome transition is monotonic and
// enforced by conditional updates, never by in-process state.
type SessionStore struct {
	db   *DB
	defs *DefStore
}

// NewSessionStore returns a SessionStore over db.
func NewSessionStore(db *DB, defs *DefStore) *SessionStore {
	return &SessionStore{db: db, defs: defs}
}

// Create inserts a new Pending session row.
func (s *SessionStore) Create(ctx context.Context, sessionID, accountID string, accountVersion uint32) (*SessionRecord, error) {
	_, err := s.db.exec(ctx, s.db.sql, `
		INSERT INTO auth_session (session_id, account_id, account_version, outcome)
		VALUES (?, ?, ?, ?)`,
		sessionID, accountID, accountVersion, OutcomePending)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &SessionRecord{
		SessionID:      sessionID,
		AccountID:      accountID,
		AccountVersion: accountVersion,
		Outcome:        OutcomePending,
	}, nil
}

// Get loads one session by identifier.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	return s.get(ctx, s.db.sql, sessionID, false)
}

// get loads a session; with lock=true it takes the dialect's row lock, so it
// must then run inside a transaction.
func (s *SessionStore) get(ctx context.Context, q querier, sessionID string, lock bool) (*SessionRecord, error) {
	query := `
		SELECT account_id, account_version, outcome
		FROM auth_session
		WHERE session_id = ?`
	if lock {
		query += s.db.dialect.lockSuffix()
	}

	rec := SessionRecord{SessionID: sessionID}
	err := s.db.queryRow(ctx, q, query, sessionID).Scan(&rec.AccountID, &rec.AccountVersion, &rec.Outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NewEntityNotFound("AuthSession", "sessionId", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &rec, nil
}

// Finish moves the session to Succeeded. It locks the session row, re-fetches
// every declared challenge def and every existing challenge, and rejects the
// transition unless each declared challenge has a Succeeded record. The final
// update is itself conditioned on the outcome still being Pending, so a
// concurrent writer turns into an explicit error instead of a lost update.
func (s *SessionStore) Finish(ctx context.Context, sessionID string) error {
	return s.db.withTx(ctx, func(q querier) error {
		rec, err := s.get(ctx, q, sessionID, true)
		if err != nil {
			return err
		}
		if rec.Outcome != OutcomePending {
			return autherr.NewAuthError("session %s is not pending", sessionID)
		}

		defs, err := s.defs.listByAccountVersion(ctx, q, rec.AccountVersion)
		if err != nil {
			return err
		}

		outcomes, err := s.challengeOutcomes(ctx, q, sessionID)
		if err != nil {
			return err
		}

		for _, def := range defs {
			outcome, ok := outcomes[def.ChallengeID]
			switch {
			case !ok:
				return autherr.NewAuthError("challenge %s was not initiated", def.ChallengeID)
			case outcome == OutcomePending:
				return autherr.NewAuthError("challenge %s is still pending", def.ChallengeID)
			case outcome == OutcomeAborted:
				return autherr.NewAuthError("challenge %s was aborted", def.ChallengeID)
			}
		}

		res, err := s.db.exec(ctx, q, `
			UPDATE auth_session SET outcome = ?
			WHERE session_id = ? AND outcome = ?`,
			OutcomeSucceeded, sessionID, OutcomePending)
		if err != nil {
			return fmt.Errorf("finish session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("finish session: %w", err)
		}
		if n == 0 {
			return autherr.NewAuthError("session %s is not pending", sessionID)
		}
		return nil
	})
}

func (s *SessionStore) challengeOutcomes(ctx context.Context, q querier, sessionID string) (map[string]string, error) {
	rows, err := s.db.query(ctx, q, `
		SELECT challenge_id, outcome
		FROM auth_challenge
		WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session challenges: %w", err)
	}
	defer rows.Close()

	outcomes := make(map[string]string)
	for rows.Next() {
		var id, outcome string
		if err := rows.Scan(&id, &outcome); err != nil {
			return nil, fmt.Errorf("scan session challenge: %w", err)
		}
		outcomes[id] = outcome
	}
	return outcomes, rows.Err()
}
