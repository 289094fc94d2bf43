package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthFlow/autherr"
)

// UpsertMessage is one entry of a batched challenge write. An empty StatusMsg
// means the message is submitted as still pending.
type UpsertMessage struct {
	Name      string
	Request   []byte
	Expected  []byte
	Response  []byte
	StatusMsg string
}

// UpsertResult reports what a batch apply wrote.
type UpsertResult struct {
	ChallengeCreated bool
	Inserted         int
	Updated          int
	Outcome          string
}

// UpsertStore executes the transactional half of UpsertChallengeAndMessages.
// Batch shape validation and outcome computation happen before the
// transaction (internal/flows); this store re-verifies everything that
// depends on persisted state under lock, and writes all-or-nothing.
type UpsertStore struct {
	db         *DB
	sessions   *SessionStore
	defs       *DefStore
	challenges *ChallengeStore
	messages   *MessageStore
}

// NewUpsertStore returns an UpsertStore over db.
func NewUpsertStore(db *DB, sessions *SessionStore, defs *DefStore, challenges *ChallengeStore, messages *MessageStore) *UpsertStore {
	return &UpsertStore{db: db, sessions: sessions, defs: defs, challenges: challenges, messages: messages}
}

// Apply writes the batch in one atomic unit. priorPrefix is the exact
// sequence of message names that must already be Ok for this batch to attach;
// outcome is the intended challenge outcome computed from the batch. Any
// guard failure aborts the whole transaction with an integrity error and no
// rows written.
func (s *UpsertStore) Apply(ctx context.Context, sessionID, challengeID string, batch []UpsertMessage, priorPrefix []string, outcome string) (*UpsertResult, error) {
	var result *UpsertResult

	err := s.db.withTx(ctx, func(q querier) error {
		session, err := s.sessions.get(ctx, q, sessionID, true)
		if err != nil {
			return err
		}
		if session.Outcome != OutcomePending {
			return autherr.NewAuthError("integrity validation failed: session %s is not pending", sessionID)
		}

		if _, err := s.defs.get(ctx, q, challengeID, session.AccountVersion); err != nil {
			if autherr.IsNotFound(err) {
				return fmt.Errorf("no challenge def for challenge %s at account version %d: %w",
					challengeID, session.AccountVersion, err)
			}
			return err
		}

		challengeExists, err := s.lockChallenge(ctx, q, sessionID, challengeID)
		if err != nil {
			return err
		}

		existing, err := s.messages.all(ctx, q, sessionID, challengeID)
		if err != nil {
			return err
		}

		// Recompute the actual previously-Ok prefix under lock. A mismatch
		// means another writer advanced or diverged the challenge since the
		// caller validated its batch.
		var okNames []string
		byName := make(map[string]*MessageRecord, len(existing))
		for i := range existing {
			m := &existing[i]
			byName[m.Name] = m
			if m.Resolved() && !m.Ok() {
				return autherr.NewAuthError(
					"integrity validation failed: message %s already failed", m.Name)
			}
			if m.Ok() {
				okNames = append(okNames, m.Name)
			}
		}
		if !equalNames(okNames, priorPrefix) {
			return autherr.NewAuthError(
				"integrity validation failed: processed messages do not match the expected prefix")
		}

		res := UpsertResult{Outcome: outcome}
		now := time.Now().UnixNano()

		if !challengeExists {
			if err := s.insertChallenge(ctx, q, sessionID, challengeID); err != nil {
				return err
			}
			res.ChallengeCreated = true
		}

		for _, in := range batch {
			prev, seen := byName[in.Name]
			switch {
			case !seen:
				if err := s.insertMessage(ctx, q, sessionID, challengeID, in, now); err != nil {
					return err
				}
				res.Inserted++
			case !prev.Resolved():
				if in.StatusMsg == "" && in.Response == nil {
					// Resubmitting a still-pending message with no new data
					// is not a write.
					continue
				}
				if err := s.updateMessage(ctx, q, sessionID, challengeID, in); err != nil {
					return err
				}
				res.Updated++
			default:
				// Already finalized: neither insertable nor updatable.
				return autherr.NewAuthError(
					"integrity validation failed: message %s is already resolved", in.Name)
			}
		}

		if res.Inserted == 0 && res.Updated == 0 && !res.ChallengeCreated {
			return autherr.NewAuthError("integrity validation failed: nothing to write")
		}

		if outcome != OutcomePending {
			if err := s.challenges.updateOutcome(ctx, q, sessionID, challengeID, outcome); err != nil {
				if autherr.IsAuth(err) {
					return autherr.NewAuthError(
						"integrity validation failed: challenge %s is not pending", challengeID)
				}
				return err
			}
		}

		result = &res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockChallenge takes the row lock on the challenge if it exists and verifies
// it is still Pending.
func (s *UpsertStore) lockChallenge(ctx context.Context, q querier, sessionID, challengeID string) (bool, error) {
	query := `
		SELECT outcome FROM auth_challenge
		WHERE session_id = ? AND challenge_id = ?` + s.db.dialect.lockSuffix()

	var outcome string
	err := s.db.queryRow(ctx, q, query, sessionID, challengeID).Scan(&outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock challenge: %w", err)
	}
	if outcome != OutcomePending {
		return true, autherr.NewAuthError(
			"integrity validation failed: challenge %s is not pending", challengeID)
	}
	return true, nil
}

func (s *UpsertStore) insertChallenge(ctx context.Context, q querier, sessionID, challengeID string) error {
	res, err := s.db.exec(ctx, q, `
		INSERT INTO auth_challenge (session_id, challenge_id, outcome)
		SELECT ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM auth_session WHERE session_id = ? AND outcome = ?
		)`,
		sessionID, challengeID, OutcomePending, sessionID, OutcomePending)
	if err != nil {
		return fmt.Errorf("upsert challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert challenge: %w", err)
	}
	if n == 0 {
		return autherr.NewAuthError("integrity validation failed: session %s is not pending", sessionID)
	}
	return nil
}

func (s *UpsertStore) insertMessage(ctx context.Context, q querier, sessionID, challengeID string, in UpsertMessage, now int64) error {
	var responseArg, statusArg any
	if in.Response != nil {
		responseArg = string(in.Response)
	}
	if in.StatusMsg != "" {
		statusArg = in.StatusMsg
	}

	_, err := s.db.exec(ctx, q, `
		INSERT INTO auth_challenge_message
			(session_id, challenge_id, message_name, request, expected, response, status_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, challengeID, in.Name, string(in.Request), string(in.Expected), responseArg, statusArg, now)
	if err != nil {
		return fmt.Errorf("upsert message insert: %w", err)
	}
	return nil
}

// updateMessage resolves an existing pending message in place. Request and
// expected stay as drafted; only response and status are written, guarded on
// the status still being null.
func (s *UpsertStore) updateMessage(ctx context.Context, q querier, sessionID, challengeID string, in UpsertMessage) error {
	var responseArg, statusArg any
	if in.Response != nil {
		responseArg = string(in.Response)
	}
	if in.StatusMsg != "" {
		statusArg = in.StatusMsg
	}

	res, err := s.db.exec(ctx, q, `
		UPDATE auth_challenge_message SET response = ?, status_msg = ?
		WHERE session_id = ? AND challenge_id = ? AND message_name = ? AND status_msg IS NULL`,
		responseArg, statusArg, sessionID, challengeID, in.Name)
	if err != nil {
		return fmt.Errorf("upsert message update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert message update: %w", err)
	}
	if n == 0 {
		return autherr.NewAuthError("integrity validation failed: message %s is already resolved", in.Name)
	}
	return nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
