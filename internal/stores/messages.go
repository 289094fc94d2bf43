package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

// ValidStatusMsg reports whether statusMsg is "Ok" or "Error:<reason>".
func ValidStatusMsg(statusMsg string) bool {
	return internal.ValidStatusMsg(statusMsg)
}

// MessageStore persists auth_challenge_message rows. Messages are strictly
// sequenced within their challenge and their response/status is write-once;
// both properties are re-verified under lock at write time.
type MessageStore struct {
	db         *DB
	sessions   *SessionStore
	challenges *ChallengeStore
}

// NewMessageStore returns a MessageStore over db.
func NewMessageStore(db *DB, sessions *SessionStore, challenges *ChallengeStore) *MessageStore {
	return &MessageStore{db: db, sessions: sessions, challenges: challenges}
}

// All returns every message of a challenge in creation order. Read-only; no
// def validation.
func (s *MessageStore) All(ctx context.Context, sessionID, challengeID string) ([]MessageRecord, error) {
	return s.all(ctx, s.db.sql, sessionID, challengeID)
}

func (s *MessageStore) all(ctx context.Context, q querier, sessionID, challengeID string) ([]MessageRecord, error) {
	rows, err := s.db.query(ctx, q, `
		SELECT seq, message_name, request, expected, response, status_msg, created_at
		FROM auth_challenge_message
		WHERE session_id = ? AND challenge_id = ?
		ORDER BY seq`,
		sessionID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []MessageRecord
	for rows.Next() {
		rec := MessageRecord{SessionID: sessionID, ChallengeID: challengeID}
		var request, expected string
		var response, statusMsg sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.Seq, &rec.Name, &request, &expected, &response, &statusMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		rec.Request = []byte(request)
		rec.Expected = []byte(expected)
		if response.Valid {
			rec.Response = []byte(response.String)
		}
		rec.StatusMsg = statusMsg.String
		rec.CreatedAt = time.Unix(0, createdAt)
		messages = append(messages, rec)
	}
	return messages, rows.Err()
}

// Create inserts a pending message. The name must be declared by the
// challenge def and must be exactly the next unprocessed name in sequence:
// every earlier message resolved Ok, no pending message outstanding, no
// skipping ahead. The Pending ancestry is verified under lock.
func (s *MessageStore) Create(ctx context.Context, sessionID, challengeID, name string, request, expected, response []byte) (*MessageRecord, error) {
	var rec *MessageRecord

	err := s.db.withTx(ctx, func(q querier) error {
		session, err := s.sessions.get(ctx, q, sessionID, true)
		if err != nil {
			return err
		}
		challenge, err := s.challenges.get(ctx, q, sessionID, challengeID, true)
		if err != nil {
			return err
		}

		pos := indexOf(challenge.Def.Sequence, name)
		if pos < 0 {
			return autherr.NewInvalidArg("message %q is not appropriate for the challenge", name)
		}
		if session.Outcome != OutcomePending {
			return autherr.NewAuthError("session %s is not pending", sessionID)
		}
		if challenge.Outcome != OutcomePending {
			return autherr.NewAuthError("challenge %s is not pending", challengeID)
		}

		existing, err := s.all(ctx, q, sessionID, challengeID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if !m.Resolved() {
				return autherr.NewAuthError(
					"message sequence integrity violation: message %s is still pending", m.Name)
			}
			if !m.Ok() {
				return autherr.NewAuthError(
					"message sequence integrity violation: message %s already failed", m.Name)
			}
		}
		if pos != len(existing) {
			return autherr.NewAuthError(
				"message sequence integrity violation: expected message %q next, got %q",
				challenge.Def.Sequence[len(existing)], name)
		}

		now := time.Now()
		var responseArg any
		if response != nil {
			responseArg = string(response)
		}
		res, err := s.db.exec(ctx, q, `
			INSERT INTO auth_challenge_message
				(session_id, challenge_id, message_name, request, expected, response, status_msg, created_at)
			VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
			sessionID, challengeID, name, string(request), string(expected), responseArg, now.UnixNano())
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			// Not every driver reports the autoincrement id; ordering still
			// holds, the in-memory Seq is just left zero.
			seq = 0
		}

		rec = &MessageRecord{
			Seq:         seq,
			SessionID:   sessionID,
			ChallengeID: challengeID,
			Name:        name,
			Request:     request,
			Expected:    expected,
			Response:    response,
			CreatedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateResponseAndStatus resolves a pending message: write-once on the
// status, conditioned on the message still being pending and its challenge
// and session still being Pending, all re-verified at write time. A non-Ok
// status cascades an abort onto the owning challenge in the same transaction.
func (s *MessageStore) UpdateResponseAndStatus(ctx context.Context, sessionID, challengeID, name string, response []byte, statusMsg string) error {
	if !ValidStatusMsg(statusMsg) {
		return autherr.NewInvalidArg("statusMsg is malformed: %q", statusMsg)
	}

	return s.db.withTx(ctx, func(q querier) error {
		var responseArg any
		if response != nil {
			responseArg = string(response)
		}
		res, err := s.db.exec(ctx, q, `
			UPDATE auth_challenge_message SET response = ?, status_msg = ?
			WHERE session_id = ? AND challenge_id = ? AND message_name = ?
			AND status_msg IS NULL
			AND EXISTS (
				SELECT 1 FROM auth_challenge
				WHERE session_id = ? AND challenge_id = ? AND outcome = ?
			)
			AND EXISTS (
				SELECT 1 FROM auth_session WHERE session_id = ? AND outcome = ?
			)`,
			responseArg, statusMsg,
			sessionID, challengeID, name,
			sessionID, challengeID, OutcomePending,
			sessionID, OutcomePending)
		if err != nil {
			return fmt.Errorf("update message status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update message status: %w", err)
		}
		if n == 0 {
			return s.diagnoseUpdateFailure(ctx, q, sessionID, challengeID, name)
		}

		if statusMsg != StatusOk {
			// Best-effort cascade, same Pending guard. The guards above just
			// saw the challenge Pending inside this transaction, so a zero-row
			// result here cannot happen on a serializable store; tolerate it
			// anyway.
			if err := s.challenges.updateOutcome(ctx, q, sessionID, challengeID, OutcomeAborted); err != nil {
				if !autherr.IsAuth(err) {
					return err
				}
			}
		}
		return nil
	})
}

// diagnoseUpdateFailure distinguishes why the conditional update wrote
// nothing: missing row, write-once conflict, or non-Pending ancestry.
func (s *MessageStore) diagnoseUpdateFailure(ctx context.Context, q querier, sessionID, challengeID, name string) error {
	var statusMsg sql.NullString
	err := s.db.queryRow(ctx, q, `
		SELECT status_msg FROM auth_challenge_message
		WHERE session_id = ? AND challenge_id = ? AND message_name = ?`,
		sessionID, challengeID, name).Scan(&statusMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return autherr.NewEntityNotFound("AuthChallengeMessage", "messageName", name)
	}
	if err != nil {
		return fmt.Errorf("diagnose message update: %w", err)
	}
	if statusMsg.Valid {
		return autherr.NewAuthError("refusing to update message status: message %s is already resolved", name)
	}
	return autherr.NewAuthError("challenge %s is not pending (or its session is not pending)", challengeID)
}

func indexOf(seq []string, name string) int {
	for i, s := range seq {
		if s == name {
			return i
		}
	}
	return -1
}
