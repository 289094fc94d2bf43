package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

// DefStore reads the immutable account_def_auth_challenge table. Defs are
// installed with the account schema and never mutated afterwards; Seed exists
// for integrators and tests.
type DefStore struct {
	db *DB
}

// NewDefStore returns a DefStore over db.
func NewDefStore(db *DB) *DefStore {
	return &DefStore{db: db}
}

// Seed installs a challenge def. The challenge type must declare a message
// sequence. Re-seeding an identical declaration is a no-op; defs are immutable
// once installed, so a conflicting redefinition is rejected.
func (s *DefStore) Seed(ctx context.Context, challengeID string, accountVersion uint32, challengeType string, parameters []byte) error {
	if !internal.KnownChallengeType(challengeType) {
		return autherr.NewInvalidArg("unknown challenge type %q", challengeType)
	}
	if len(parameters) == 0 {
		parameters = []byte("{}")
	}

	return s.db.withTx(ctx, func(q querier) error {
		existing, err := s.get(ctx, q, challengeID, accountVersion)
		if err != nil && !autherr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			if existing.ChallengeType == challengeType && string(existing.Parameters) == string(parameters) {
				return nil
			}
			return autherr.NewAuthError(
				"challenge def %s at account version %d is already declared with a different type or parameters",
				challengeID, accountVersion)
		}

		_, err = s.db.exec(ctx, q, `
			INSERT INTO account_def_auth_challenge (challenge_id, account_version, challenge_type, challenge_parameters)
			VALUES (?, ?, ?, ?)`,
			challengeID, accountVersion, challengeType, string(parameters))
		if err != nil {
			return fmt.Errorf("seed challenge def: %w", err)
		}
		return nil
	})
}

// Get resolves one def by (challengeID, accountVersion).
func (s *DefStore) Get(ctx context.Context, challengeID string, accountVersion uint32) (*DefRecord, error) {
	return s.get(ctx, s.db.sql, challengeID, accountVersion)
}

func (s *DefStore) get(ctx context.Context, q querier, challengeID string, accountVersion uint32) (*DefRecord, error) {
	def := DefRecord{ChallengeID: challengeID, AccountVersion: accountVersion}
	var params string

	err := s.db.queryRow(ctx, q, `
		SELECT challenge_type, challenge_parameters
		FROM account_def_auth_challenge
		WHERE challenge_id = ? AND account_version = ?`,
		challengeID, accountVersion).Scan(&def.ChallengeType, &params)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autherr.NewEntityNotFound("AccountDefAuthChallenge", "challengeId", challengeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge def: %w", err)
	}

	def.Parameters = []byte(params)
	def.Sequence = internal.MessageSequence(def.ChallengeType)
	return &def, nil
}

// ListByAccountVersion returns every def declared for an account version.
// FinishSession uses this to check that all declared challenges succeeded.
func (s *DefStore) ListByAccountVersion(ctx context.Context, accountVersion uint32) ([]DefRecord, error) {
	return s.listByAccountVersion(ctx, s.db.sql, accountVersion)
}

func (s *DefStore) listByAccountVersion(ctx context.Context, q querier, accountVersion uint32) ([]DefRecord, error) {
	rows, err := s.db.query(ctx, q, `
		SELECT challenge_id, challenge_type, challenge_parameters
		FROM account_def_auth_challenge
		WHERE account_version = ?
		ORDER BY challenge_id`,
		accountVersion)
	if err != nil {
		return nil, fmt.Errorf("list challenge defs: %w", err)
	}
	defer rows.Close()

	var defs []DefRecord
	for rows.Next() {
		def := DefRecord{AccountVersion: accountVersion}
		var params string
		if err := rows.Scan(&def.ChallengeID, &def.ChallengeType, &params); err != nil {
			return nil, fmt.Errorf("scan challenge def: %w", err)
		}
		def.Parameters = []byte(params)
		def.Sequence = internal.MessageSequence(def.ChallengeType)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
