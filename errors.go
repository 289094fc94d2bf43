package goAuthFlow

import (
	"errors"

	"github.com/MrEthical07/goAuthFlow/autherr"
)

// The three caller-facing error kinds. Callers distinguish "this id does not
// exist" (EntityNotFoundError), "retry with corrected input"
// (InvalidArgError), and "this session/challenge is already in another state"
// (AuthError) with errors.As or the Is helpers.
type (
	// EntityNotFoundError reports a missing session, challenge, message, or def.
	EntityNotFoundError = autherr.EntityNotFoundError
	// AuthError reports an integrity or state violation.
	AuthError = autherr.AuthError
	// InvalidArgError reports malformed caller input.
	InvalidArgError = autherr.InvalidArgError
)

var (
	// ErrEngineNotReady is returned when an Engine method runs before Build
	// wired its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNoHandler is returned when no handler is registered for the
	// challenge type the def declares.
	ErrNoHandler = errors.New("no handler registered for challenge type")
	// ErrSubmitRateLimited is returned when a challenge's response-attempt
	// budget is spent.
	ErrSubmitRateLimited = errors.New("response submission rate limited")
	// ErrStoreUnavailable is returned when the database rejects an operation
	// for reasons other than integrity.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// IsNotFound reports whether err is (or wraps) an [EntityNotFoundError].
func IsNotFound(err error) bool { return autherr.IsNotFound(err) }

// IsAuthError reports whether err is (or wraps) an [AuthError].
func IsAuthError(err error) bool { return autherr.IsAuth(err) }

// IsInvalidArg reports whether err is (or wraps) an [InvalidArgError].
func IsInvalidArg(err error) bool { return autherr.IsInvalidArg(err) }
