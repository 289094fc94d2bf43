package autherr

import (
	"errors"
	"fmt"
)

// EntityNotFoundError reports that a requested entity does not exist.
//
// Entity names the entity kind ("AuthSession", "AuthChallenge", ...), KeyName
// the identifying column, Key the value that failed to resolve.
type EntityNotFoundError struct {
	Entity  string
	KeyName string
	Key     string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %q not found", e.Entity, e.KeyName, e.Key)
}

// NewEntityNotFound builds an [EntityNotFoundError].
func NewEntityNotFound(entity, keyName, key string) *EntityNotFoundError {
	return &EntityNotFoundError{Entity: entity, KeyName: keyName, Key: key}
}

// AuthError reports an integrity or state violation: the requested transition
// is illegal given the persisted state at write time.
type AuthError struct {
	msg string
}

func (e *AuthError) Error() string {
	return e.msg
}

// NewAuthError builds an [AuthError] with a formatted message.
func NewAuthError(format string, args ...any) *AuthError {
	return &AuthError{msg: fmt.Sprintf(format, args...)}
}

// InvalidArgError reports malformed caller input.
type InvalidArgError struct {
	msg string
}

func (e *InvalidArgError) Error() string {
	return e.msg
}

// NewInvalidArg builds an [InvalidArgError] with a formatted message.
func NewInvalidArg(format string, args ...any) *InvalidArgError {
	return &InvalidArgError{msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is (or wraps) an [EntityNotFoundError].
func IsNotFound(err error) bool {
	var target *EntityNotFoundError
	return errors.As(err, &target)
}

// IsAuth reports whether err is (or wraps) an [AuthError].
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsInvalidArg reports whether err is (or wraps) an [InvalidArgError].
func IsInvalidArg(err error) bool {
	var target *InvalidArgError
	return errors.As(err, &target)
}
