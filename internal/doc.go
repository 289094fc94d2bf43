// Package internal contains helper utilities that are intentionally private to
// goAuthFlow: secure random generation for identifiers and nonces, and the
// canonical message-name sequence for each challenge type.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function orchestrators for the handler driver and batch upsert
//   - rate — Redis-backed attempt limiting for response submission
//   - stores — SQL persistence with conditional-write integrity enforcement
//
// The message-sequence catalog lives here so that internal/stores and the
// public challenge package can agree on it without an import cycle through
// the root package.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthFlow API.
//   - Be imported by any package outside the goAuthFlow module.
package internal
