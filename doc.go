// Package goAuthFlow implements the server side of a multi-step, challenge-based
// login protocol: a session walks an ordered set of challenges, each challenge
// an ordered sequence of messages, and every transition is enforced against
// the SQL store with conditional writes rather than in-process state.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build], and safe across multiple server instances sharing one
// database — row locks and affected-row checks do the serialization.
//
// # Architecture boundaries
//
// goAuthFlow is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Session, Challenge, Message, UpsertRequest). All internal
// coordination — SQL persistence, the handler driver, batch validation,
// attempt limiting, audit dispatch — lives under internal/ and is never
// exported. Challenge strategies live in the public challenge package.
//
// # What this package must NOT do
//
//   - Expose database handles, internal stores, or SQL detail in its public API.
//   - Hold a row lock across a call to a handler or crypto collaborator.
//   - Cache session/challenge/message state between calls.
package goAuthFlow
