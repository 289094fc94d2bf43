// Package stores provides SQL-backed persistence for the session → challenge
// → message state machine, with every invariant enforced against the database
// rather than in-process state.
//
// # Design
//
// Each mutation is a conditional INSERT or UPDATE whose WHERE clause encodes
// the legality of the transition (owner still Pending, status still null,
// sequence position correct). A zero affected-row count is translated into an
// integrity error, so lost updates surface as explicit failures instead of
// silent corruption. Multi-step operations lock the session row first (and
// the challenge row where it exists) via the dialect's SELECT ... FOR UPDATE,
// always in that order, and commit all-or-nothing.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT draft
// message payloads, validate responses, or compute batch outcomes — those
// responsibilities belong to the challenge handlers and internal/flows.
//
// # What this package must NOT do
//
//   - Import goAuthFlow or any sibling internal package other than internal
//     itself (for the message-sequence catalog).
//   - Hold a row lock across a call to any external collaborator.
//   - Cache entity state between calls — every read re-derives truth from
//     the store.
package stores
