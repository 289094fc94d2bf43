// Package challenge defines the per-challenge-type strategy interface and the
// built-in handlers: password proof, digital signature, secure remote
// password, and off-channel OTP.
//
// # Contract
//
// A [Handler] drives its challenge one message at a time. DraftNextMessage
// receives the processed messages so far and returns the next message to
// persist, or nil once the declared sequence is complete. ValidateResponse
// judges the client's answer to the pending message and returns a resolved
// [Status]: ok, or an error status carrying a stable reason code.
//
// Handlers are stateless. Everything a later message needs from an earlier
// one travels through the persisted request/expected/response payloads, so a
// challenge survives process restarts mid-flight.
//
// # Architecture boundaries
//
// Handlers read account attributes through the opaque [FieldLookup]
// collaborator and delegate cryptography to opaque collaborators
// ([Verifier], [Exchanger], [Comparer]). They never touch storage — the
// engine persists drafts and verdicts.
//
// # What this package must NOT do
//
//   - Import goAuthFlow or internal/stores.
//   - Hold per-challenge state in memory between calls.
//   - Place secrets in request payloads: request is sent to the client,
//     expected stays server-side.
package challenge
