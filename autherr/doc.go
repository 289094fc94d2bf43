// Package autherr defines the error taxonomy shared by every goAuthFlow layer.
//
// # Taxonomy
//
//   - [EntityNotFoundError] — a requested session, challenge, message, or
//     challenge def does not exist. Never conflated with a state violation.
//   - [InvalidArgError] — caller-supplied input is malformed (shape, ordering,
//     status string). Raised before any storage mutation where feasible.
//   - [AuthError] — the requested transition is illegal given current
//     persisted state. Raised after a conditional write affected zero rows,
//     so the check is race-proof rather than read-then-assume.
//
// # Architecture boundaries
//
// This package owns error types and nothing else. Translating affected-row
// counts into errors is the job of internal/stores; deciding which errors a
// caller may retry is the caller's job.
//
// # What this package must NOT do
//
//   - Import any other goAuthFlow package.
//   - Carry storage or crypto detail in error state.
package autherr
