// Package flows contains pure-function orchestrators for the challenge
// message driver and the batched upsert action.
//
// Each flow function accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. This design enables
// exhaustive unit testing with mock dependencies and keeps the Engine type
// thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the stores and to the challenge handler
// of the current challenge type. They do NOT own any of these resources —
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthFlow (to avoid import cycles).
//   - Perform I/O directly — all I/O is mediated through dependency funcs.
package flows
