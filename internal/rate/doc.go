// Package rate provides the Redis-backed attempt limiter guarding response
// submission. Counters use fixed-window semantics keyed by
// (sessionID, challengeID), so a client brute-forcing one challenge cannot
// starve unrelated sessions.
//
// # What this package must NOT do
//
//   - Import goAuthFlow or any sibling internal package.
//   - Make authentication decisions — it only answers "within budget?".
package rate
