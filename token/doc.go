// Package token issues and verifies the signed proof a caller receives when
// a session finishes with every challenge succeeded.
//
// Tokens are standard JWTs signed with Ed25519 (default) or HS256. The proof
// carries the session id as subject plus the account id and schema version,
// so downstream services can accept a finished login without re-reading the
// session store.
//
// # What this package must NOT do
//
//   - Touch the session store — the Engine decides when a proof is earned.
//   - Import any other goAuthFlow package.
package token
