// Package password implements password hashing and comparison with Argon2id
// defaults. It is the opaque field-value transform consumed by the Password
// challenge handler.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The salt travels inside the encoded string, so a stored field value is a
// single opaque token.
//
// # Architecture boundaries
//
// This package owns hashing and comparison only. Which account fields hold
// hashes, and when comparison runs, is decided by the challenge handlers.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other goAuthFlow package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
