// Package password provides password hashing and verification for authd.
//
// Two encodings are supported:
//   - bcrypt ($2a$/$2b$/$2y$), the default for new hashes
//   - Argon2id in PHC form ($argon2id$v=19$m=..,t=..,p=..$salt$hash)
//
// Verify dispatches on the stored prefix, so hashes written under one algorithm keep
// verifying after the configured algorithm changes.
//
// Security notes:
//   - Hash strings are treated as untrusted input during Verify.
//   - Verification refuses hashes whose cost parameters exceed reasonable bounds.
package password
