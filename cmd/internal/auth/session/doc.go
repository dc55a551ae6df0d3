// Package session implements server-side login sessions.
//
// A session is an opaque random token held by the client (in a cookie) and a
// row keyed by the token's hash held by the server. Tokens are hashed with
// cmd/security/token (HMAC-SHA256 when AUTHD_TOKEN_HMAC_KEY is set, SHA-256
// otherwise), so a leaked session table cannot be replayed.
//
// Sessions expire a fixed TTL after creation. Expired rows are rejected lazily
// on Resolve and removed in bulk by the sweeper.
package session
