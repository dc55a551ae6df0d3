// Package token provides session-token hashing primitives for authd.
//
// It is the single source of truth for how opaque session tokens are turned
// into the value persisted server-side.
//
// Modes:
// - Default dev mode: SHA-256(token) when no HMAC key is configured.
// - Keyed mode: HMAC-SHA256(token, key) when AUTHD_TOKEN_HMAC_KEY is set.
// - Output is always a 64-char hex string, suitable for fixed-length storage
//   and constant-time comparison.
//
// Policy:
//   - If AUTHD_REQUIRE_TOKEN_HMAC=true, the app refuses to start unless the key
//     is present and at least 32 bytes long (see app.ValidateSecurityConfig).
package token
