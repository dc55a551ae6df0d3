package app

import (
	"errors"

	"authd/cmd/security/token"
)

// ValidateSecurityConfig enforces the token hashing policy at startup.
//
// Fail-fast: with AUTHD_REQUIRE_TOKEN_HMAC=true the server refuses to start
// rather than fall back to plain SHA-256 session token hashing.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: AUTHD_REQUIRE_TOKEN_HMAC=true but AUTHD_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: AUTHD_REQUIRE_TOKEN_HMAC=true but AUTHD_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: AUTHD_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
