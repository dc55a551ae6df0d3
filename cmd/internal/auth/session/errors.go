package session

import "errors"

var (
	// ErrSessionNotFound is returned when a token does not match any live session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
