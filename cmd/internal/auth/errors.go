package auth

import (
	"errors"
	"fmt"
)

// Sentinel outcomes of the auth operations. The HTTP layer maps each to one
// status code and error code.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("store unavailable")
)

// InputError explains which field failed validation. Msg is safe to show to clients.
type InputError struct {
	Field string
	Msg   string
}

func (e InputError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidInput, e.Field, e.Msg)
}

func (e InputError) Unwrap() error { return ErrInvalidInput }

// LoginFailure carries the internal reason a login was refused. Reason is for
// audit logs only; clients see ErrInvalidCredentials regardless of it.
type LoginFailure struct {
	Reason string
}

func (e LoginFailure) Error() string {
	return fmt.Sprintf("%v (%s)", ErrInvalidCredentials, e.Reason)
}

func (e LoginFailure) Unwrap() error { return ErrInvalidCredentials }

// Login failure reasons.
const (
	ReasonUnknownEmail  = "unknown_email"
	ReasonWrongPassword = "wrong_password"
	ReasonBadHash       = "bad_stored_hash"
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
