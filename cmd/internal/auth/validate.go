package auth

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"authd/cmd/security/password"
)

// emailRe is a syntactic check only: something@something.tld with no spaces.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxEmailLen = 254

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) <= maxEmailLen && emailRe.MatchString(s)
}

// passwordInputError maps password policy errors to client-facing messages.
// It returns nil for errors that are not policy violations.
func passwordInputError(err error, minLen int) error {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		return InputError{Field: "password", Msg: "password must be at least " + strconv.Itoa(minLen) + " characters"}
	case errors.Is(err, password.ErrPasswordTooLong):
		return InputError{Field: "password", Msg: "password is too long"}
	case errors.Is(err, password.ErrWeakPassword):
		return InputError{Field: "password", Msg: "password is too weak"}
	default:
		return nil
	}
}
