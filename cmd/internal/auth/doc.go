// Package auth orchestrates registration, login, logout and request
// authorization on top of the credential store, the password hasher and the
// session service. It owns the mapping from store and hasher failures to the
// small set of outcomes in errors.go.
package auth
