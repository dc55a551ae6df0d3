// Package identity is the credential store for authd.
//
// It owns the User record, email normalization, and the Store boundary with its
// Postgres, SQLite and in-memory implementations. Uniqueness of the normalized
// email is decided by the store, never by a read-then-write in callers.
package identity
