package session

import (
	"context"
	"time"
)

// Row is the server-side record of a session. The plain token is never stored.
type Row struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the row is no longer valid at now.
func (r Row) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store abstracts persistence for session rows.
type Store interface {
	// Create inserts a new row.
	Create(ctx context.Context, row Row) error

	// Get loads a row by token hash. Missing rows return ErrSessionNotFound.
	// Implementations may return expired rows; the Service decides validity.
	Get(ctx context.Context, tokenHash string) (Row, error)

	// Delete removes a row. Deleting a missing row is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes every row expired at now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
