package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over a migrated SQLite database.
// Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database; the caller owns db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) Create(ctx context.Context, row Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		row.TokenHash, row.UserID, row.CreatedAt.UnixMilli(), row.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return ErrUnknownUser
		}
		return fmt.Errorf("session.Create: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, tokenHash string) (Row, error) {
	var (
		row                Row
		createdMs, expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, created_at, expires_at FROM sessions WHERE token_hash = ?`,
		tokenHash,
	).Scan(&row.TokenHash, &row.UserID, &createdMs, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("session.Get: %w", err)
	}
	row.CreatedAt = time.UnixMilli(createdMs).UTC()
	row.ExpiresAt = time.UnixMilli(expires).UTC()
	return row, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("session.Delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("session.DeleteExpired: %w", err)
	}
	return res.RowsAffected()
}
