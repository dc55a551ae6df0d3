package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store over a SQLite database opened with the
// modernc.org/sqlite driver. The *sql.DB is owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.db == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	u, err := prepareUser(op, in)
	if err != nil {
		return User{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, email_norm, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.EmailNorm, u.PasswordHash, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	// Round-trip precision matches what a later read returns.
	u.CreatedAt = time.UnixMilli(u.CreatedAt.UnixMilli()).UTC()
	return u, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if s == nil || s.db == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	return s.getOne(ctx, op, `email_norm = ?`, NormalizeEmail(email))
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if s == nil || s.db == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	return s.getOne(ctx, op, `id = ?`, strings.TrimSpace(id))
}

func (s *SQLiteStore) getOne(ctx context.Context, op, where string, arg any) (User, error) {
	var (
		u         User
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, email_norm, password_hash, created_at FROM users WHERE `+where,
		arg,
	).Scan(&u.ID, &u.Email, &u.EmailNorm, &u.PasswordHash, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return u, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
