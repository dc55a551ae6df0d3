package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the subset of *pgxpool.Pool used by PostgresStore.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db    PgxQuerier
	table string
}

// NewPostgresStore creates a Postgres-backed session store over schema.sessions.
// An empty schema means "public".
func NewPostgresStore(db PgxQuerier, schema string) *PostgresStore {
	if schema == "" {
		schema = "public"
	}
	return &PostgresStore{db: db, table: pgx.Identifier{schema, "sessions"}.Sanitize()}
}

var _ Store = (*PostgresStore)(nil)

// ErrUnknownUser is returned by Create when the referenced user does not exist.
var ErrUnknownUser = errors.New("session: unknown user")

func (s *PostgresStore) Create(ctx context.Context, row Row) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table+` (token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		row.TokenHash, row.UserID, row.CreatedAt, row.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrUnknownUser
		}
		return fmt.Errorf("session.Create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tokenHash string) (Row, error) {
	var row Row
	err := s.db.QueryRow(ctx,
		`SELECT token_hash, user_id, created_at, expires_at
		   FROM `+s.table+`
		  WHERE token_hash = $1`,
		tokenHash,
	).Scan(&row.TokenHash, &row.UserID, &row.CreatedAt, &row.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("session.Get: %w", err)
	}
	row.CreatedAt = row.CreatedAt.UTC()
	row.ExpiresAt = row.ExpiresAt.UTC()
	return row, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("session.Delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM `+s.table+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("session.DeleteExpired: %w", err)
	}
	return tag.RowsAffected(), nil
}
