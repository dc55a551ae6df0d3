package dbmigrate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUp_SQLite_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	n, err := Up(ctx, db, SQLite)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Up(ctx, db, SQLite)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'sessions')`,
	).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestStatus_SQLite(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	st, err := Status(ctx, db, SQLite)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.False(t, st[0].Applied)

	_, err = Up(ctx, db, SQLite)
	require.NoError(t, err)

	st, err = Status(ctx, db, SQLite)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.True(t, st[0].Applied)
	assert.Equal(t, int64(1), st[0].Version)
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"pgx": Postgres, "PostgreSQL": Postgres, "sqlite3": SQLite} {
		got, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDialect("mysql")
	assert.Error(t, err)
}
