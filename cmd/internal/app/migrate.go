package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"

	"authd/cmd/internal/dbmigrate"
)

// ErrNoDatabase is returned by the migrate commands when neither
// AUTHD_DATABASE_URL nor AUTHD_SQLITE_PATH is configured.
var ErrNoDatabase = errors.New("no database configured (set AUTHD_DATABASE_URL or AUTHD_SQLITE_PATH)")

// openMigrationDB opens the configured SQL database as *sql.DB for goose.
func openMigrationDB(ctx context.Context, cfg Config) (*sql.DB, dbmigrate.Dialect, func(), error) {
	switch cfg.UserStoreBackend() {
	case BackendPostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, "", nil, fmt.Errorf("postgres: %w", err)
		}
		db := stdlib.OpenDBFromPool(pool)
		return db, dbmigrate.Postgres, func() { _ = db.Close(); pool.Close() }, nil
	case BackendSQLite:
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", nil, err
		}
		return db, dbmigrate.SQLite, func() { _ = db.Close() }, nil
	default:
		return nil, "", nil, ErrNoDatabase
	}
}

// MigrateUp applies pending migrations and returns how many ran.
func MigrateUp(ctx context.Context, cfg Config) (int, error) {
	db, dialect, closeFn, err := openMigrationDB(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return dbmigrate.Up(ctx, db, dialect)
}

// MigrateStatus lists every known migration with its applied state.
func MigrateStatus(ctx context.Context, cfg Config) ([]dbmigrate.MigrationState, error) {
	db, dialect, closeFn, err := openMigrationDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return dbmigrate.Status(ctx, db, dialect)
}
