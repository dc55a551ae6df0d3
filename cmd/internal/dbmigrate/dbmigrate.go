// Package dbmigrate applies the embedded schema migrations for each supported
// SQL dialect.
package dbmigrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationsFS embed.FS

// Dialect names a supported SQL backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect accepts the backend names used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("dbmigrate: unsupported dialect %q", s)
	}
}

// MigrationState is one row of Status output.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

func newProvider(db *sql.DB, d Dialect) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("dbmigrate: nil db")
	}

	var gd goose.Dialect
	switch d {
	case Postgres:
		gd = goose.DialectPostgres
	case SQLite:
		gd = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("dbmigrate: unsupported dialect %q", d)
	}

	sub, err := fs.Sub(migrationsFS, string(d))
	if err != nil {
		return nil, fmt.Errorf("dbmigrate: %w", err)
	}
	return goose.NewProvider(gd, db, sub)
}

// Up applies all pending migrations and returns how many ran.
func Up(ctx context.Context, db *sql.DB, d Dialect) (int, error) {
	p, err := newProvider(db, d)
	if err != nil {
		return 0, err
	}
	res, err := p.Up(ctx)
	if err != nil {
		return len(res), fmt.Errorf("dbmigrate: up: %w", err)
	}
	return len(res), nil
}

// Status reports every known migration and whether it has been applied.
func Status(ctx context.Context, db *sql.DB, d Dialect) ([]MigrationState, error) {
	p, err := newProvider(db, d)
	if err != nil {
		return nil, err
	}
	st, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("dbmigrate: status: %w", err)
	}

	out := make([]MigrationState, 0, len(st))
	for _, s := range st {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
