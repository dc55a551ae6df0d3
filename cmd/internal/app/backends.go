package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"authd/cmd/identity"
	"authd/cmd/internal/auth/session"
)

// backends owns every storage handle opened at startup.
//
// Ownership model:
// - backends owns pool, sqlite and redis lifecycles
// - the stores borrow them and never close them
type backends struct {
	users    identity.Store
	sessions session.Store

	pool   *pgxpool.Pool
	sqlite *sql.DB
	redis  *redis.Client
}

func openBackends(ctx context.Context, cfg Config, log *slog.Logger) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	switch cfg.UserStoreBackend() {
	case BackendPostgres:
		b.pool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.users, err = identity.NewPostgresStore(b.pool, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			return nil, err
		}
	case BackendSQLite:
		b.sqlite, err = OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.users, err = identity.NewSQLiteStore(b.sqlite)
		if err != nil {
			return nil, err
		}
	default:
		log.Warn("db.disabled.inmemory_store", "note", "accounts are lost on restart")
		b.users = identity.NewMemoryStore()
	}

	if cfg.AutoMigrate {
		n, err := migrateDB(ctx, b.pool, b.sqlite)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if n > 0 {
			log.Info("db.migrated", "applied", n)
		}
	}

	switch cfg.SessionStoreBackend() {
	case session.BackendPostgres:
		b.sessions = session.NewPostgresStore(b.pool, cfg.DBSchema)
	case session.BackendSQLite:
		b.sessions = session.NewSQLiteStore(b.sqlite)
	case session.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.redis = redis.NewClient(opt)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := b.redis.Ping(pctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: ping: %w", err)
		}
		b.sessions = session.NewRedisStore(b.redis)
	default:
		b.sessions = session.NewMemoryStore()
	}

	log.Info("backends.ready",
		"users", cfg.UserStoreBackend(),
		"sessions", cfg.SessionStoreBackend(),
	)
	return b, nil
}

func (b *backends) dbEnabled() bool {
	return b.pool != nil || b.sqlite != nil
}

// Ready pings every external dependency.
func (b *backends) Ready(ctx context.Context) error {
	if b.pool != nil {
		if err := PingDB(ctx, b.pool, 2*time.Second); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if b.sqlite != nil {
		if err := b.sqlite.PingContext(ctx); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases every handle. Safe on a partially opened set.
func (b *backends) Close() error {
	var errs []error
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.sqlite != nil {
		errs = append(errs, b.sqlite.Close())
	}
	if b.pool != nil {
		b.pool.Close()
	}
	return errors.Join(errs...)
}
