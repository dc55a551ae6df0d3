package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"authd/cmd/internal/auth/session"
)

// User store backends accepted by AUTHD_USER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"AUTHD_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"AUTHD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"AUTHD_LOG_FORMAT" envDefault:"json"`
	LogColor  bool   `env:"AUTHD_LOG_COLOR" envDefault:"false"`

	ReadHeaderTimeout time.Duration `env:"AUTHD_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"AUTHD_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"AUTHD_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"AUTHD_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"AUTHD_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"AUTHD_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// UserBackend picks the user store. Empty selects postgres when
	// DatabaseURL is set, sqlite when SQLitePath is set, memory otherwise.
	UserBackend string `env:"AUTHD_USER_BACKEND"`

	DatabaseURL string `env:"AUTHD_DATABASE_URL"`
	DBSchema    string `env:"AUTHD_DB_SCHEMA" envDefault:"public"`
	DBMaxConns  int32  `env:"AUTHD_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"AUTHD_DB_MIN_CONNS" envDefault:"0"`
	SQLitePath  string `env:"AUTHD_SQLITE_PATH"`
	AutoMigrate bool   `env:"AUTHD_AUTO_MIGRATE" envDefault:"true"`

	RedisURL string `env:"AUTHD_REDIS_URL"`

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool `env:"AUTHD_READINESS_REQUIRE_DB" envDefault:"false"`

	// If true, AUTHD_TOKEN_HMAC_KEY must be set (>= 32 bytes) and session
	// token hashing must be HMAC-based.
	RequireTokenHMAC bool `env:"AUTHD_REQUIRE_TOKEN_HMAC" envDefault:"false"`

	CORSAllowedOrigins   []string `env:"AUTHD_CORS_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"AUTHD_CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	CORSMaxAgeSeconds    int      `env:"AUTHD_CORS_MAX_AGE" envDefault:"600"`

	StaticDir string `env:"AUTHD_STATIC_DIR"`

	RegisterAutoLogin bool `env:"AUTHD_REGISTER_AUTO_LOGIN" envDefault:"false"`

	SeedAdminEmail    string `env:"AUTHD_SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `env:"AUTHD_SEED_ADMIN_PASSWORD"`

	Session session.Config
}

// LoadConfig reads optional .env files, then parses Config from the environment.
func LoadConfig() (Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.UserBackend = strings.ToLower(strings.TrimSpace(c.UserBackend))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}

// UserStoreBackend resolves the effective user store backend.
func (c Config) UserStoreBackend() string {
	switch {
	case c.UserBackend != "":
		return c.UserBackend
	case c.DatabaseURL != "":
		return BackendPostgres
	case c.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendMemory
	}
}

// SessionStoreBackend resolves the effective session store backend. Unless
// set explicitly, sessions live next to users.
func (c Config) SessionStoreBackend() string {
	if c.Session.Backend != "" {
		return c.Session.Backend
	}
	return c.UserStoreBackend()
}

// Validate checks backend selection and value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: AUTHD_HTTP_ADDR must not be empty")
	}
	switch c.LogFormat {
	case "", "json", "text", "pretty":
	default:
		return fmt.Errorf("config: AUTHD_LOG_FORMAT: invalid value %q (json|text|pretty)", c.LogFormat)
	}

	users := c.UserStoreBackend()
	switch users {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: postgres user backend requires AUTHD_DATABASE_URL")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: sqlite user backend requires AUTHD_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("config: unknown AUTHD_USER_BACKEND %q", c.UserBackend)
	}

	if err := c.Session.Validate(); err != nil {
		return err
	}
	sessions := c.SessionStoreBackend()
	switch sessions {
	case session.BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: redis session backend requires AUTHD_REDIS_URL")
		}
	case session.BackendMemory:
	default:
		// SQL session tables reference users, so they must share the user database.
		if sessions != users {
			return fmt.Errorf("config: session backend %q requires the %s user backend", sessions, sessions)
		}
	}

	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return errors.New("config: AUTHD_DB_MIN_CONNS must be within 0..AUTHD_DB_MAX_CONNS")
	}
	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		return errors.New("config: AUTHD_SEED_ADMIN_EMAIL and AUTHD_SEED_ADMIN_PASSWORD must be set together")
	}
	return nil
}
