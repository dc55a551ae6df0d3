package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by AUTHD_SESSION_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// TTL is the fixed session lifetime measured from creation.
	TTL time.Duration `env:"AUTHD_SESSION_TTL" envDefault:"24h"`

	// TokenBytes is the entropy of each opaque session token.
	TokenBytes int `env:"AUTHD_SESSION_TOKEN_BYTES" envDefault:"32"`

	// SweepInterval is how often expired rows are purged. Zero disables the sweeper.
	SweepInterval time.Duration `env:"AUTHD_SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	// Backend selects the Store implementation. Empty means "follow the user store".
	Backend string `env:"AUTHD_SESSION_BACKEND"`
}

// DefaultConfig returns a 24h session lifetime with a 10 minute sweep.
func DefaultConfig() Config {
	return Config{
		TTL:           24 * time.Hour,
		TokenBytes:    32,
		SweepInterval: 10 * time.Minute,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations are Go duration strings):
//   - AUTHD_SESSION_TTL
//   - AUTHD_SESSION_TOKEN_BYTES (32..64)
//   - AUTHD_SESSION_SWEEP_INTERVAL
//   - AUTHD_SESSION_BACKEND (memory|postgres|sqlite|redis)
//
// Returns an error wrapping ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and the backend name.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: AUTHD_SESSION_TTL must be positive", ErrConfig)
	}
	if c.TokenBytes < 32 || c.TokenBytes > 64 {
		return fmt.Errorf("%w: AUTHD_SESSION_TOKEN_BYTES out of range [32..64]", ErrConfig)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%w: AUTHD_SESSION_SWEEP_INTERVAL must not be negative", ErrConfig)
	}
	switch c.Backend {
	case "", BackendMemory, BackendPostgres, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown AUTHD_SESSION_BACKEND %q", ErrConfig, c.Backend)
	}
	return nil
}
