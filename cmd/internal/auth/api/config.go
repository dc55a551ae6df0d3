package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config controls auth API behavior and cookie transport.
type Config struct {
	// Prefix is prepended to every auth route, e.g. "/api".
	Prefix string `env:"AUTHD_API_PREFIX"`

	TrustProxy   bool  `env:"AUTHD_TRUST_PROXY" envDefault:"false"`
	MaxBodyBytes int64 `env:"AUTHD_MAX_BODY_BYTES" envDefault:"1048576"`

	CookieName     string `env:"AUTHD_COOKIE_NAME" envDefault:"authd_session"`
	CookiePath     string `env:"AUTHD_COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"AUTHD_COOKIE_DOMAIN"`
	CookieSecure   bool   `env:"AUTHD_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"AUTHD_COOKIE_SAMESITE" envDefault:"strict"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20,
		CookieName:     "authd_session",
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: "strict",
	}
}

// LoadConfigFromEnv loads auth API config from environment variables.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("auth api config: %w", err)
	}
	cfg.Prefix = normalizePrefix(cfg.Prefix)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cookie settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CookieName) == "" {
		return errors.New("AUTHD_COOKIE_NAME must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("AUTHD_MAX_BODY_BYTES must be positive")
	}
	ss, err := parseSameSite(c.CookieSameSite)
	if err != nil {
		return err
	}
	if ss == http.SameSiteNoneMode && !c.CookieSecure {
		return errors.New("AUTHD_COOKIE_SAMESITE=none requires AUTHD_COOKIE_SECURE=true")
	}
	return nil
}

func (c Config) sameSite() http.SameSite {
	ss, err := parseSameSite(c.CookieSameSite)
	if err != nil {
		return http.SameSiteStrictMode
	}
	return ss
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("AUTHD_COOKIE_SAMESITE: invalid value %q (strict|lax|none)", s)
	}
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
