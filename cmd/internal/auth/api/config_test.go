package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"AUTHD_API_PREFIX", "AUTHD_TRUST_PROXY", "AUTHD_MAX_BODY_BYTES",
		"AUTHD_COOKIE_NAME", "AUTHD_COOKIE_PATH", "AUTHD_COOKIE_DOMAIN",
		"AUTHD_COOKIE_SECURE", "AUTHD_COOKIE_SAMESITE",
	} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, http.SameSiteStrictMode, cfg.sameSite())
}

func TestLoadConfigFromEnv_Override(t *testing.T) {
	t.Setenv("AUTHD_API_PREFIX", "api")
	t.Setenv("AUTHD_COOKIE_NAME", "sid")
	t.Setenv("AUTHD_COOKIE_SAMESITE", "Lax")
	t.Setenv("AUTHD_COOKIE_SECURE", "false")
	t.Setenv("AUTHD_TRUST_PROXY", "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/api", cfg.Prefix)
	assert.Equal(t, "sid", cfg.CookieName)
	assert.Equal(t, http.SameSiteLaxMode, cfg.sameSite())
	assert.False(t, cfg.CookieSecure)
	assert.True(t, cfg.TrustProxy)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CookieSameSite = "none"
	cfg.CookieSecure = false
	assert.Error(t, cfg.Validate())

	cfg.CookieSecure = true
	assert.NoError(t, cfg.Validate())

	cfg.CookieSameSite = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.CookieName = " "
	assert.Error(t, cfg.Validate())
}

func TestClientIP(t *testing.T) {
	r, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.66, 203.0.113.9")

	assert.Equal(t, "10.0.0.1", clientIP(r, false).String())
	assert.Equal(t, "203.0.113.9", clientIP(r, true).String())
}

func TestClientIP_SpoofedForwardedPrefixIgnored(t *testing.T) {
	tests := []struct {
		name, xff, want string
	}{
		{"single hop", "203.0.113.9", "203.0.113.9"},
		{"client supplied prefix", "1.2.3.4, 203.0.113.9", "203.0.113.9"},
		{"trailing garbage skipped", "1.2.3.4, 203.0.113.9, not-an-ip", "203.0.113.9"},
		{"ipv6 hop", "1.2.3.4, 2001:db8::1", "2001:db8::1"},
		{"nothing valid falls back to remote", "bogus", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, err)
			r.RemoteAddr = "10.0.0.1:5555"
			r.Header.Set("X-Forwarded-For", tt.xff)
			assert.Equal(t, tt.want, clientIP(r, true).String())
		})
	}
}
