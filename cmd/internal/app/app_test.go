package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authd/cmd/identity"
	"authd/cmd/internal/auth/api"
	"authd/cmd/internal/auth/session"
	"authd/cmd/security/password"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "empty host", in: ":9090", want: "http://127.0.0.1:9090"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, runtimeBaseURL(tc.in))
		})
	}
}

func testConfig() Config {
	return Config{
		HTTPAddr:             "127.0.0.1:0",
		LogLevel:             "info",
		LogFormat:            "json",
		CORSAllowCredentials: true,
		CORSMaxAgeSeconds:    600,
		Session:              session.DefaultConfig(),
	}
}

func testHasher() password.Hasher {
	c := password.DefaultConfig()
	c.BcryptCost = bcrypt.MinCost
	return c
}

func testAPIConfig() api.Config {
	c := api.DefaultConfig()
	c.CookieSecure = false
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, cfg Config, st *backends) *App {
	t.Helper()
	if st == nil {
		st = &backends{users: identity.NewMemoryStore(), sessions: session.NewMemoryStore()}
	}
	a, err := build(context.Background(), cfg, discardLogger(), st, testHasher(), testAPIConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func postJSON(t *testing.T, c *http.Client, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestApp_OperationalRoutes(t *testing.T) {
	a := newTestApp(t, testConfig(), nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, map[string]string{"status": "ok"}, health)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.Client(), srv.URL+"/register", map[string]string{"email": "a@b.co", "password": "secret1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `authd_auth_events_total{op="register",outcome="success"} 1`)
	assert.Contains(t, string(body), "authd_http_requests_total")
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	cfg := testConfig()
	cfg.ReadinessRequireDB = true
	a := newTestApp(t, cfg, nil)

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestApp_SeedAdminIsIdempotent(t *testing.T) {
	users := identity.NewMemoryStore()
	cfg := testConfig()
	cfg.SeedAdminEmail = "admin@example.com"
	cfg.SeedAdminPassword = "change-me-now"

	for range 2 {
		_ = newTestApp(t, cfg, &backends{users: users, sessions: session.NewMemoryStore()})
	}
	assert.Equal(t, 1, users.Len())

	u, err := users.GetUserByEmail(context.Background(), "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
}

func TestApp_SQLiteBackend(t *testing.T) {
	cfg := testConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "data", "authd.db")
	cfg.AutoMigrate = true
	require.NoError(t, cfg.Validate())

	st, err := openBackends(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.True(t, st.dbEnabled())
	require.NoError(t, st.Ready(context.Background()))

	a := newTestApp(t, cfg, st)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	creds := map[string]string{"email": "a@b.co", "password": "secret1"}
	assert.Equal(t, http.StatusCreated, postJSON(t, srv.Client(), srv.URL+"/register", creds).StatusCode)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.Client(), srv.URL+"/register", creds).StatusCode)

	resp := postJSON(t, srv.Client(), srv.URL+"/login", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, resp.Cookies(), 1)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/dashboard", nil)
	require.NoError(t, err)
	req.AddCookie(resp.Cookies()[0])
	dash, err := srv.Client().Do(req)
	require.NoError(t, err)
	_ = dash.Body.Close()
	assert.Equal(t, http.StatusOK, dash.StatusCode)
}

func TestApp_StaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))

	cfg := testConfig()
	cfg.StaticDir = dir
	a := newTestApp(t, cfg, nil)

	get := func(path string) (int, string) {
		rr := httptest.NewRecorder()
		a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code, rr.Body.String()
	}

	code, body := get("/app.js")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "console.log(1)", body)

	code, body = get("/settings/profile")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "spa")

	// API routes still win over the fallback.
	code, body = get("/dashboard")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.True(t, strings.Contains(body, "not_authenticated"))

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/settings/profile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
	assert.Contains(t, rr.Body.String(), "method_not_allowed")
}

func TestApp_StaticSameOriginRegister(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>spa</html>"), 0o600))

	cfg := testConfig()
	cfg.StaticDir = dir
	a := newTestApp(t, cfg, nil)

	body := `{"email":"spa@example.com","password":"correct horse battery"}`
	req := httptest.NewRequest(http.MethodPost, "http://auth.example.com/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://auth.example.com")

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Session.SweepInterval = 10 * time.Millisecond
	a := newTestApp(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
