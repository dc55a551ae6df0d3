package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"authd/cmd/identity"
	"authd/cmd/internal/auth"
	"authd/cmd/internal/auth/session"
	"authd/cmd/security/password"
)

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	users    identity.Store
	sessions *session.Service
	metrics  *Metrics
}

func newTestEnv(t *testing.T, cfg Config, users identity.Store, opts ...auth.Option) *testEnv {
	t.Helper()

	hasher := password.DefaultConfig()
	hasher.BcryptCost = bcrypt.MinCost
	if users == nil {
		users = identity.NewMemoryStore()
	}
	sessions := session.NewService(session.DefaultConfig(), session.NewMemoryStore())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := auth.NewService(users, sessions, hasher, append(opts, auth.WithLogger(log))...)
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	h, err := NewHandler(log, svc, cfg, WithMetrics(metrics))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := srv.Client()
	client.Jar = jar

	return &testEnv{srv: srv, client: client, users: users, sessions: sessions, metrics: metrics}
}

// insecureConfig lets the cookie jar replay the session cookie over plain http.
func insecureConfig() Config {
	cfg := DefaultConfig()
	cfg.CookieSecure = false
	return cfg
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any, *http.Response) {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out, resp
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["code"].(string)
	return s
}

func creds(email, pw string) credentialsRequest {
	return credentialsRequest{Email: email, Password: pw}
}

func TestAuthAPI_FullScenario(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	status, body, _ := e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	require.Equal(t, http.StatusCreated, status)
	userID, _ := body["user_id"].(string)
	require.NotEmpty(t, userID)
	assert.Equal(t, "User registered successfully", body["message"])

	status, body, _ = e.do(t, http.MethodPost, "/login", creds("a@b.co", "secret1"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, body["user_id"])

	status, body, _ = e.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, userID, body["user_id"])
	assert.Equal(t, "Welcome to the dashboard", body["message"])

	status, body, _ = e.do(t, http.MethodGet, "/user", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"id": userID, "email": "a@b.co"}, body)

	status, body, _ = e.do(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])

	status, body, _ = e.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", errCode(body))

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Events.WithLabelValues("register", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Events.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.Events.WithLabelValues("logout", "success")))
}

func TestAuthAPI_ReplayedTokenAfterLogout(t *testing.T) {
	e := newTestEnv(t, DefaultConfig(), nil)

	status, _, _ := e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	require.Equal(t, http.StatusCreated, status)

	_, _, resp := e.do(t, http.MethodPost, "/login", creds("a@b.co", "secret1"))
	var tok string
	for _, c := range resp.Cookies() {
		if c.Name == "authd_session" {
			tok = c.Value
		}
	}
	require.NotEmpty(t, tok)

	withCookie := func(method, path string) int {
		req, err := http.NewRequest(method, e.srv.URL+path, nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "authd_session", Value: tok})
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, withCookie(http.MethodGet, "/dashboard"))
	assert.Equal(t, http.StatusOK, withCookie(http.MethodPost, "/logout"))
	assert.Equal(t, http.StatusUnauthorized, withCookie(http.MethodGet, "/dashboard"))
	assert.Equal(t, http.StatusUnauthorized, withCookie(http.MethodPost, "/logout"))
}

func TestAuthAPI_SessionCookieAttributes(t *testing.T) {
	e := newTestEnv(t, DefaultConfig(), nil)

	_, _, _ = e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	_, _, resp := e.do(t, http.MethodPost, "/login", creds("a@b.co", "secret1"))

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "authd_session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)
}

func TestAuthAPI_LogoutClearsCookie(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	_, _, _ = e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	_, _, _ = e.do(t, http.MethodPost, "/login", creds("a@b.co", "secret1"))
	status, _, resp := e.do(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, status)

	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, "authd_session=")
	assert.Contains(t, setCookie, "Max-Age=0")
	assert.Contains(t, setCookie, "Path=/")
}

func TestAuthAPI_LoginFailure_NoEnumeration(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	status, _, _ := e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	require.Equal(t, http.StatusCreated, status)

	statusA, bodyA, respA := e.do(t, http.MethodPost, "/login", creds("nobody@b.co", "secret1"))
	statusB, bodyB, respB := e.do(t, http.MethodPost, "/login", creds("a@b.co", "wrong-password"))

	assert.Equal(t, http.StatusUnauthorized, statusA)
	assert.Equal(t, statusA, statusB)
	assert.Equal(t, bodyA, bodyB)
	assert.Equal(t, "invalid_credentials", errCode(bodyA))
	assert.Empty(t, respA.Cookies())
	assert.Empty(t, respB.Cookies())
}

func TestAuthAPI_RegisterErrors(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	status, _, _ := e.do(t, http.MethodPost, "/register", creds("dup@b.co", "secret1"))
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate", creds("DUP@b.co", "secret1"), http.StatusBadRequest, "email_taken"},
		{"bad email", creds("nope", "secret1"), http.StatusBadRequest, "invalid_input"},
		{"short password", creds("x@b.co", "12345"), http.StatusBadRequest, "invalid_input"},
		{"missing fields", map[string]string{}, http.StatusBadRequest, "invalid_input"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "invalid_input"},
		{"extra field ignored", `{"email":"extra@b.co","password":"secret1","confirmPassword":"secret1"}`, http.StatusCreated, ""},
		{"trailing data", `{"email":"x@b.co","password":"secret1"} {}`, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := e.do(t, http.MethodPost, "/register", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errCode(body))
		})
	}
}

func TestAuthAPI_LoginMissingFields(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	status, body, _ := e.do(t, http.MethodPost, "/login", creds("", ""))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errCode(body))
}

func TestAuthAPI_MethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/register"},
		{http.MethodGet, "/login"},
		{http.MethodGet, "/logout"},
		{http.MethodPost, "/dashboard"},
		{http.MethodDelete, "/user"},
	} {
		status, body, resp := e.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, status, "%s %s", tc.method, tc.path)
		assert.Equal(t, "method_not_allowed", errCode(body), "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, resp.Header.Get("Allow"), "%s %s", tc.method, tc.path)
	}
}

func TestAuthAPI_UserVanished(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil)

	iss, err := e.sessions.Create(context.Background(), time.Time{}, "01J000000000000000000GHOST")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/user", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "authd_session", Value: iss.Token})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthAPI_AutoLoginSetsCookie(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), nil, auth.WithAutoLogin(true))

	status, _, resp := e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, resp.Cookies(), 1)

	status, _, _ = e.do(t, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAuthAPI_Prefix(t *testing.T) {
	cfg := insecureConfig()
	cfg.Prefix = "api/"
	e := newTestEnv(t, cfg, nil)

	status, _, _ := e.do(t, http.MethodPost, "/api/register", creds("a@b.co", "secret1"))
	assert.Equal(t, http.StatusCreated, status)

	status, _, _ = e.do(t, http.MethodPost, "/register", creds("b@b.co", "secret1"))
	assert.Equal(t, http.StatusNotFound, status)
}

type brokenUsers struct{ identity.Store }

func (brokenUsers) CreateUser(context.Context, identity.CreateUserInput) (identity.User, error) {
	return identity.User{}, errors.New("pq: relation users does not exist")
}

func TestAuthAPI_InternalErrorsAreNotEchoed(t *testing.T) {
	e := newTestEnv(t, insecureConfig(), brokenUsers{identity.NewMemoryStore()})

	status, body, _ := e.do(t, http.MethodPost, "/register", creds("a@b.co", "secret1"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "server_error", errCode(body))

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "relation")
}
