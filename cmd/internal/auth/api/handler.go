// Package api exposes the auth operations over HTTP with cookie-carried sessions.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"authd/cmd/internal/auth"
)

// Handler wires HTTP auth endpoints to the auth service.
type Handler struct {
	log     *slog.Logger
	cfg     Config
	auth    *auth.Service
	metrics *Metrics
	ttl     time.Duration
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records auth outcomes on m.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, svc *auth.Service, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("auth api: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Prefix = normalizePrefix(cfg.Prefix)

	h := &Handler{
		log:  log,
		cfg:  cfg,
		auth: svc,
		ttl:  svc.SessionTTL(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	p := h.cfg.Prefix
	mux.HandleFunc(p+"/register", h.handleRegister)
	mux.HandleFunc(p+"/login", h.handleLogin)
	mux.HandleFunc(p+"/logout", h.handleLogout)
	mux.HandleFunc(p+"/dashboard", h.handleDashboard)
	mux.HandleFunc(p+"/user", h.handleUser)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.record("register", "invalid_input")
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	res, err := h.auth.Register(r.Context(), req.Email, req.Password)
	h.metrics.record("register", outcome(err))
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			h.audit(r, "auth.register.conflict")
		}
		h.writeAuthError(w, r, "auth.register", err)
		return
	}

	h.audit(r, "auth.register.success", slog.String("user_id", res.User.ID))
	if res.Session != nil {
		h.setSessionCookie(w, res.Session.Token, res.Session.ExpiresAt)
	}
	writeJSON(w, http.StatusCreated, userIDResponse{
		UserID:  res.User.ID,
		Message: "User registered successfully",
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.record("login", "invalid_input")
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	h.metrics.record("login", outcome(err))
	if err != nil {
		var lf auth.LoginFailure
		if errors.As(err, &lf) {
			h.audit(r, "auth.login.failed", slog.String("reason", lf.Reason))
		}
		h.writeAuthError(w, r, "auth.login", err)
		return
	}

	h.audit(r, "auth.login.success", slog.String("user_id", res.User.ID))
	h.setSessionCookie(w, res.Session.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, userIDResponse{
		UserID:  res.User.ID,
		Message: "Logged in successfully",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}

	userID, err := h.auth.Logout(r.Context(), h.sessionTokenFromCookie(r))
	h.metrics.record("logout", outcome(err))
	if err != nil {
		h.writeAuthError(w, r, "auth.logout", err)
		return
	}

	h.audit(r, "auth.logout", slog.String("user_id", userID))
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	userID, err := h.auth.Authorize(r.Context(), h.sessionTokenFromCookie(r))
	if err != nil {
		h.writeAuthError(w, r, "auth.dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, userIDResponse{
		UserID:  userID,
		Message: "Welcome to the dashboard",
	})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	u, err := h.auth.CurrentUser(r.Context(), h.sessionTokenFromCookie(r))
	if err != nil {
		h.writeAuthError(w, r, "auth.user", err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Email: u.Email})
}
