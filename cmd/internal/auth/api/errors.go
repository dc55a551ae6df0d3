package api

import (
	"errors"
	"net/http"

	"authd/cmd/internal/auth"
)

// writeAuthError maps an auth outcome to its HTTP response. It is the only
// place where auth errors become status codes.
func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ie auth.InputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, "invalid_input", ie.Msg)
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid input")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email_taken", "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, auth.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not_authenticated", "not authenticated")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	default:
		h.log.ErrorContext(r.Context(), op+".fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, auth.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, auth.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
