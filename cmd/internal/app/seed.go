package app

import (
	"context"
	"errors"
	"log/slog"

	"authd/cmd/internal/auth"
)

// seedAdmin registers the configured bootstrap account once. An existing
// account with the same email is left untouched.
func seedAdmin(ctx context.Context, svc *auth.Service, email, password string, log *slog.Logger) error {
	if email == "" {
		return nil
	}

	res, err := svc.Register(ctx, email, password)
	switch {
	case err == nil:
		log.Info("seed.admin.created", "user_id", res.User.ID)
		return nil
	case errors.Is(err, auth.ErrEmailTaken):
		log.Info("seed.admin.exists")
		return nil
	default:
		return err
	}
}
