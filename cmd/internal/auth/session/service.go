package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"authd/cmd/security/token"
)

// Service implements the session lifecycle: create, resolve, destroy, sweep.
type Service struct {
	cfg   Config
	store Store

	hash func(string) string
	now  func() time.Time
}

// Issued is the result of creating a session. Token is shown to the client
// exactly once and never logged.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// NewService constructs a Service. Zero-valued config fields fall back to DefaultConfig.
func NewService(cfg Config, store Store) *Service {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = def.TokenBytes
	}
	return &Service{
		cfg:   cfg,
		store: store,
		hash:  token.HashSessionTokenHex,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the configured session lifetime.
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// Create starts a session for userID that expires at now + TTL.
func (s *Service) Create(ctx context.Context, now time.Time, userID string) (Issued, error) {
	if strings.TrimSpace(userID) == "" {
		return Issued{}, fmt.Errorf("session: empty user id")
	}
	if now.IsZero() {
		now = s.now()
	}

	plain, err := token.New(s.cfg.TokenBytes)
	if err != nil {
		return Issued{}, fmt.Errorf("session: token: %w", err)
	}

	row := Row{
		TokenHash: s.hash(plain),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.store.Create(ctx, row); err != nil {
		return Issued{}, err
	}

	return Issued{Token: plain, ExpiresAt: row.ExpiresAt}, nil
}

// Resolve returns the live session for token.
//
// Unknown or destroyed tokens return ErrSessionNotFound. Tokens past expiry return
// ErrSessionExpired and their row is removed.
func (s *Service) Resolve(ctx context.Context, now time.Time, tok string) (Row, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return Row{}, ErrSessionNotFound
	}
	if now.IsZero() {
		now = s.now()
	}

	h := s.hash(tok)
	row, err := s.store.Get(ctx, h)
	if err != nil {
		return Row{}, err
	}
	if !token.EqualHex64(row.TokenHash, h) {
		return Row{}, ErrSessionNotFound
	}

	if row.Expired(now) {
		// Best-effort; the sweeper catches anything missed here.
		_ = s.store.Delete(ctx, h)
		return Row{}, ErrSessionExpired
	}
	return row, nil
}

// Destroy ends the session for token. It is idempotent.
func (s *Service) Destroy(ctx context.Context, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil
	}
	return s.store.Delete(ctx, s.hash(tok))
}

// Sweep removes every session expired at now.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = s.now()
	}
	return s.store.DeleteExpired(ctx, now)
}

// RunSweeper calls Sweep every interval until ctx is done. A non-positive
// interval returns immediately. Sweep failures are logged and retried on the next tick.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.Sweep(ctx, s.now())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Warn("session.sweep.fail", slog.Any("err", err))
				continue
			}
			if n > 0 {
				logger.Info("session.sweep", slog.Int64("removed", n))
			}
		}
	}
}
