// Package app wires the authd server runtime: config, logging, storage
// backends, HTTP routes and the session sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"authd/cmd/internal/auth"
	"authd/cmd/internal/auth/api"
	"authd/cmd/internal/auth/session"
	"authd/cmd/security/password"
)

// App is the authd server runtime: it owns storage handles, the HTTP server
// wiring and the background session sweeper.
type App struct {
	cfg Config
	log Logger

	store    *backends
	sessions *session.Service
	auth     *auth.Service
	registry *prometheus.Registry

	handler http.Handler
}

// New constructs a fully wired App from config and logger. The caller must
// Close it when Run is not used.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	hasher, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	apiCfg, err := api.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	st, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, log, st, hasher, apiCfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg Config, log Logger, st *backends, hasher password.Hasher, apiCfg api.Config) (*App, error) {
	sessions := session.NewService(cfg.Session, st.sessions)

	authSvc, err := auth.NewService(st.users, sessions, hasher,
		auth.WithAutoLogin(cfg.RegisterAutoLogin),
		auth.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	if err := seedAdmin(ctx, authSvc, cfg.SeedAdminEmail, cfg.SeedAdminPassword, log); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	reg := newRegistry()
	authHandler, err := api.NewHandler(log, authSvc, apiCfg, api.WithMetrics(api.NewMetrics(reg)))
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, st, reg, authHandler)

	// Outermost first: request id, logging, recover, security headers, CORS, metrics.
	var h http.Handler = WithHTTPMetrics(mux, NewHTTPMetrics(reg))
	h = WithCORS(h, cfg, log)
	h = WithSecurityHeaders(h)
	h = WithRecover(h, log)
	h = WithRequestLogging(h, log)
	h = WithRequestID(h)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    st,
		sessions: sessions,
		auth:     authSvc,
		registry: reg,
		handler:  h,
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases storage handles.
func (a *App) Close() error { return a.store.Close() }

// Run serves HTTP and sweeps expired sessions until ctx is canceled or the
// server fails, then shuts down gracefully and closes storage.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("listen: %w", err)
	}

	a.log.Info("server.start",
		"addr", ln.Addr().String(),
		"url", runtimeBaseURL(ln.Addr().String()),
		"db_enabled", a.store.dbEnabled(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.sessions.RunSweeper(gctx, a.cfg.Session.SweepInterval, a.log)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err = g.Wait()

	if cerr := a.Close(); cerr != nil {
		a.log.Error("store.close.fail", "err", cerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can use.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
