package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Serve is the entrypoint used by `authd serve`. It builds the App and runs it
// until SIGINT or SIGTERM.
func Serve(ctx context.Context, cfg Config) error {
	log := NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("server.init.fail", "err", err)
		return err
	}

	return a.Run(ctx)
}
