package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithSigHandler calls cancel on SIGINT or SIGTERM and returns ctx.
func WithSigHandler(ctx context.Context, cancel func()) context.Context {
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)

		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx
}
