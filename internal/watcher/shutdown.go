package watcher

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"
)

// SetupSignalHandler derives a context from parent that is cancelled on
// SIGTERM or SIGINT. shutdownFunc, if set, runs before the cancel.
// A second signal forces exit.
func SetupSignalHandler(parent context.Context, shutdownFunc func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(parent)
	log := zlog.With().Str("component", "signal").Logger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-ctx.Done():
			signal.Stop(sigCh)
			return
		}
		log.Info().Str("signal", sig.String()).Msg("received signal, initiating graceful shutdown")

		if shutdownFunc != nil {
			shutdownFunc(ctx)
		}

		cancel()

		sig = <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("received second signal, forcing exit")
		os.Exit(1)
	}()

	return ctx
}
