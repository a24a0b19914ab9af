// Command readtrac is the reading tracker: an HTTP API plus local commands
// for managing the library from a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"readtrac/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
