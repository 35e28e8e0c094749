// Command carbontrace generates, cleans and audits monthly factory emission
// records.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/carbontrace/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger := logging.New("cli", logging.Options{Output: os.Stderr})
			logger.Error().Err(err).Msg("command failed")
		}
		stop()
		os.Exit(1)
	}
}
