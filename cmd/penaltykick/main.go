// Command penaltykick serves kick direction predictions and builds the
// training datasets and model artifacts behind them.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdobak/go-xerrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCommand().ExecuteContext(ctx); err != nil {
		err := xerrors.New(err)
		slog.Default().ErrorContext(ctx, "penaltykick failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
