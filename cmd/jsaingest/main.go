package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// rootCtx cancels on SIGINT/SIGTERM so long-running batches and the
// watch loop shut down cleanly.
var (
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
