package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clilib "github.com/bwssh/bwssh/internal/cli"
)

// main runs the CLI
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(clilib.PrintError(os.Stderr, err).Int())
}
