// Command fivelevels runs the five request-handling patterns against a live
// model and prints each answer with the steps the planner took.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// SIGINT from shells, SIGTERM from containers.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
