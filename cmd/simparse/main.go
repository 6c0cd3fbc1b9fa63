// Command simparse extracts simulation results from exciting, FHI-aims and
// VASP output files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"simulation-parsers/cmd/simparse/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewRoot().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
