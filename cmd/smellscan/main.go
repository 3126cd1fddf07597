// Package main provides the entry point for the smellscan CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sumatoshi-tech/smellscan/cmd/smellscan/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		if !errors.Is(err, commands.ErrFindings) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(commands.ExitCode(err))
	}
}
