package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/di"
	"github.com/aristath/papertrade/pkg/logger"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// plain disables terminal rendering of command output
var plain bool

// withContainer wires the application from the environment, runs fn and
// tears everything down again.
func withContainer(ctx context.Context, fn func(*di.Container) error) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	log := logger.New(logger.Config{
		Level:  "warn",
		Pretty: true,
		Output: os.Stderr,
	})

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	if err := fn(container); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printMarkdown(md string) {
	if plain {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
