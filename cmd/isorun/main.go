// Package main is the entry point for the isorun test runner.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/isorun/cmd/isorun/commands"
	"go.trai.ch/isorun/internal/app"
	_ "go.trai.ch/isorun/internal/wiring"
)

// toolingExitCode signals that isorun itself failed, as opposed to the
// child command exiting non-zero.
const toolingExitCode = 2

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := provider(ctx)
	if err != nil {
		// Logger is not available when initialization failed; write
		// directly to the stderr passed in.
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return toolingExitCode
	}

	cli := commands.New(components.App, components.Logger)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return toolingExitCode
	}
	return cli.ExitCode()
}
