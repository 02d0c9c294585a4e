// Command sqlspec is a thin diagnostic CLI over the three core
// subsystems of this module: render demonstrates the AST Engine's
// parse/render round-trip and queue exercises
// the durable Event Queue's publish/dequeue/ack cycle.
// It runs no schema migrations and performs no ORM row mapping; it is
// only a driver over Prepare, Render, and Queue.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// Context carries the global flags every subcommand's Run receives.
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
}

var CLI struct {
	Config  string `help:"Configuration file path" default:"sqlspec.yaml"`
	Verbose bool   `help:"Enable verbose output" short:"v"`
	Quiet   bool   `help:"Suppress output" short:"q"`

	Render  RenderCmd  `cmd:"" help:"Parse and re-render SQL text under a target dialect"`
	Queue   QueueCmd   `cmd:"" help:"Publish, dequeue, and ack messages against a configured durable event queue"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// VersionCmd prints the CLI's own version.
type VersionCmd struct{}

func (v *VersionCmd) Run(ctx *Context) error {
	fmt.Println("sqlspec v0.1.0")
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("sqlspec"),
		kong.Description("Diagnostic CLI over the SQL Statement Pipeline and Event Channel Core."),
		kong.UsageOnError(),
	)

	appCtx := &Context{Config: CLI.Config, Verbose: CLI.Verbose, Quiet: CLI.Quiet}

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
