// Command goxq compiles and evaluates query plans against XML documents.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sandrolain/goxq/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
