// Command relate inspects and maintains a relate result store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hupe1980/relate/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
