// Package main is the entry point for the cycle command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/staltz/base/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		// Commands silence cobra's own error printing.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
