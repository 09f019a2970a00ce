// Command bundlecore composes, runs and tests declarative bundles.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bundlecore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
