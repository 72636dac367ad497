// Command kinda compiles class manifests, runs event scenarios and shows
// their recorded dispatch traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/kinda/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
