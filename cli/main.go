// Command cclens is the terminal client for local Claude Code usage
// reports.
package main

import (
	"fmt"
	"os"

	"github.com/cclens/cclens/cli/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
