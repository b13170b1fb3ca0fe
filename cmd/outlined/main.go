// Command outlined runs the collaborative outline engine's debug/export
// tooling: replaying a container's event log, validating a container's
// tree invariants, and exporting a container to markdown.
package main

import (
	"fmt"
	"os"

	"github.com/podlove/outliner/cmd/outlined/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
