// Command modhost runs a module host over a module directory.
//
// Hosts that compile in their own entry points build their binary around
// cmd.NewRootCommand with a populated registry; this binary registers none.
package main

import (
	"fmt"
	"os"

	"github.com/GoCodeAlone/modhost"
	"github.com/GoCodeAlone/modhost/cmd/modhost/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(modhost.NewEntryPoints())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
