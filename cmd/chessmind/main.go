// Chessmind store inspector. Headless and read-only: every subcommand
// opens the learned store, prints one table and exits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
