package main

import (
	"fmt"
	"os"

	"github.com/dyluth/evaldb/cmd/evaldb/commands"
	"github.com/dyluth/evaldb/internal/printer"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Most errors are already printed by the printer package with color formatting
	if err := commands.Execute(); err != nil {
		if !printer.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
