package main

import (
	"os"

	"github.com/gorozooo/my-stock-portfolio-sub001/cmd/mlpipe/commands"
)

// main is the entry point for the trade-outcome learning pipeline CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
