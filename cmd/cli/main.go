// Package main is the entry point for the marketcap CLI.
// The CLI is the operator terminal tool for interacting with the marketcap API.
package main

import (
	"marketcap/cmd/cli/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
