// Package main provides the entry point for the projector CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/projector/cmd/projector/commands"
	"github.com/Sumatoshi-tech/projector/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
