// Package main is the entry point for the nicehist CLI.
package main

import (
	"os"

	"github.com/runger/nicehist/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
