// Package main provides the entry point for the raglite CLI.
package main

import (
	"os"

	"github.com/raglite-go/raglite/cmd/raglite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
