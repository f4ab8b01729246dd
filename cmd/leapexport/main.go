// Package main provides the leapexport command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapexport/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
