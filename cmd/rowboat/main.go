// Package main provides the rowboat CLI.
package main

import (
	"os"

	"github.com/rowboat-dev/rowboat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
