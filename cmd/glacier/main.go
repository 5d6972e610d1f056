// Package main provides the glacier CLI.
package main

import (
	"os"

	"github.com/glacierhq/glacier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
