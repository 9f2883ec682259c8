// Package main provides the iamconv CLI entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/iamconv/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
