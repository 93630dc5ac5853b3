// Package main is the entry point for the erdep CLI tool.
package main

import (
	"os"

	"github.com/IgorPritula/entity-ref-dependency/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
