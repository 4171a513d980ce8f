// Package main provides the codemarshall CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/codemarshall/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
