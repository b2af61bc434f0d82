// Package main is the entry point for the csecbridge CLI binary.
package main

import (
	"os"

	cli "csecbridge/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
