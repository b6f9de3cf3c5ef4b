// Package main is the entry point for the cyberxpert CLI binary.
package main

import (
	"os"

	cli "cyberxpert/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
