// Package main is the entry point for the guestlab host CLI.
package main

import (
	"fmt"
	"os"

	"github.com/javanstorm/guestlab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
