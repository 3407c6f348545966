// Package main is the entry point for the cueloop lighting capture daemon.
package main

import (
	"fmt"
	"os"

	"cueloop.dev/cueloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
