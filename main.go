// Package main is the entry point for the enipaddr tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/enipaddr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
