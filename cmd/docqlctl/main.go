// Package main is the entry point for docqlctl, a command-line harness
// around the language service facade for scripting and local debugging
// without a full editor host.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
