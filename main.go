// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keymaster.
//
// Usage:
//
//	go run . [flags]
//	./keymaster [flags]
//
// This runs the Keymaster CLI. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/keyrepo/ui/cli"
)

// main is the entrypoint for the Keymaster CLI. Errors are printed by
// cli.Execute; the exit status is 1 for any failed run.
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
