// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command fieldwire decodes, encodes and inspects field-tagged binary
// values and their schema documents.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/commands"
)

func main() {
	if err := commands.Root().Execute(os.Args[1:]); err != nil {
		// Commands that print their own verdict (schema compat) return
		// an ExitError. Don't print a redundant "error:" line for those.
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.CategoryOf(err).ExitCode())
	}
}
