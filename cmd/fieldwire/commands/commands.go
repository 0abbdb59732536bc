// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the fieldwire command tree.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/version"
)

// Root builds and returns the complete fieldwire command tree, wired
// to the process's standard streams.
func Root() *cli.Command {
	return newRoot(osStreams())
}

func newRoot(s streams) *cli.Command {
	return &cli.Command{
		Name: "fieldwire",
		Description: `fieldwire: tools for field-tagged binary values.

Decode captures of encoded values into JSON or CBOR, encode JSON into
captures, and validate, fingerprint and compare the schema documents
that describe them.`,
		HelpOutput: s.err,
		Subcommands: []*cli.Command{
			decodeCommand(s),
			encodeCommand(s),
			schemaCommand(s),
			versionCommand(s),
		},
		Examples: []cli.Example{
			{
				Description: "Check a schema document",
				Command:     "fieldwire schema check events.yaml",
			},
			{
				Description: "Decode a capture to JSON",
				Command:     "fieldwire decode -s events.yaml --type Event events.bin",
			},
			{
				Description: "Encode JSON to a zstd capture",
				Command:     "fieldwire encode -s events.yaml --type Event --compress zstd < events.json > events.bin",
			},
			{
				Description: "Check a schema change before deploying readers",
				Command:     "fieldwire schema compat events-v1.yaml events-v2.yaml Event",
			},
		},
	}
}

func versionCommand(s streams) *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&asJSON, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("version takes no arguments")
			}
			if asJSON {
				encoder := json.NewEncoder(s.out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(version.Current())
			}
			_, err := fmt.Fprintf(s.out, "fieldwire %s\n", version.Full())
			return err
		},
	}
}
