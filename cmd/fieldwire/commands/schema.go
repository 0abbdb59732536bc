// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/schema"
)

func schemaCommand(s streams) *cli.Command {
	return &cli.Command{
		Name:    "schema",
		Summary: "Validate, fingerprint and compare schema documents",
		Description: `Work with schema documents: YAML or JSONC files declaring records
(field ID, name, type, presence, default) and unions (variant ID, name,
payload type).

Documents are checked with the same rules the codec applies to Go
types: field and variant IDs unique within a type, a field cannot be
both required and skipped or carry a default while required, defaults
must parse as their field type, and every referenced type must be
defined.`,
		Subcommands: []*cli.Command{
			schemaCheckCommand(s),
			schemaShowCommand(s),
			schemaFingerprintCommand(s),
			schemaCompatCommand(s),
		},
	}
}

func schemaCheckCommand(s streams) *cli.Command {
	return &cli.Command{
		Name:    "check",
		Summary: "Validate schema documents",
		Usage:   "fieldwire schema check FILE...",
		Examples: []cli.Example{
			{
				Description: "Check that two documents form one valid catalog",
				Command:     "fieldwire schema check common.yaml events.yaml",
			},
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("schema check needs at least one document")
			}
			catalog, err := loadCatalog(args...)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(s.out, 2, 0, 2, ' ', 0)
			for _, name := range catalog.Names() {
				def, _ := catalog.Lookup(name)
				if def.Union {
					fmt.Fprintf(tw, "%s\tunion\t%d variants\n", name, len(def.Variants))
				} else {
					fmt.Fprintf(tw, "%s\trecord\t%d fields\n", name, len(def.Fields))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(s.out, "ok: %d types\n", len(catalog.Names()))
			return err
		},
	}
}

func schemaShowCommand(s streams) *cli.Command {
	return &cli.Command{
		Name:    "show",
		Summary: "Print documents as one normalized YAML document",
		Description: `Load the documents and print the resulting catalog as YAML, with every
ID written out. Useful to see which ID an ordinal-numbered field
actually got, or to merge documents into one.`,
		Usage: "fieldwire schema show FILE...",
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("schema show needs at least one document")
			}
			catalog, err := loadCatalog(args...)
			if err != nil {
				return err
			}
			data, err := catalog.Document().YAML()
			if err != nil {
				return cli.Internal("%w", err)
			}
			_, err = s.out.Write(data)
			return err
		},
	}
}

func schemaFingerprintCommand(s streams) *cli.Command {
	return &cli.Command{
		Name:    "fingerprint",
		Summary: "Print the wire-shape fingerprint of types",
		Description: `Print a 32-byte BLAKE3 fingerprint of each type's wire shape: field
and variant IDs, types, presence and defaults of the type and of every
type it references. Renaming fields or variants keeps the fingerprint;
any change that alters the bytes changes it.

With no TYPE arguments, every type in the document is printed.`,
		Usage: "fieldwire schema fingerprint FILE [TYPE...]",
		Run: func(args []string) error {
			if len(args) == 0 {
				return cli.Validation("schema fingerprint needs a document")
			}
			catalog, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			names := args[1:]
			if len(names) == 0 {
				names = catalog.Names()
			}
			for _, name := range names {
				fingerprint, err := catalog.FingerprintOf(name)
				if err != nil {
					return cli.NotFound("%w", err)
				}
				if _, err := fmt.Fprintf(s.out, "%s  %s\n", fingerprint, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func schemaCompatCommand(s streams) *cli.Command {
	var strict bool
	var colorMode string

	return &cli.Command{
		Name:    "compat",
		Summary: "Check that values written under one schema decode under another",
		Description: `Compare the WRITER schema of TYPE with the READER schema and list what
goes wrong when values written under the first are decoded under the
second. Each finding is "breaking" (routine values fail or decode
wrongly) or "warning" (only values using the flagged field or variant
are affected).

Fields the writer has and the reader lacks are flagged because decoding
cannot skip their bytes.

Exits 1 when there are breaking findings (or any findings, with
--strict), 0 otherwise.`,
		Usage: "fieldwire schema compat WRITER READER TYPE",
		Examples: []cli.Example{
			{
				Description: "Can the new reader decode what deployed writers send?",
				Command:     "fieldwire schema compat events-v1.yaml events-v2.yaml Event",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("compat", pflag.ContinueOnError)
			flagSet.BoolVar(&strict, "strict", false, "fail on warnings too")
			flagSet.StringVar(&colorMode, "color", "auto", colorFlagUsage)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return cli.Validation("schema compat needs WRITER READER TYPE, got %d arguments", len(args))
			}
			color, err := useColor(colorMode, s.out)
			if err != nil {
				return err
			}
			writer, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			reader, err := loadCatalog(args[1])
			if err != nil {
				return err
			}
			findings, err := schema.CheckCompatibility(writer, reader, args[2])
			if err != nil {
				return cli.NotFound("%w", err)
			}
			styles := newSeverityStyles(s.out)
			for _, finding := range findings {
				line := finding.String()
				if color {
					line = styles.render(finding)
				}
				if _, err := fmt.Fprintln(s.out, line); err != nil {
					return err
				}
			}
			if schema.HasBreaking(findings) || (strict && len(findings) > 0) {
				fmt.Fprintf(s.out, "incompatible: %d findings\n", len(findings))
				return &cli.ExitError{Code: 1}
			}
			_, err = fmt.Fprintf(s.out, "compatible: %d warnings\n", len(findings))
			return err
		},
	}
}
