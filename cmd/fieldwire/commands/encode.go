// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/capture"
)

type encodeParams struct {
	schemaFlags
	typeName  string
	compress  string
	hexOutput bool
	output    string
}

func encodeCommand(s streams) *cli.Command {
	var params encodeParams

	return &cli.Command{
		Name:    "encode",
		Summary: "Encode JSON values into a capture",
		Description: `Read JSON values and write them as a capture of one type.

Input is a stream of JSON values (comments and trailing commas allowed)
from FILE, or from stdin when FILE is absent or "-". Each value uses the
shape "fieldwire decode" prints: records as objects keyed by field name,
unions as {"variant": NAME or ID, "value": PAYLOAD}, 128-bit integers,
UUIDs, addresses and timestamps as strings, bytes as base64 or a list
of numbers. Maps with non-string keys may be given as a list of
{"key", "value"} objects.

Optional fields may be left out and are omitted from the output when
they hold their default. Required fields must be present.`,
		Usage: "fieldwire encode --type TYPE [--schema FILE]... [flags] [FILE]",
		Examples: []cli.Example{
			{
				Description: "Encode one record",
				Command:     `echo '{"sequence": 1, "note": "hi"}' | fieldwire encode -s events.yaml --type Event > event.bin`,
			},
			{
				Description: "Encode a file of values into a zstd capture",
				Command:     "fieldwire encode -s events.yaml --type Event --compress zstd -o events.bin events.jsonc",
			},
			{
				Description: "Show the bytes of a value as hex",
				Command:     `echo '{"level": 5}' | fieldwire encode -s events.yaml --type Settings --hex`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.StringVarP(&params.typeName, "type", "t", "", "type of the values: a record or union name, or a type expression")
			flagSet.StringVar(&params.compress, "compress", "", "frame compression: none, zstd or lz4 (default: config output.compression)")
			flagSet.BoolVarP(&params.hexOutput, "hex", "x", false, "write the capture as hex text")
			flagSet.StringVarP(&params.output, "output", "o", "", "write to this file instead of stdout")
			return flagSet
		},
		Run: func(args []string) error {
			return runEncode(s, &params, args)
		},
	}
}

func runEncode(s streams, params *encodeParams, args []string) error {
	input, err := readInput(s.in, args, false)
	if err != nil {
		return err
	}
	sess, err := params.open(s, "encode")
	if err != nil {
		return err
	}
	compressionName := params.compress
	if compressionName == "" {
		compressionName = sess.config.Output.Compression
	}
	compression, err := capture.ParseCompression(compressionName)
	if err != nil {
		return cli.Validation("--compress: %w", err)
	}
	dyn, err := sess.codec("")
	if err != nil {
		return err
	}
	t, err := resolveType(dyn, params.typeName)
	if err != nil {
		return err
	}

	var encoded bytes.Buffer
	writer, err := capture.NewWriter(&encoded, compression)
	if err != nil {
		return cli.Internal("%w", err)
	}
	encoder := dyn.NewEncoder(writer, t)

	values := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(input)))
	values.UseNumber()
	count := 0
	for {
		var value any
		if err := values.Decode(&value); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cli.Validation("input value %d is not JSON: %w", count, err)
		}
		if err := encoder.Encode(value); err != nil {
			return cli.Data("input value %d: %w", count, err)
		}
		count++
	}
	if err := writer.Close(); err != nil {
		return cli.Internal("%w", err)
	}
	sess.logger.Debug("capture encoded",
		"type", t.String(),
		"values", count,
		"bytes", encoder.Written(),
		"compression", compression.String(),
	)

	result := encoded.Bytes()
	if params.hexOutput {
		result = []byte(hex.EncodeToString(result) + "\n")
	}
	if params.output == "" {
		_, err = s.out.Write(result)
		return err
	}
	if err := os.WriteFile(params.output, result, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", params.output, err)
	}
	return nil
}
