// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/canonical"
	"github.com/bureau-foundation/fieldwire/lib/capture"
)

type decodeParams struct {
	schemaFlags
	typeName      string
	hexInput      bool
	format        string
	compact       bool
	unknownFields string
	raw           bool
	color         string
}

func decodeCommand(s streams) *cli.Command {
	var params decodeParams

	return &cli.Command{
		Name:    "decode",
		Summary: "Decode a capture to JSON, CBOR or CBOR diagnostic notation",
		Description: `Decode every value in a capture and print it.

A capture is values of one type written back to back, optionally inside
a zstd or LZ4 frame; the frame is detected from its magic bytes (use
--raw for uncompressed captures that happen to start with one). Input is
read from FILE, or from stdin when FILE is absent or "-".

Records print as objects keyed by field name, unions as
{"variant": NAME, "value": PAYLOAD}. Optional fields missing from the
wire print with their default, so every field appears in the output.

Output formats:

  json   one JSON document per value (pretty unless --compact)
  cbor   a CBOR sequence in Core Deterministic Encoding
  diag   one line of CBOR diagnostic notation per value`,
		Usage: "fieldwire decode --type TYPE [--schema FILE]... [flags] [FILE]",
		Examples: []cli.Example{
			{
				Description: "Decode a capture of Event records",
				Command:     "fieldwire decode -s events.yaml --type Event events.bin",
			},
			{
				Description: "Decode hex from the clipboard, one line per value",
				Command:     "echo '0100 0400 0000' | fieldwire decode -s events.yaml --type Settings --hex --compact",
			},
			{
				Description: "Fail on fields the schema does not declare",
				Command:     "fieldwire decode -s events.yaml --type Event --unknown-fields reject events.bin",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.StringVarP(&params.typeName, "type", "t", "", "type of the values: a record or union name, or a type expression such as list<Event>")
			flagSet.BoolVarP(&params.hexInput, "hex", "x", false, "input is hex text")
			flagSet.StringVarP(&params.format, "format", "f", "", "output format: json, cbor or diag (default: config output.format)")
			flagSet.BoolVarP(&params.compact, "compact", "c", false, "compact JSON, one value per line")
			flagSet.StringVar(&params.unknownFields, "unknown-fields", "", "ignore or reject (default: config decode.unknown_fields)")
			flagSet.BoolVar(&params.raw, "raw", false, "do not detect a compression frame")
			flagSet.StringVar(&params.color, "color", "auto", colorFlagUsage)
			return flagSet
		},
		Run: func(args []string) error {
			return runDecode(s, &params, args)
		},
	}
}

func runDecode(s streams, params *decodeParams, args []string) error {
	data, err := readInput(s.in, args, params.hexInput)
	if err != nil {
		return err
	}
	sess, err := params.open(s, "decode")
	if err != nil {
		return err
	}
	format := params.format
	if format == "" {
		format = sess.config.Output.Format
	}
	color, err := useColor(params.color, s.out)
	if err != nil {
		return err
	}
	output, err := newValueWriter(s.out, format, params.compact)
	if err != nil {
		return err
	}
	output.highlight = color
	dyn, err := sess.codec(params.unknownFields)
	if err != nil {
		return err
	}
	t, err := resolveType(dyn, params.typeName)
	if err != nil {
		return err
	}

	var reader *capture.Reader
	if params.raw {
		reader, err = capture.NewReaderWith(bytes.NewReader(data), capture.None)
	} else {
		reader, err = capture.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return cli.Data("%w", err)
	}
	defer reader.Close()

	decoder := dyn.NewDecoder(reader, t)
	count := 0
	for {
		start := decoder.Consumed()
		value, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cli.Data("value %d at byte %d: %w", count, start, err)
		}
		if err := output.write(value); err != nil {
			return cli.Internal("write value %d: %w", count, err)
		}
		count++
	}
	sess.logger.Debug("capture decoded",
		"type", t.String(),
		"values", count,
		"bytes", decoder.Consumed(),
		"compression", reader.Compression().String(),
	)
	return nil
}

// valueWriter prints decoded values in one output format. JSON goes
// through a buffer when highlighted.
type valueWriter struct {
	w         io.Writer
	format    string
	json      *json.Encoder
	buffer    bytes.Buffer
	cbor      *canonical.Encoder
	highlight bool
}

func newValueWriter(w io.Writer, format string, compact bool) (*valueWriter, error) {
	out := &valueWriter{w: w, format: format}
	switch format {
	case "json":
		out.json = json.NewEncoder(&out.buffer)
		if !compact {
			out.json.SetIndent("", "  ")
		}
	case "cbor":
		out.cbor = canonical.NewEncoder(w)
	case "diag":
	default:
		return nil, cli.Validation("unknown output format %q (want json, cbor or diag)", format)
	}
	return out, nil
}

func (v *valueWriter) write(value any) error {
	switch v.format {
	case "json":
		v.buffer.Reset()
		if err := v.json.Encode(value); err != nil {
			return err
		}
		text := v.buffer.String()
		if v.highlight {
			text = highlightJSON(text)
		}
		_, err := io.WriteString(v.w, text)
		return err
	case "cbor":
		return v.cbor.Encode(value)
	}
	data, err := canonical.Marshal(value)
	if err != nil {
		return err
	}
	notation, err := canonical.Diagnose(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(v.w, notation)
	return err
}
