// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
)

// readInput reads the single optional FILE argument, or stdin when
// there is none or it is "-".
//
// When hexMode is true, the bytes are hex text: whitespace is stripped
// and the hex is decoded to binary.
func readInput(stdin io.Reader, args []string, hexMode bool) ([]byte, error) {
	if len(args) > 1 {
		return nil, cli.Validation("expected at most one input file, got %d arguments", len(args))
	}

	var data []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NotFound("input file %s does not exist", args[0])
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args[0], err)
		}
	} else {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}

	if hexMode {
		return decodeHexInput(data)
	}
	return data, nil
}

// decodeHexInput strips whitespace from hex-encoded input and decodes
// it to binary bytes. Whitespace between hex digit pairs is allowed
// (e.g., "01 00 0400" or "0100040000").
func decodeHexInput(data []byte) ([]byte, error) {
	cleaned := bytes.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, data)

	decoded := make([]byte, hex.DecodedLen(len(cleaned)))
	count, err := hex.Decode(decoded, cleaned)
	if err != nil {
		return nil, cli.Validation("decode hex input: %w", err)
	}
	return decoded[:count], nil
}
