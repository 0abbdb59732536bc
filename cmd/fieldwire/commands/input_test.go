// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/testutil"
)

func TestReadInput(t *testing.T) {
	path := testutil.WriteFile(t, "input.bin", "\x01\x00")

	tests := []struct {
		name  string
		stdin string
		args  []string
		hex   bool
		want  []byte
	}{
		{"stdin", "\x02\x00", nil, false, []byte{2, 0}},
		{"dash is stdin", "\x02\x00", []string{"-"}, false, []byte{2, 0}},
		{"file", "ignored", []string{path}, false, []byte{1, 0}},
		{"hex with whitespace", "01 00\n\t04 00\n", nil, true, []byte{1, 0, 4, 0}},
		{"empty", "", nil, false, []byte{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := readInput(strings.NewReader(test.stdin), test.args, test.hex)
			if err != nil {
				t.Fatalf("readInput: %v", err)
			}
			if !bytes.Equal(got, test.want) {
				t.Errorf("got %x, want %x", got, test.want)
			}
		})
	}
}

func TestReadInputErrors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		hex      bool
		category cli.ErrorCategory
	}{
		{"two files", "", []string{"a", "b"}, false, cli.CategoryValidation},
		{"missing file", "", []string{t.TempDir() + "/absent"}, false, cli.CategoryNotFound},
		{"odd hex", "010", nil, true, cli.CategoryValidation},
		{"not hex", "0g", nil, true, cli.CategoryValidation},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := readInput(strings.NewReader(test.stdin), test.args, test.hex)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := cli.CategoryOf(err); got != test.category {
				t.Errorf("category = %s, want %s (error: %v)", got, test.category, err)
			}
		})
	}
}
