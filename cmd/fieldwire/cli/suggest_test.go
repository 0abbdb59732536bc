// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"decode", "decdoe", 2},
		{"schema", "schem", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{{Name: "decode"}, {Name: "encode"}, {Name: "schema"}, {Name: "version"}}

	tests := []struct {
		input string
		want  string
	}{
		{"decod", "decode"},
		{"encdoe", "encode"},
		{"verison", "version"},
		{"completely-different", ""},
	}
	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	flagSet.String("compress", "", "frame compression")
	flagSet.StringP("type", "t", "", "value type")
	flagSet.Bool("hex", false, "hex output")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--compres", "zstd"}, "--compress"},
		{[]string{"--type", "Event", "--hx"}, "--hex"},
		{[]string{"-t", "Event", "--tpye"}, "--type"},
		{[]string{"--nothing-like-it"}, ""},
	}
	for _, test := range tests {
		if got := suggestFlag(test.args, flagSet); got != test.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
