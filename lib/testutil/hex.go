// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/hex"
	"strings"
)

// Hex decodes a hex string, ignoring spaces, newlines, tabs and
// underscores. Fails the test on malformed input.
func Hex(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, s string) []byte {
	t.Helper()
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\t', '\r', '_':
			return -1
		}
		return r
	}, s)
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		t.Fatalf("testutil.Hex(%q): %v", s, err)
	}
	return decoded
}

// DumpHex formats data as space-separated groups of up to eight bytes.
func DumpHex(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 8 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := min(i+8, len(data))
		b.WriteString(hex.EncodeToString(data[i:end]))
	}
	return b.String()
}
