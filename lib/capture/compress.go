// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"fmt"
)

// Compression identifies the frame format wrapped around a capture.
type Compression uint8

const (
	// None writes the values as they are.
	None Compression = iota

	// Zstd wraps the values in a zstd frame at the default level.
	// Better ratios for captures of text-heavy records.
	Zstd

	// LZ4 wraps the values in an LZ4 frame. Faster to write and read
	// than zstd at a lower ratio.
	LZ4
)

// Frame magics, as they appear at the start of the stream.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the name used by ParseCompression and the CLI.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name. The empty string means
// None.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, zstd or lz4)", name)
	}
}

// Detect reports the compression of a capture from its first bytes.
// Fewer than four bytes, or bytes matching no frame magic, are None.
func Detect(prefix []byte) Compression {
	switch {
	case bytes.HasPrefix(prefix, zstdMagic):
		return Zstd
	case bytes.HasPrefix(prefix, lz4Magic):
		return LZ4
	default:
		return None
	}
}
