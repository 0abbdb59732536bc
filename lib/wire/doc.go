// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the byte-level layer of the fieldwire format:
// fixed-width primitives, length-prefixed strings and byte slices,
// presence flags, record and variant framing, and the error taxonomy
// shared by every decoder.
//
// Every multi-byte integer is little-endian and fixed width. The
// platform-sized kinds (int, uint, uintptr) are always written as eight
// bytes so that values move between 32-bit and 64-bit hosts unchanged.
// Floats are written as their IEEE-754 bit patterns. A bool is one byte
// and only the value 1 reads back as true: any other byte reads as
// false without error. Readers must keep this leniency because existing
// writers rely on it.
//
// Lengths (string bytes, sequence elements, map entries) are unsigned
// 32-bit prefixes. [Writer.WriteLen] fails with [ErrTooLong] rather than
// truncate a length that does not fit. Records start with an unsigned
// 16-bit field count followed by that many (16-bit field ID, value)
// pairs. Variants start with an unsigned 16-bit variant ID.
//
// [Writer] and [Reader] are cursors over an io.Writer and io.Reader.
// They are not safe for concurrent use; distinct cursors over distinct
// streams are independent.
//
// # Value types
//
// Go has no native spelling for some of the wire's value shapes, so
// this package provides them: [Char] (a Unicode scalar value written as
// u32), [Uint128] and [Int128], [Option] (an optional value that is not
// a pointer), [Pair], [Triple] and [Range] (tuple-shaped values encoded
// by concatenation), and [Shared] (a copy-on-write shared value that is
// transparent on the wire). The reflection engine in lib/codec
// recognizes them.
//
// # Errors
//
// Every failure is an [*Error] with one [Kind] from a closed set: I/O,
// parsing, invalid timestamp, invalid char, unknown variant and missing
// required field. Record decoders attach field IDs with [WithField] as
// errors propagate outward, so Error.Path holds the full chain of field
// IDs from the outermost record to the one that failed. [IsEOF]
// distinguishes truncated input from malformed input.
package wire
