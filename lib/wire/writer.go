// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer encodes primitives and framing onto an io.Writer. Errors from
// the underlying writer are returned as KindIO *Error values.
type Writer struct {
	w       io.Writer
	scratch [16]byte
	written int64
}

// NewWriter returns a Writer that writes to w. Writes are passed
// through unbuffered; wrap w in a bufio.Writer for small-write heavy
// workloads.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.written += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return IOError(err)
}

// Write writes raw bytes with no framing.
func (w *Writer) Write(p []byte) error {
	return w.write(p)
}

func (w *Writer) WriteUint8(v uint8) error {
	w.scratch[0] = v
	return w.write(w.scratch[:1])
}

func (w *Writer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	return w.write(w.scratch[:2])
}

func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	return w.write(w.scratch[:4])
}

func (w *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], v)
	return w.write(w.scratch[:8])
}

func (w *Writer) WriteUint128(v Uint128) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], v.Lo)
	binary.LittleEndian.PutUint64(w.scratch[8:16], v.Hi)
	return w.write(w.scratch[:16])
}

// WriteUint writes a platform-sized unsigned integer as eight bytes.
func (w *Writer) WriteUint(v uint) error {
	return w.WriteUint64(uint64(v))
}

func (w *Writer) WriteInt8(v int8) error   { return w.WriteUint8(uint8(v)) }
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

// WriteInt writes a platform-sized signed integer as eight bytes.
func (w *Writer) WriteInt(v int) error { return w.WriteUint64(uint64(int64(v))) }

func (w *Writer) WriteInt128(v Int128) error {
	return w.WriteUint128(Uint128{Hi: uint64(v.Hi), Lo: v.Lo})
}

func (w *Writer) WriteFloat32(v float32) error { return w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(math.Float64bits(v)) }

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteChar writes c as its u32 scalar value. Surrogates and values
// beyond U+10FFFF cannot be decoded by any reader and are rejected with
// KindInvalidChar.
func (w *Writer) WriteChar(c Char) error {
	if !c.Valid() {
		return Errorf(KindInvalidChar, "U+%04X is not a Unicode scalar value", uint32(c))
	}
	return w.WriteUint32(uint32(c))
}

// WriteLen writes a u32 length or count prefix.
func (w *Writer) WriteLen(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return &Error{Kind: KindIO, Detail: fmt.Sprintf("length %d", n), Err: ErrTooLong}
	}
	return w.WriteUint32(uint32(n))
}

// WriteString writes a u32 byte length followed by the bytes of s.
// Go strings may hold invalid UTF-8; such strings are written as is and
// fail on decode, matching what any other writer would produce.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteLen(len(s)); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	n, err := io.WriteString(w.w, s)
	w.written += int64(n)
	return IOError(err)
}

// WriteBytes writes a u32 length followed by p. This is the encoding
// of a sequence of u8.
func (w *Writer) WriteBytes(p []byte) error {
	if err := w.WriteLen(len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	return w.write(p)
}

// WritePresence writes the one-byte flag that precedes an optional
// value.
func (w *Writer) WritePresence(present bool) error {
	return w.WriteBool(present)
}

// WriteFieldCount writes the u16 count that starts a record.
func (w *Writer) WriteFieldCount(n int) error {
	if n < 0 || n > math.MaxUint16 {
		return &Error{Kind: KindIO, Detail: fmt.Sprintf("field count %d", n), Err: ErrTooLong}
	}
	return w.WriteUint16(uint16(n))
}

// WriteFieldID writes the u16 ID that precedes a record field's value.
func (w *Writer) WriteFieldID(id uint16) error {
	return w.WriteUint16(id)
}

// WriteVariant writes the u16 tag of a union value.
func (w *Writer) WriteVariant(id uint16) error {
	return w.WriteUint16(id)
}
