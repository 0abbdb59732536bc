// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"unicode/utf8"
)

// DefaultMaxLength bounds length prefixes accepted by a Reader unless
// SetMaxLength overrides it. The format allows up to 2^32-1; this limit
// stops a corrupt prefix from requesting gigabytes.
const DefaultMaxLength = 1 << 30

// Byte slices up to this size are allocated in one step. Longer ones
// grow as bytes actually arrive, so a corrupt length prefix over a
// short stream fails with io.ErrUnexpectedEOF instead of allocating the
// advertised size first.
const eagerAllocLimit = 64 << 10

// Reader decodes primitives and framing from an io.Reader. End of input
// surfaces as a KindIO *Error wrapping io.EOF when no byte of the
// primitive had been read, and io.ErrUnexpectedEOF otherwise.
type Reader struct {
	r         io.Reader
	scratch   [16]byte
	consumed  int64
	maxLength int
}

// NewReader returns a Reader over r. No read-ahead is performed: the
// Reader consumes exactly the bytes of the values it decodes.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, maxLength: DefaultMaxLength}
}

// SetMaxLength changes the largest length prefix the Reader accepts.
// Values of zero or less restore the default.
func (r *Reader) SetMaxLength(n int) {
	if n <= 0 {
		n = DefaultMaxLength
	}
	r.maxLength = n
}

// Consumed returns the number of bytes read so far.
func (r *Reader) Consumed() int64 {
	return r.consumed
}

func (r *Reader) fill(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.consumed += int64(n)
	return IOError(err)
}

// Read reads exactly len(p) raw bytes.
func (r *Reader) Read(p []byte) error {
	return r.fill(p)
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.fill(r.scratch[:1]); err != nil {
		return 0, err
	}
	return r.scratch[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.fill(r.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.scratch[:2]), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.fill(r.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.scratch[:4]), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.fill(r.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.scratch[:8]), nil
}

func (r *Reader) ReadUint128() (Uint128, error) {
	if err := r.fill(r.scratch[:16]); err != nil {
		return Uint128{}, err
	}
	return Uint128{
		Lo: binary.LittleEndian.Uint64(r.scratch[:8]),
		Hi: binary.LittleEndian.Uint64(r.scratch[8:16]),
	}, nil
}

// ReadUint reads an eight-byte platform-sized unsigned integer. On
// 32-bit hosts values above the native range fail with KindParsing.
func (r *Reader) ReadUint() (uint, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	if uint64(uint(v)) != v {
		return 0, Parsingf("usize %d overflows this platform", v)
	}
	return uint(v), nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadInt reads an eight-byte platform-sized signed integer.
func (r *Reader) ReadInt() (int, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return 0, err
	}
	if int64(int(v)) != v {
		return 0, Parsingf("isize %d overflows this platform", v)
	}
	return int(v), nil
}

func (r *Reader) ReadInt128() (Int128, error) {
	v, err := r.ReadUint128()
	return Int128{Hi: int64(v.Hi), Lo: v.Lo}, err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBool reads one byte. Only 1 is true; every other value is false.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v == 1, err
}

// ReadChar reads a u32 and validates it as a Unicode scalar value.
func (r *Reader) ReadChar() (Char, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	c := Char(v)
	if v > utf8.MaxRune || !c.Valid() {
		return 0, Errorf(KindInvalidChar, "U+%04X is not a Unicode scalar value", v)
	}
	return c, nil
}

// ReadLen reads a u32 length or count prefix and checks it against the
// configured maximum.
func (r *Reader) ReadLen() (int, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if uint64(v) > uint64(r.maxLength) {
		return 0, Parsingf("length %d exceeds limit %d", v, r.maxLength)
	}
	return int(v), nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	p, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", Parsingf("string is not valid UTF-8")
	}
	return string(p), nil
}

// ReadBytes reads a length-prefixed byte slice. The result is never nil
// for a zero length, so callers can tell it from an absent value.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	return r.readN(n)
}

func (r *Reader) readN(n int) ([]byte, error) {
	if n <= eagerAllocLimit {
		p := make([]byte, n)
		if err := r.fill(p); err != nil {
			return nil, Truncated(err)
		}
		return p, nil
	}
	var buf bytes.Buffer
	buf.Grow(eagerAllocLimit)
	copied, err := io.CopyN(&buf, r.r, int64(n))
	r.consumed += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, IOError(err)
	}
	return buf.Bytes(), nil
}

// ReadPresence reads the flag that precedes an optional value.
func (r *Reader) ReadPresence() (bool, error) {
	return r.ReadBool()
}

// ReadFieldCount reads the u16 count that starts a record.
func (r *Reader) ReadFieldCount() (int, error) {
	v, err := r.ReadUint16()
	return int(v), err
}

func (r *Reader) ReadFieldID() (uint16, error) {
	return r.ReadUint16()
}

func (r *Reader) ReadVariant() (uint16, error) {
	return r.ReadUint16()
}
