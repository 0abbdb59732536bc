// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/bureau-foundation/fieldwire/lib/testutil"
)

func TestPrimitiveLayout(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Writer) error
		want  string
	}{
		{"u8", func(w *Writer) error { return w.WriteUint8(0xab) }, "ab"},
		{"u16", func(w *Writer) error { return w.WriteUint16(0x0102) }, "0201"},
		{"u32", func(w *Writer) error { return w.WriteUint32(0x01020304) }, "04030201"},
		{"u64", func(w *Writer) error { return w.WriteUint64(1) }, "0100000000000000"},
		{"usize is always eight bytes", func(w *Writer) error { return w.WriteUint(7) }, "0700000000000000"},
		{"isize negative", func(w *Writer) error { return w.WriteInt(-1) }, "ffffffffffffffff"},
		{"i16 negative", func(w *Writer) error { return w.WriteInt16(-2) }, "feff"},
		{"u128 low half first", func(w *Writer) error {
			return w.WriteUint128(Uint128{Hi: 2, Lo: 1})
		}, "0100000000000000 0200000000000000"},
		{"i128 minus one", func(w *Writer) error {
			return w.WriteInt128(Int128From64(-1))
		}, "ffffffffffffffff ffffffffffffffff"},
		{"f32", func(w *Writer) error { return w.WriteFloat32(1.0) }, "0000803f"},
		{"f64", func(w *Writer) error { return w.WriteFloat64(-2.5) }, "00000000000004c0"},
		{"bool true", func(w *Writer) error { return w.WriteBool(true) }, "01"},
		{"bool false", func(w *Writer) error { return w.WriteBool(false) }, "00"},
		{"char", func(w *Writer) error { return w.WriteChar('é') }, "e9000000"},
		{"string", func(w *Writer) error { return w.WriteString("hi") }, "02000000 6869"},
		{"empty string", func(w *Writer) error { return w.WriteString("") }, "00000000"},
		{"bytes", func(w *Writer) error { return w.WriteBytes([]byte{9, 8}) }, "02000000 0908"},
		{"field count", func(w *Writer) error { return w.WriteFieldCount(3) }, "0300"},
		{"variant", func(w *Writer) error { return w.WriteVariant(258) }, "0201"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if err := test.write(w); err != nil {
				t.Fatalf("write: %v", err)
			}
			want := testutil.Hex(t, test.want)
			if !bytes.Equal(buf.Bytes(), want) {
				t.Errorf("got %x, want %x", buf.Bytes(), want)
			}
			if w.Written() != int64(len(want)) {
				t.Errorf("Written() = %d, want %d", w.Written(), len(want))
			}
		})
	}
}

func TestPrimitiveRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	steps := []error{
		w.WriteInt8(math.MinInt8),
		w.WriteInt32(math.MinInt32),
		w.WriteInt64(math.MaxInt64),
		w.WriteUint64(math.MaxUint64),
		w.WriteFloat64(math.Inf(-1)),
		w.WriteUint128(Uint128{Hi: math.MaxUint64, Lo: 42}),
		w.WriteInt128(Int128{Hi: math.MinInt64, Lo: 0}),
		w.WriteChar('\U0010FFFF'),
		w.WriteString("żółw"),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("write step %d: %v", i, err)
		}
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if v, err := r.ReadInt8(); err != nil || v != math.MinInt8 {
		t.Errorf("ReadInt8 = %d, %v", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != math.MinInt32 {
		t.Errorf("ReadInt32 = %d, %v", v, err)
	}
	if v, err := r.ReadInt64(); err != nil || v != math.MaxInt64 {
		t.Errorf("ReadInt64 = %d, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != math.MaxUint64 {
		t.Errorf("ReadUint64 = %d, %v", v, err)
	}
	if v, err := r.ReadFloat64(); err != nil || !math.IsInf(v, -1) {
		t.Errorf("ReadFloat64 = %v, %v", v, err)
	}
	if v, err := r.ReadUint128(); err != nil || v != (Uint128{Hi: math.MaxUint64, Lo: 42}) {
		t.Errorf("ReadUint128 = %+v, %v", v, err)
	}
	if v, err := r.ReadInt128(); err != nil || v != (Int128{Hi: math.MinInt64}) {
		t.Errorf("ReadInt128 = %+v, %v", v, err)
	}
	if v, err := r.ReadChar(); err != nil || v != '\U0010FFFF' {
		t.Errorf("ReadChar = %q, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "żółw" {
		t.Errorf("ReadString = %q, %v", v, err)
	}
	if r.Consumed() != int64(buf.Len()) {
		t.Errorf("Consumed() = %d, want %d", r.Consumed(), buf.Len())
	}
	if _, err := r.ReadUint8(); !errors.Is(err, io.EOF) {
		t.Errorf("read past end: got %v, want io.EOF", err)
	}
}

func TestBoolIsLenient(t *testing.T) {
	for _, b := range []byte{0, 2, 0x7f, 0xff} {
		r := NewReader(bytes.NewReader([]byte{b}))
		v, err := r.ReadBool()
		if err != nil {
			t.Fatalf("ReadBool(%#x): %v", b, err)
		}
		if v {
			t.Errorf("ReadBool(%#x) = true, want false", b)
		}
	}
}

func TestInvalidChar(t *testing.T) {
	for _, input := range []string{"00d80000", "00001100", "ffffffff"} {
		r := NewReader(bytes.NewReader(testutil.Hex(t, input)))
		_, err := r.ReadChar()
		if !errors.Is(err, ErrInvalidChar) {
			t.Errorf("ReadChar(%s): got %v, want ErrInvalidChar", input, err)
		}
	}

	w := NewWriter(io.Discard)
	if err := w.WriteChar(0xD800); KindOf(err) != KindInvalidChar {
		t.Errorf("WriteChar(surrogate): got %v, want KindInvalidChar", err)
	}
}

func TestInvalidUTF8(t *testing.T) {
	r := NewReader(bytes.NewReader(testutil.Hex(t, "02000000 c328")))
	_, err := r.ReadString()
	if !errors.Is(err, ErrParsing) {
		t.Fatalf("got %v, want ErrParsing", err)
	}
}

func TestTruncation(t *testing.T) {
	t.Run("clean end", func(t *testing.T) {
		r := NewReader(bytes.NewReader(nil))
		_, err := r.ReadUint32()
		if !errors.Is(err, io.EOF) {
			t.Fatalf("got %v, want io.EOF", err)
		}
		if KindOf(err) != KindIO {
			t.Errorf("kind = %v, want KindIO", KindOf(err))
		}
	})
	t.Run("partial primitive", func(t *testing.T) {
		r := NewReader(bytes.NewReader([]byte{1, 2}))
		_, err := r.ReadUint32()
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
		}
		if !IsEOF(err) {
			t.Error("IsEOF = false for truncated primitive")
		}
	})
	t.Run("string body missing", func(t *testing.T) {
		r := NewReader(bytes.NewReader(testutil.Hex(t, "05000000")))
		_, err := r.ReadString()
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
		}
	})
	t.Run("large prefix over short stream", func(t *testing.T) {
		r := NewReader(bytes.NewReader(testutil.Hex(t, "00000010 aabbcc")))
		_, err := r.ReadBytes()
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
		}
		if r.Consumed() != 7 {
			t.Errorf("Consumed() = %d, want 7", r.Consumed())
		}
	})
}

func TestMaxLength(t *testing.T) {
	r := NewReader(bytes.NewReader(testutil.Hex(t, "11000000")))
	r.SetMaxLength(16)
	_, err := r.ReadLen()
	if !errors.Is(err, ErrParsing) {
		t.Fatalf("got %v, want ErrParsing", err)
	}
	if !strings.Contains(err.Error(), "exceeds limit 16") {
		t.Errorf("error %q does not mention the limit", err)
	}
}

func TestLargeBytesRoundtrip(t *testing.T) {
	payload := bytes.Repeat([]byte("fieldwire"), eagerAllocLimit/4)
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteBytes(payload); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	got, err := NewReader(&buf).ReadBytes()
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("large payload mismatch")
	}
}

func TestFieldCountOverflow(t *testing.T) {
	err := NewWriter(io.Discard).WriteFieldCount(math.MaxUint16 + 1)
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("got %v, want ErrTooLong", err)
	}
	if KindOf(err) != KindIO {
		t.Errorf("kind = %v, want KindIO", KindOf(err))
	}
}

func TestWithFieldBuildsFullPath(t *testing.T) {
	inner := Errorf(KindMissingField, "")
	err := WithField(WithField(WithField(inner, 3), 1), 7)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("errors.As failed for %T", err)
	}
	if got := FormatPath(e.Path); got != "7.1.3" {
		t.Errorf("path = %s, want 7.1.3", got)
	}
	if id, ok := e.Field(); !ok || id != 3 {
		t.Errorf("Field() = %d, %v, want 3, true", id, ok)
	}
	if !errors.Is(err, ErrMissingField) {
		t.Error("errors.Is(err, ErrMissingField) = false")
	}
	if len(inner.Path) != 0 {
		t.Errorf("wrapping mutated the inner error: path %v", inner.Path)
	}
	if got := err.Error(); got != "field 7.1.3: required field missing" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithFieldClassifiesForeignErrors(t *testing.T) {
	parseErr := errors.New("bad uuid")
	err := WithField(parseErr, 4)
	if KindOf(err) != KindParsing {
		t.Errorf("kind = %v, want KindParsing", KindOf(err))
	}
	if !errors.Is(err, parseErr) {
		t.Error("cause lost")
	}

	eofErr := WithField(io.ErrUnexpectedEOF, 2)
	if KindOf(eofErr) != KindIO || !IsEOF(eofErr) {
		t.Errorf("got %v, want KindIO end of input", eofErr)
	}

	if WithField(nil, 1) != nil {
		t.Error("WithField(nil) != nil")
	}
}

func TestTruncatedKeepsPath(t *testing.T) {
	err := Truncated(WithField(IOError(io.EOF), 5))
	if errors.Is(err, io.EOF) {
		t.Error("clean EOF survived Truncated")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("got %v, want io.ErrUnexpectedEOF", err)
	}
	if id, _ := AsError(err).Field(); id != 5 {
		t.Errorf("field = %d, want 5", id)
	}
}

func TestInt128Big(t *testing.T) {
	for _, s := range []string{"0", "-1", "170141183460469231731687303715884105727", "-170141183460469231731687303715884105728", "-18446744073709551617"} {
		v, err := ParseInt128(s)
		if err != nil {
			t.Fatalf("ParseInt128(%s): %v", s, err)
		}
		if v.String() != s {
			t.Errorf("ParseInt128(%s).String() = %s", s, v.String())
		}
	}
	if _, err := ParseInt128("170141183460469231731687303715884105728"); err == nil {
		t.Error("ParseInt128 accepted 2^127")
	}
	if _, err := ParseUint128("-1"); err == nil {
		t.Error("ParseUint128 accepted -1")
	}
	u, err := ParseUint128("340282366920938463463374607431768211455")
	if err != nil {
		t.Fatalf("ParseUint128(max): %v", err)
	}
	if u != (Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64}) {
		t.Errorf("ParseUint128(max) = %+v", u)
	}
}

func TestSharedCopyOnWrite(t *testing.T) {
	original := NewShared([]int{1, 2})
	alias := original
	updated := original.Update(func(v *[]int) { *v = append([]int(nil), 9) })

	if !original.Same(alias) {
		t.Error("copies of a Shared should reference the same value")
	}
	if updated.Same(original) {
		t.Error("Update returned the original reference")
	}
	if got := original.Get(); len(got) != 2 {
		t.Errorf("original changed to %v", got)
	}
	if got := updated.Get(); len(got) != 1 || got[0] != 9 {
		t.Errorf("updated = %v", got)
	}

	var zero Shared[string]
	if zero.Get() != "" {
		t.Error("zero Shared should read as the zero value")
	}
}
