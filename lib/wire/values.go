// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"math/big"
	"unicode/utf8"
)

// Char is a Unicode scalar value encoded as u32. A plain rune field is
// an int32 on the wire; declare the field as Char to get scalar-value
// validation instead.
type Char rune

// Valid reports whether c is a Unicode scalar value (not a surrogate,
// not beyond U+10FFFF).
func (c Char) Valid() bool {
	return utf8.ValidRune(rune(c))
}

func (c Char) String() string {
	return string(rune(c))
}

// MarshalText renders c as the character itself.
func (c Char) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("U+%04X is not a Unicode scalar value", uint32(c))
	}
	return []byte(string(rune(c))), nil
}

// UnmarshalText accepts exactly one character.
func (c *Char) UnmarshalText(text []byte) error {
	r, size := utf8.DecodeRune(text)
	if r == utf8.RuneError || size != len(text) {
		return fmt.Errorf("want exactly one character, got %q", text)
	}
	*c = Char(r)
	return nil
}

// Uint128 is an unsigned 128-bit integer, written low half first.
type Uint128 struct {
	Hi, Lo uint64
}

// Uint128From64 widens v.
func Uint128From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Big returns u as a big.Int.
func (u Uint128) Big() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

func (u Uint128) String() string {
	return u.Big().String()
}

// MarshalText renders u in decimal, so JSON and YAML carry it as a
// string rather than losing precision.
func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Uint128) UnmarshalText(text []byte) error {
	v, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	mask64     = new(big.Int).SetUint64(^uint64(0))
)

// Uint128FromBig converts v, failing when it is negative or does not
// fit in 128 bits.
func Uint128FromBig(v *big.Int) (Uint128, error) {
	if v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return Uint128{}, fmt.Errorf("%s out of range for u128", v)
	}
	lo := new(big.Int).And(v, mask64).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return Uint128{Hi: hi, Lo: lo}, nil
}

// ParseUint128 parses a decimal string.
func ParseUint128(s string) (Uint128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Uint128{}, fmt.Errorf("invalid u128 %q", s)
	}
	return Uint128FromBig(v)
}

// Int128 is a two's complement signed 128-bit integer.
type Int128 struct {
	Hi int64
	Lo uint64
}

// Int128From64 sign-extends v.
func Int128From64(v int64) Int128 {
	return Int128{Hi: v >> 63, Lo: uint64(v)}
}

func (i Int128) IsZero() bool {
	return i.Hi == 0 && i.Lo == 0
}

// Big returns i as a big.Int.
func (i Int128) Big() *big.Int {
	v := new(big.Int).SetInt64(i.Hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(i.Lo))
}

func (i Int128) String() string {
	return i.Big().String()
}

func (i Int128) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Int128) UnmarshalText(text []byte) error {
	v, err := ParseInt128(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Int128FromBig converts v, failing when it does not fit in 128 bits.
func Int128FromBig(v *big.Int) (Int128, error) {
	if v.Cmp(minInt128) < 0 || v.Cmp(maxInt128) > 0 {
		return Int128{}, fmt.Errorf("%s out of range for i128", v)
	}
	// Floor division keeps the low half non-negative for negative v.
	hi := new(big.Int).Rsh(v, 64)
	lo := new(big.Int).Sub(v, new(big.Int).Lsh(hi, 64))
	return Int128{Hi: hi.Int64(), Lo: lo.Uint64()}, nil
}

// ParseInt128 parses a decimal string with optional sign.
func ParseInt128(s string) (Int128, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int128{}, fmt.Errorf("invalid i128 %q", s)
	}
	return Int128FromBig(v)
}

// Optional is implemented only by [Option]. The codec treats any type
// implementing it as an optional value: a presence byte followed by
// the value when present.
type Optional interface {
	isOptional()
}

// Option holds a value that may be absent, for fields where a pointer
// would be the wrong ownership model. The zero Option is absent.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Option.
func Some[T any](v T) Option[T] {
	return Option[T]{Value: v, Valid: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (Option[T]) isOptional() {}

// Tuple is implemented by the tuple-shaped types of this package. The
// codec encodes their exported fields in declaration order with no
// framing and never omits them as defaults.
type Tuple interface {
	isTuple()
}

// Pair is a two-element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (Pair[A, B]) isTuple() {}

// Triple is a three-element tuple.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (Triple[A, B, C]) isTuple() {}

// Range is a half-open interval, encoded as start then end.
type Range[T any] struct {
	Start T
	End   T
}

func (Range[T]) isTuple() {}

// SharedValue is the codec's view of [Shared]: the codec reads the
// referenced value through SharedRef and installs a freshly decoded one
// through AdoptRef.
type SharedValue interface {
	// SharedRef returns the *T this value points at, possibly nil.
	SharedRef() any
	// AdoptRef returns a new shared value pointing at ref, which must
	// be a *T.
	AdoptRef(ref any) any
}

// Shared is a value that may be referenced from several places and is
// copied on write. It is transparent on the wire: its encoding is the
// encoding of the referenced T, and decoding always produces a fresh
// T that no other Shared references. The zero Shared refers to the
// zero T.
type Shared[T any] struct {
	ref *T
}

// NewShared returns a Shared holding a copy of v.
func NewShared[T any](v T) Shared[T] {
	return Shared[T]{ref: &v}
}

// Get returns a shallow copy of the referenced value.
func (s Shared[T]) Get() T {
	if s.ref == nil {
		var zero T
		return zero
	}
	return *s.ref
}

// Update returns a new Shared holding the result of applying fn to a
// copy of the current value. s and every other holder of the original
// reference are unaffected.
func (s Shared[T]) Update(fn func(*T)) Shared[T] {
	v := s.Get()
	fn(&v)
	return Shared[T]{ref: &v}
}

// Same reports whether s and other reference the same value.
func (s Shared[T]) Same(other Shared[T]) bool {
	return s.ref == other.ref
}

func (s Shared[T]) SharedRef() any {
	return s.ref
}

func (Shared[T]) AdoptRef(ref any) any {
	return Shared[T]{ref: ref.(*T)}
}

// Marshaler is implemented by types that write their own wire form.
// The codec calls MarshalWire in place of its reflection-derived
// encoding.
type Marshaler interface {
	MarshalWire(w *Writer) error
}

// Unmarshaler is implemented by pointer types that read their own wire
// form.
type Unmarshaler interface {
	UnmarshalWire(r *Reader) error
}
