// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"math/big"
	"net/netip"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// ParseLiteral parses a default literal for a descriptor type and
// returns it in the representation lib/dynamic uses for values of that
// type:
//
//	bool                      bool
//	u8 u16 u32 u64 usize      uint64
//	i8 i16 i32 i64 isize      int64
//	u128, i128                wire.Uint128, wire.Int128
//	f32, f64                  float32, float64
//	char                      wire.Char
//	string                    string
//	bytes                     []byte (the literal's UTF-8 bytes)
//	timestamp                 time.Time in UTC (RFC 3339)
//	duration                  time.Duration (Go duration syntax)
//	uuid                      uuid.UUID
//	ipaddr, ipnet             netip.Addr, netip.Prefix
//	rational                  *big.Rat ("a/b" or decimal)
//
// optional<T> parses the literal as T. Other kinds have no literal
// form.
func ParseLiteral(t Type, literal string) (any, error) {
	value, err := parseLiteral(t, literal)
	if err != nil {
		return nil, fmt.Errorf("%w: %q as %s: %v", ErrBadDefault, literal, t, err)
	}
	return value, nil
}

func parseLiteral(t Type, literal string) (any, error) {
	switch t.Kind {
	case KindBool:
		return strconv.ParseBool(literal)
	case KindU8, KindU16, KindU32, KindU64, KindUsize:
		return strconv.ParseUint(literal, 0, UnsignedBits(t.Kind))
	case KindI8, KindI16, KindI32, KindI64, KindIsize:
		return strconv.ParseInt(literal, 0, SignedBits(t.Kind))
	case KindU128:
		return wire.ParseUint128(literal)
	case KindI128:
		return wire.ParseInt128(literal)
	case KindF32:
		f, err := strconv.ParseFloat(literal, 32)
		return float32(f), err
	case KindF64:
		return strconv.ParseFloat(literal, 64)
	case KindChar:
		r, size := utf8.DecodeRuneInString(literal)
		if r == utf8.RuneError || size != len(literal) {
			return nil, fmt.Errorf("want exactly one character")
		}
		return wire.Char(r), nil
	case KindString:
		return literal, nil
	case KindBytes:
		return []byte(literal), nil
	case KindTimestamp:
		ts, err := time.Parse(time.RFC3339Nano, literal)
		return ts.UTC(), err
	case KindDuration:
		return time.ParseDuration(literal)
	case KindUUID:
		return uuid.Parse(literal)
	case KindIPAddr:
		return netip.ParseAddr(literal)
	case KindIPNet:
		return netip.ParsePrefix(literal)
	case KindRational:
		r, ok := new(big.Rat).SetString(strings.TrimSpace(literal))
		if !ok {
			return nil, fmt.Errorf("not a rational number")
		}
		return r, nil
	case KindOptional:
		return parseLiteral(t.Elem(), literal)
	}
	return nil, fmt.Errorf("%s has no literal form", t.Kind)
}

// UnsignedBits returns the width of an unsigned integer kind; usize is
// always 64 bits on the wire.
func UnsignedBits(kind Kind) int {
	switch kind {
	case KindU8:
		return 8
	case KindU16:
		return 16
	case KindU32:
		return 32
	}
	return 64
}

// SignedBits returns the width of a signed integer kind.
func SignedBits(kind Kind) int {
	switch kind {
	case KindI8:
		return 8
	case KindI16:
		return 16
	case KindI32:
		return 32
	}
	return 64
}
