// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dynamic

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// canonical converts an input value of scalar type t to the
// representation schema.ParseLiteral uses, so that it can be written
// and compared against declared defaults.
func canonical(t schema.Type, v any) (any, error) {
	switch t.Kind {
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(t, v)
		}
		return b, nil
	case schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64, schema.KindUsize:
		return toUint(t, v)
	case schema.KindI8, schema.KindI16, schema.KindI32, schema.KindI64, schema.KindIsize:
		return toInt(t, v)
	case schema.KindU128:
		return toUint128(t, v)
	case schema.KindI128:
		return toInt128(t, v)
	case schema.KindF32:
		f, err := toFloat(t, v)
		return float32(f), err
	case schema.KindF64:
		return toFloat(t, v)
	case schema.KindChar:
		return toChar(t, v)
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(t, v)
		}
		return s, nil
	case schema.KindBytes:
		return toBytes(t, v)
	case schema.KindUnit:
		return struct{}{}, nil
	case schema.KindTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			return wrapParse(t, x, func(s string) (time.Time, error) {
				ts, err := time.Parse(time.RFC3339Nano, s)
				return ts.UTC(), err
			})
		}
	case schema.KindDuration:
		switch x := v.(type) {
		case time.Duration:
			return x, nil
		case string:
			return wrapParse(t, x, time.ParseDuration)
		}
	case schema.KindUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case string:
			return wrapParse(t, x, uuid.Parse)
		}
	case schema.KindIPAddr:
		switch x := v.(type) {
		case netip.Addr:
			return x, nil
		case string:
			return wrapParse(t, x, netip.ParseAddr)
		}
	case schema.KindIPNet:
		switch x := v.(type) {
		case netip.Prefix:
			return x, nil
		case string:
			return wrapParse(t, x, netip.ParsePrefix)
		}
	case schema.KindRational:
		return toRat(t, v)
	}
	return nil, mismatch(t, v)
}

func toUint(t schema.Type, v any) (uint64, error) {
	var n uint64
	switch x := v.(type) {
	case uint64:
		n = x
	case uint:
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case int, int8, int16, int32, int64:
		i := signed(x)
		if i < 0 {
			return 0, wire.Parsingf("%d out of range for %s", i, t)
		}
		n = uint64(i)
	case float64:
		if x < 0 || x >= math.MaxUint64 || x != math.Trunc(x) {
			return 0, wire.Parsingf("%v is not a %s", x, t)
		}
		n = uint64(x)
	case json.Number:
		parsed, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, wire.Parsingf("%s is not a %s", x, t)
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseUint(x, 0, 64)
		if err != nil {
			return 0, wire.Parsingf("%q is not a %s", x, t)
		}
		n = parsed
	default:
		return 0, mismatch(t, v)
	}
	if bits := schema.UnsignedBits(t.Kind); bits < 64 && n >= 1<<bits {
		return 0, wire.Parsingf("%d out of range for %s", n, t)
	}
	return n, nil
}

func signed(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	}
	return v.(int64)
}

func toInt(t schema.Type, v any) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int, int8, int16, int32, int64:
		n = signed(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, wire.Parsingf("%d out of range for %s", x, t)
		}
		n = int64(x)
	case float64:
		if x < math.MinInt64 || x >= math.MaxInt64 || x != math.Trunc(x) {
			return 0, wire.Parsingf("%v is not a %s", x, t)
		}
		n = int64(x)
	case json.Number:
		parsed, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			return 0, wire.Parsingf("%s is not a %s", x, t)
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(x, 0, 64)
		if err != nil {
			return 0, wire.Parsingf("%q is not a %s", x, t)
		}
		n = parsed
	default:
		return 0, mismatch(t, v)
	}
	if bits := schema.SignedBits(t.Kind); bits < 64 && (n < -1<<(bits-1) || n >= 1<<(bits-1)) {
		return 0, wire.Parsingf("%d out of range for %s", n, t)
	}
	return n, nil
}

func toUint128(t schema.Type, v any) (wire.Uint128, error) {
	switch x := v.(type) {
	case wire.Uint128:
		return x, nil
	case string:
		return wrapParse(t, x, wire.ParseUint128)
	case json.Number:
		return wrapParse(t, x.String(), wire.ParseUint128)
	}
	n, err := toUint(schema.Scalar(schema.KindU64), v)
	if err != nil {
		return wire.Uint128{}, mismatch(t, v)
	}
	return wire.Uint128From64(n), nil
}

func toInt128(t schema.Type, v any) (wire.Int128, error) {
	switch x := v.(type) {
	case wire.Int128:
		return x, nil
	case string:
		return wrapParse(t, x, wire.ParseInt128)
	case json.Number:
		return wrapParse(t, x.String(), wire.ParseInt128)
	}
	n, err := toInt(schema.Scalar(schema.KindI64), v)
	if err != nil {
		return wire.Int128{}, mismatch(t, v)
	}
	return wire.Int128From64(n), nil
}

func wrapParse[T any](t schema.Type, s string, parse func(string) (T, error)) (T, error) {
	v, err := parse(s)
	if err != nil {
		var zero T
		return zero, &wire.Error{Kind: wire.KindParsing, Detail: fmt.Sprintf("%q as %s", s, t), Err: err}
	}
	return v, nil
}

func toFloat(t schema.Type, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int, int8, int16, int32, int64:
		return float64(signed(x)), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return wrapParse(t, x.String(), func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	case string:
		return wrapParse(t, x, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	}
	return 0, mismatch(t, v)
}

func toChar(t schema.Type, v any) (wire.Char, error) {
	var c wire.Char
	switch x := v.(type) {
	case wire.Char:
		c = x
	case rune:
		c = wire.Char(x)
	case string:
		r, size := utf8.DecodeRuneInString(x)
		if size == 0 || size != len(x) || (r == utf8.RuneError && size == 1) {
			return 0, wire.Parsingf("%q is not exactly one character", x)
		}
		c = wire.Char(r)
	default:
		return 0, mismatch(t, v)
	}
	if !c.Valid() {
		return 0, wire.Errorf(wire.KindInvalidChar, "U+%04X is not a Unicode scalar value", int32(c))
	}
	return c, nil
}

func toBytes(t schema.Type, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return wrapParse(t, x, base64.StdEncoding.DecodeString)
	case []any:
		out := make([]byte, len(x))
		for i, element := range x {
			b, err := toUint(schema.Scalar(schema.KindU8), element)
			if err != nil {
				return nil, err
			}
			out[i] = byte(b)
		}
		return out, nil
	}
	return nil, mismatch(t, v)
}

func toRat(t schema.Type, v any) (*big.Rat, error) {
	switch x := v.(type) {
	case *big.Rat:
		return x, nil
	case string:
		return ratFromString(t, x)
	case json.Number:
		return ratFromString(t, x.String())
	case int, int8, int16, int32, int64:
		return new(big.Rat).SetInt64(signed(x)), nil
	case float64:
		r := new(big.Rat)
		if r.SetFloat64(x) == nil {
			return nil, wire.Parsingf("%v is not a %s", x, t)
		}
		return r, nil
	}
	return nil, mismatch(t, v)
}

func ratFromString(t schema.Type, s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, wire.Parsingf("%q is not a %s", s, t)
	}
	return r, nil
}

// equalScalar compares two canonical values of the same scalar type.
func equalScalar(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *big.Rat:
		y, ok := b.(*big.Rat)
		return ok && x.Cmp(y) == 0
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return a == b
}

// present converts a canonical scalar to its decoded form.
func present(v any) any {
	switch x := v.(type) {
	case wire.Uint128, wire.Int128, uuid.UUID, netip.Addr, netip.Prefix:
		return x.(fmt.Stringer).String()
	case wire.Char:
		return string(rune(x))
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case *big.Rat:
		return x.RatString()
	}
	return v
}
