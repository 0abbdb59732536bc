// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dynamic encodes and decodes fieldwire values described by a
// schema.Catalog instead of Go types. It produces exactly the bytes
// package codec produces for the equivalent Go value, so tools can
// read and write any stream whose schema document they hold.
//
// Decoded values use JSON-friendly Go types:
//
//	bool                        bool
//	u8 … u64, usize             uint64
//	i8 … i64, isize             int64
//	f32, f64                    float32, float64
//	u128, i128                  decimal string
//	char, string                string
//	bytes                       []byte
//	unit                        struct{}{}
//	timestamp                   RFC 3339 string, UTC
//	duration                    Go duration string ("1m30s")
//	uuid, ipaddr, ipnet         canonical string form
//	rational                    "a/b" string
//	optional<T>                 nil or T
//	list, set, tuple, array     []any
//	range<T>                    {"start": T, "end": T}
//	map<string, V>              map[string]any
//	map<K, V>                   []any of {"key": K, "value": V}
//	record                      map[string]any keyed by field name
//	union                       {"variant": name, "value": payload}
//
// Encoding accepts those forms, the forms ParseLiteral returns, and
// what encoding/json produces when decoding into any with UseNumber:
// json.Number or float64 for numbers, strings for 128-bit integers and
// external types, base64 strings for bytes. Maps with non-string keys
// also accept a JSON object whose keys parse as the key type.
//
// Record semantics match package codec: required fields are always
// written and must be present in the input, optional fields are left
// out when absent or equal to their default, and decoding fills every
// optional field the input omits with its default.
package dynamic
