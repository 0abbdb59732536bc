// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canonical provides fieldwire's deterministic CBOR
// configuration.
//
// The fieldwire format itself is not self-describing, so anything that
// has to describe or display fieldwire data uses CBOR instead:
//
//   - schema fingerprints hash the Core Deterministic Encoding (RFC 8949
//     §4.2) of a schema's wire shape, so the same schema always hashes
//     to the same value regardless of map iteration order or which
//     process produced it;
//   - the CLI's decode command can emit decoded values as a CBOR
//     sequence or as CBOR diagnostic notation.
//
// Struct tag rules follow the convention of the rest of the module: a
// `cbor` tag marks a CBOR-only type (fingerprint inputs), a `json` tag
// marks a type that is serialized as both JSON and CBOR (fxamacker/cbor
// falls back to `json` tags when `cbor` tags are absent). Never put
// both on one field.
//
//	data, err := canonical.Marshal(value)
//	err = canonical.Unmarshal(data, &value)
//	encoder := canonical.NewEncoder(w)
package canonical
