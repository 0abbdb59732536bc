// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema derives and validates the schemas that drive the
// fieldwire record and union codecs.
//
// A record is a Go struct. Each exported field gets a field ID, either
// explicit in its `wire` tag or its ordinal position among the struct's
// exported fields, and a [Presence] decided by [Classify]:
//
//	type Message struct {
//		Sequence uint64            `wire:"0"`
//		Note     *string           `wire:"1"`             // optional: pointer
//		Retries  uint32            `wire:"2,default=3"`   // optional: default
//		Tags     []string          `wire:"3,optional"`
//		Cache    map[string][]byte `wire:"-"`             // never written
//	}
//
// Classify is the one place presence is decided. A field is Skipped if
// tagged skip; Required if tagged required (which cannot be combined
// with optional, skip or a default); Optional if tagged optional, if it
// declares a default, or if its type carries its own presence flag (a
// pointer or wire.Option); Required otherwise. Schema documents go
// through the same function.
//
// [RecordOf] builds a struct's [Record] once and caches it, including
// any error: duplicate IDs, malformed tags and defaults that do not
// parse as their field type all fail before a single value of the type
// is encoded or decoded.
//
// A union is a Go interface type whose implementations are registered
// as cases with [RegisterUnion]. Each case gets a variant ID, explicit
// via [WithID] or its position in the registration call. A case type
// that is a struct with no fields carries no payload; any other case
// type is its own payload.
//
// # Descriptors
//
// Besides Go types, schemas can be written as YAML or JSONC documents
// ([Document]) using type expressions such as "map<string, list<u64>>"
// ([ParseType]). [Compile] validates documents into a [Catalog] under
// the same rules as Go types; [Describe] produces a Catalog from Go
// types. Catalogs feed the descriptor-driven codec in lib/dynamic,
// [Catalog.FingerprintOf] (a keyed BLAKE3 hash of a type's wire shape
// in canonical CBOR), and [CheckCompatibility], which reports how
// values written under one schema fare when read under another.
package schema
