// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/fieldwire/lib/canonical"
)

// Fingerprint identifies the wire shape of a type: two definitions with
// equal fingerprints encode and decode identically. Field and variant
// names do not participate, so renaming a field keeps the fingerprint;
// the names of referenced types do.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// fingerprintDomainKey separates fingerprint hashes from any other
// BLAKE3 keyed hash of the same bytes. Changing it changes every
// fingerprint.
var fingerprintDomainKey = [32]byte{
	'f', 'i', 'e', 'l', 'd', 'w', 'i', 'r', 'e', '.', 's', 'c', 'h', 'e', 'm', 'a',
	'.', 'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0,
}

// shapeFingerprintInput is the hashed structure. cbor-only tags with
// integer keys keep the encoding compact and independent of Go names.
type shapeFingerprintInput struct {
	Root string                `cbor:"1,keyasint"`
	Defs map[string]shapeOfDef `cbor:"2,keyasint"`
}

type shapeOfDef struct {
	Union    bool           `cbor:"1,keyasint,omitempty"`
	Fields   []shapeOfField `cbor:"2,keyasint,omitempty"`
	Variants []shapeOfCase  `cbor:"3,keyasint,omitempty"`
}

type shapeOfField struct {
	ID       uint16 `cbor:"1,keyasint"`
	Type     string `cbor:"2,keyasint"`
	Presence uint8  `cbor:"3,keyasint"`
	Default  string `cbor:"4,keyasint,omitempty"`
}

type shapeOfCase struct {
	ID      uint16 `cbor:"1,keyasint"`
	Payload string `cbor:"2,keyasint,omitempty"`
}

// FingerprintOf computes the fingerprint of the named type and every
// definition reachable from it.
func (c *Catalog) FingerprintOf(name string) (Fingerprint, error) {
	if _, ok := c.defs[name]; !ok {
		return Fingerprint{}, &Error{Type: name, Err: ErrUnknownType}
	}
	input := shapeFingerprintInput{Root: name, Defs: make(map[string]shapeOfDef)}
	pending := []string{name}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, done := input.Defs[current]; done {
			continue
		}
		def := c.defs[current]
		shape := shapeOfDef{Union: def.Union}
		enqueue := func(t Type) {
			t.Walk(func(inner Type) {
				if inner.Kind == KindRef {
					pending = append(pending, inner.Name)
				}
			})
		}
		for _, field := range def.Fields {
			shape.Fields = append(shape.Fields, shapeOfField{
				ID:       field.ID,
				Type:     wireShape(field.Type).String(),
				Presence: uint8(field.Presence),
				Default:  field.Literal,
			})
			enqueue(field.Type)
		}
		for _, variant := range def.Variants {
			entry := shapeOfCase{ID: variant.ID}
			if variant.Payload != nil {
				entry.Payload = wireShape(*variant.Payload).String()
				enqueue(*variant.Payload)
			}
			shape.Variants = append(shape.Variants, entry)
		}
		// Readers accept fields in any order, so declaration order is
		// not part of the shape.
		slices.SortFunc(shape.Fields, func(a, b shapeOfField) int { return int(a.ID) - int(b.ID) })
		slices.SortFunc(shape.Variants, func(a, b shapeOfCase) int { return int(a.ID) - int(b.ID) })
		input.Defs[current] = shape
	}

	encoded, err := canonical.Marshal(input)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("encoding fingerprint input for %s: %w", name, err)
	}
	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("schema: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(encoded)
	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint, nil
}

// wireShape rewrites t into the canonical spelling of its wire
// encoding, so that spellings that encode identically compare equal:
// usize is u64, isize is i64, bytes is list<u8>, and range<T>, tuples
// of identical members and arrays all become array<T, N>.
func wireShape(t Type) Type {
	switch t.Kind {
	case KindUsize:
		return Scalar(KindU64)
	case KindIsize:
		return Scalar(KindI64)
	case KindBytes:
		return Generic(KindList, Scalar(KindU8))
	case KindRange:
		return Array(wireShape(t.Elem()), 2)
	case KindArray:
		if t.Len == 0 {
			return Scalar(KindUnit)
		}
		return Array(wireShape(t.Elem()), t.Len)
	}
	if len(t.Elems) == 0 {
		return t
	}
	shaped := Type{Kind: t.Kind, Len: t.Len, Name: t.Name, Elems: make([]Type, len(t.Elems))}
	for i, elem := range t.Elems {
		shaped.Elems[i] = wireShape(elem)
	}
	if shaped.Kind == KindTuple {
		uniform := true
		for _, member := range shaped.Elems[1:] {
			uniform = uniform && member.Equal(shaped.Elems[0])
		}
		if uniform {
			return Array(shaped.Elems[0], len(shaped.Elems))
		}
	}
	return shaped
}
