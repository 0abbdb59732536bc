// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Kind is the head of a type expression.
type Kind string

const (
	KindBool  Kind = "bool"
	KindU8    Kind = "u8"
	KindU16   Kind = "u16"
	KindU32   Kind = "u32"
	KindU64   Kind = "u64"
	KindU128  Kind = "u128"
	KindUsize Kind = "usize"
	KindI8    Kind = "i8"
	KindI16   Kind = "i16"
	KindI32   Kind = "i32"
	KindI64   Kind = "i64"
	KindI128  Kind = "i128"
	KindIsize Kind = "isize"
	KindF32   Kind = "f32"
	KindF64   Kind = "f64"
	KindChar  Kind = "char"

	KindString Kind = "string"
	KindBytes  Kind = "bytes"
	KindUnit   Kind = "unit"

	KindTimestamp Kind = "timestamp"
	KindDuration  Kind = "duration"
	KindUUID      Kind = "uuid"
	KindIPAddr    Kind = "ipaddr"
	KindIPNet     Kind = "ipnet"
	KindRational  Kind = "rational"

	KindList     Kind = "list"
	KindSet      Kind = "set"
	KindMap      Kind = "map"
	KindOptional Kind = "optional"
	KindRange    Kind = "range"
	KindTuple    Kind = "tuple"
	KindArray    Kind = "array"

	// KindRef names a record or union defined in the same catalog.
	KindRef Kind = "ref"
)

var scalarKinds = map[Kind]bool{
	KindBool: true, KindU8: true, KindU16: true, KindU32: true, KindU64: true,
	KindU128: true, KindUsize: true, KindI8: true, KindI16: true, KindI32: true,
	KindI64: true, KindI128: true, KindIsize: true, KindF32: true, KindF64: true,
	KindChar: true, KindString: true, KindBytes: true, KindUnit: true,
	KindTimestamp: true, KindDuration: true, KindUUID: true, KindIPAddr: true,
	KindIPNet: true, KindRational: true,
}

// arity of each parameterized kind; -1 means one or more.
var genericArity = map[Kind]int{
	KindList: 1, KindSet: 1, KindMap: 2, KindOptional: 1, KindRange: 1,
	KindTuple: -1, KindArray: 1,
}

// Type is a parsed type expression such as "map<string, list<u64>>".
type Type struct {
	Kind Kind

	// Elems holds the parameters of generic kinds: the element of
	// list, set, optional, range and array; key and value of map;
	// every member of tuple.
	Elems []Type

	// Len is the length of an array.
	Len int

	// Name is the referenced type of KindRef.
	Name string
}

// Ref returns a reference to the named record or union.
func Ref(name string) Type { return Type{Kind: KindRef, Name: name} }

// Scalar returns the type expression of a parameterless kind.
func Scalar(kind Kind) Type { return Type{Kind: kind} }

// Generic returns a parameterized type expression.
func Generic(kind Kind, elems ...Type) Type { return Type{Kind: kind, Elems: elems} }

// Array returns the type expression of a fixed-length array.
func Array(elem Type, length int) Type {
	return Type{Kind: KindArray, Elems: []Type{elem}, Len: length}
}

// Elem returns the first type parameter.
func (t Type) Elem() Type {
	return t.Elems[0]
}

// IsOptional reports whether values of t carry a presence flag.
func (t Type) IsOptional() bool {
	return t.Kind == KindOptional
}

// String formats t in the syntax ParseType accepts.
func (t Type) String() string {
	switch t.Kind {
	case KindRef:
		return t.Name
	case KindArray:
		return "array<" + t.Elem().String() + ", " + strconv.Itoa(t.Len) + ">"
	}
	if len(t.Elems) == 0 {
		return string(t.Kind)
	}
	parts := make([]string, len(t.Elems))
	for i, elem := range t.Elems {
		parts[i] = elem.String()
	}
	return string(t.Kind) + "<" + strings.Join(parts, ", ") + ">"
}

// Equal reports whether t and other are the same expression.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind || t.Len != other.Len || t.Name != other.Name || len(t.Elems) != len(other.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(other.Elems[i]) {
			return false
		}
	}
	return true
}

// Walk calls fn for t and every type nested in it, parents first.
func (t Type) Walk(fn func(Type)) {
	fn(t)
	for _, elem := range t.Elems {
		elem.Walk(fn)
	}
}

// ParseType parses a type expression.
func ParseType(s string) (Type, error) {
	p := typeParser{input: s}
	t, err := p.parse()
	if err != nil {
		return Type{}, fmt.Errorf("%w: type %q: %v", ErrBadTag, s, err)
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Type{}, fmt.Errorf("%w: type %q: unexpected %q", ErrBadTag, s, p.input[p.pos:])
	}
	return t, nil
}

// MustParseType is ParseType for expressions known to be valid.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		r := rune(p.input[p.pos])
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *typeParser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) parse() (Type, error) {
	name := p.ident()
	if name == "" {
		return Type{}, fmt.Errorf("expected a type name at offset %d", p.pos)
	}
	kind := Kind(name)
	if scalarKinds[kind] {
		return Type{Kind: kind}, nil
	}
	arity, generic := genericArity[kind]
	if !generic {
		if unicode.IsDigit(rune(name[0])) {
			return Type{}, fmt.Errorf("type name %q starts with a digit", name)
		}
		return Ref(name), nil
	}

	if !p.consume('<') {
		return Type{}, fmt.Errorf("%s needs type parameters", kind)
	}
	t := Type{Kind: kind}
	sawLength := false
	for {
		if kind == KindArray && len(t.Elems) == 1 {
			if sawLength {
				return Type{}, fmt.Errorf("array takes an element type and a length")
			}
			length, err := strconv.Atoi(p.ident())
			if err != nil || length < 0 {
				return Type{}, fmt.Errorf("array length must be a non-negative integer")
			}
			t.Len = length
			sawLength = true
		} else {
			elem, err := p.parse()
			if err != nil {
				return Type{}, err
			}
			t.Elems = append(t.Elems, elem)
		}
		if p.consume('>') {
			break
		}
		if !p.consume(',') {
			return Type{}, fmt.Errorf("expected ',' or '>' at offset %d", p.pos)
		}
	}

	count := len(t.Elems)
	switch {
	case kind == KindArray:
		if count != 1 || !sawLength {
			return Type{}, fmt.Errorf("array takes an element type and a length")
		}
	case arity == -1:
		if count == 0 {
			return Type{}, fmt.Errorf("%s needs at least one member", kind)
		}
	case count != arity:
		return Type{}, fmt.Errorf("%s takes %d type parameters, got %d", kind, arity, count)
	}
	return t, nil
}
