// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"math"
	"reflect"
	"sync"
)

// Variant is one case of a union.
type Variant struct {
	ID   uint16
	Name string
	Type reflect.Type

	// HasPayload is false for cases whose type is a struct with no
	// fields: only the variant ID is written for them.
	HasPayload bool
}

// Union is the resolved schema of an interface type whose values are
// encoded as a variant ID plus the case's payload.
type Union struct {
	Interface reflect.Type
	Variants  []Variant

	defaultIndex int
	byID         map[uint16]int
	byType       map[reflect.Type]int
}

// ByID returns the variant with the given ID.
func (u *Union) ByID(id uint16) (*Variant, bool) {
	index, ok := u.byID[id]
	if !ok {
		return nil, false
	}
	return &u.Variants[index], true
}

// ByType returns the variant whose case type is t.
func (u *Union) ByType(t reflect.Type) (*Variant, bool) {
	index, ok := u.byType[t]
	if !ok {
		return nil, false
	}
	return &u.Variants[index], true
}

// Default returns the case marked with AsDefault, if any. A union
// field with no declared default materializes as this case's zero
// value, or as nil when the union has no default case.
func (u *Union) Default() (*Variant, bool) {
	if u.defaultIndex < 0 {
		return nil, false
	}
	return &u.Variants[u.defaultIndex], true
}

// CaseSpec describes one case passed to RegisterUnion. Build it with
// Case.
type CaseSpec struct {
	typ       reflect.Type
	id        uint16
	hasID     bool
	name      string
	isDefault bool
}

// CaseOption adjusts a CaseSpec.
type CaseOption func(*CaseSpec)

// WithID assigns an explicit variant ID. Cases without one take their
// ordinal position in the RegisterUnion call.
func WithID(id uint16) CaseOption {
	return func(c *CaseSpec) {
		c.id = id
		c.hasID = true
	}
}

// WithName overrides the variant name used in descriptors. The default
// is the Go type name.
func WithName(name string) CaseOption {
	return func(c *CaseSpec) { c.name = name }
}

// AsDefault marks the case whose zero value a union field takes when
// its record does not supply one.
func AsDefault() CaseOption {
	return func(c *CaseSpec) { c.isDefault = true }
}

// Case declares T as a case of a union. T must implement the union
// interface with value receivers.
func Case[T any](options ...CaseOption) CaseSpec {
	spec := CaseSpec{typ: reflect.TypeFor[T]()}
	spec.name = spec.typ.Name()
	for _, option := range options {
		option(&spec)
	}
	return spec
}

var unions = struct {
	sync.RWMutex
	byInterface map[reflect.Type]*Union
}{byInterface: make(map[reflect.Type]*Union)}

// RegisterUnion registers interface type I as a union of the given
// cases. Call it from an init function: values of I cannot be encoded
// or decoded until it has run, and the codec caches what it finds on
// first use.
//
//	func init() {
//		schema.MustRegisterUnion[Shape](
//			schema.Case[Empty](schema.AsDefault()),
//			schema.Case[Circle](),
//			schema.Case[Label](schema.WithID(9)),
//		)
//	}
func RegisterUnion[I any](cases ...CaseSpec) error {
	union, err := buildUnion(reflect.TypeFor[I](), cases)
	if err != nil {
		return err
	}
	unions.Lock()
	defer unions.Unlock()
	if _, exists := unions.byInterface[union.Interface]; exists {
		return &Error{Type: union.Interface.String(), Err: fmt.Errorf("%w: union already registered", ErrDuplicateCase)}
	}
	unions.byInterface[union.Interface] = union
	return nil
}

// MustRegisterUnion is RegisterUnion for init functions: it panics on
// an ill-formed union.
func MustRegisterUnion[I any](cases ...CaseSpec) {
	if err := RegisterUnion[I](cases...); err != nil {
		panic(err)
	}
}

// UnionOf returns the registered union for interface type t.
func UnionOf(t reflect.Type) (*Union, bool) {
	unions.RLock()
	defer unions.RUnlock()
	union, ok := unions.byInterface[t]
	return union, ok
}

func buildUnion(iface reflect.Type, cases []CaseSpec) (*Union, error) {
	typeName := iface.String()
	if iface.Kind() != reflect.Interface {
		return nil, &Error{Type: typeName, Err: fmt.Errorf("%w: union must be an interface type", ErrUnknownType)}
	}
	if len(cases) > math.MaxUint16+1 {
		return nil, &Error{Type: typeName, Err: ErrTooManyFields}
	}
	union := &Union{
		Interface:    iface,
		defaultIndex: -1,
		byID:         make(map[uint16]int, len(cases)),
		byType:       make(map[reflect.Type]int, len(cases)),
	}
	for position, spec := range cases {
		if spec.typ == nil {
			return nil, &Error{Type: typeName, Err: fmt.Errorf("%w: case %d was not built with Case", ErrBadTag, position)}
		}
		if !spec.typ.Implements(iface) {
			return nil, &Error{Type: typeName, Member: spec.name, Err: ErrNotImplemented}
		}
		if _, exists := union.byType[spec.typ]; exists {
			return nil, &Error{Type: typeName, Member: spec.name, Err: fmt.Errorf("%w: %s listed twice", ErrDuplicateCase, spec.typ)}
		}
		id := uint16(position)
		if spec.hasID {
			id = spec.id
		}
		if other, exists := union.byID[id]; exists {
			return nil, &Error{
				Type:   typeName,
				Member: spec.name,
				Err:    fmt.Errorf("%w: %d also used by %s", ErrDuplicateID, id, union.Variants[other].Name),
			}
		}
		if spec.isDefault {
			if union.defaultIndex >= 0 {
				return nil, &Error{Type: typeName, Member: spec.name, Err: fmt.Errorf("%w: more than one default case", ErrDuplicateCase)}
			}
			union.defaultIndex = len(union.Variants)
		}
		union.byID[id] = len(union.Variants)
		union.byType[spec.typ] = len(union.Variants)
		union.Variants = append(union.Variants, Variant{
			ID:         id,
			Name:       spec.name,
			Type:       spec.typ,
			HasPayload: !IsUnitType(spec.typ),
		})
	}
	return union, nil
}
