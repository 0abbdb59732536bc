// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// Describer is implemented by types with a custom wire form
// (wire.Marshaler) that want to appear in descriptors.
type Describer interface {
	WireType() Type
}

var externals sync.Map // reflect.Type → Kind

// RegisterExternal records the descriptor kind of a type whose wire
// form is supplied by an adapter. lib/codec calls it when an adapter
// is registered.
func RegisterExternal(t reflect.Type, kind Kind) {
	externals.Store(t, kind)
}

var (
	uint128Type   = reflect.TypeFor[wire.Uint128]()
	int128Type    = reflect.TypeFor[wire.Int128]()
	tupleIface    = reflect.TypeFor[wire.Tuple]()
	sharedIface   = reflect.TypeFor[wire.SharedValue]()
	describerType = reflect.TypeFor[Describer]()
	marshalerType = reflect.TypeFor[wire.Marshaler]()
	wirePackage   = uint128Type.PkgPath()
)

// Describe builds a catalog covering the given Go types and every
// record and union reachable from them. Each root must be a struct or
// a registered union interface. Definitions are named after their Go
// type names, which must therefore be unique among the types reached.
func Describe(roots ...reflect.Type) (*Catalog, error) {
	d := &describer{
		catalog: &Catalog{defs: make(map[string]*Def)},
		names:   make(map[reflect.Type]string),
	}
	for _, root := range roots {
		if root.Kind() != reflect.Struct && root.Kind() != reflect.Interface {
			return nil, &Error{Type: root.String(), Err: fmt.Errorf("%w: only records and unions can be described", ErrUnknownType)}
		}
		if _, err := d.typeOf(root); err != nil {
			return nil, err
		}
	}
	return d.catalog, nil
}

type describer struct {
	catalog *Catalog
	names   map[reflect.Type]string
}

func (d *describer) typeOf(t reflect.Type) (Type, error) {
	if kind, ok := externals.Load(t); ok {
		return Scalar(kind.(Kind)), nil
	}
	if t.Implements(describerType) {
		return reflect.Zero(t).Interface().(Describer).WireType(), nil
	}
	switch t {
	case charType:
		return Scalar(KindChar), nil
	case uint128Type:
		return Scalar(KindU128), nil
	case int128Type:
		return Scalar(KindI128), nil
	}
	if t.Kind() != reflect.Pointer && (t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)) {
		return Type{}, &Error{Type: t.String(), Err: fmt.Errorf("%w: custom wire form without a WireType method", ErrUnknownType)}
	}

	switch t.Kind() {
	case reflect.Bool:
		return Scalar(KindBool), nil
	case reflect.Int8:
		return Scalar(KindI8), nil
	case reflect.Int16:
		return Scalar(KindI16), nil
	case reflect.Int32:
		return Scalar(KindI32), nil
	case reflect.Int64:
		return Scalar(KindI64), nil
	case reflect.Int:
		return Scalar(KindIsize), nil
	case reflect.Uint8:
		return Scalar(KindU8), nil
	case reflect.Uint16:
		return Scalar(KindU16), nil
	case reflect.Uint32:
		return Scalar(KindU32), nil
	case reflect.Uint64:
		return Scalar(KindU64), nil
	case reflect.Uint, reflect.Uintptr:
		return Scalar(KindUsize), nil
	case reflect.Float32:
		return Scalar(KindF32), nil
	case reflect.Float64:
		return Scalar(KindF64), nil
	case reflect.String:
		return Scalar(KindString), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !hasCustomForm(t.Elem()) {
			return Scalar(KindBytes), nil
		}
		elem, err := d.typeOf(t.Elem())
		return Generic(KindList, elem), err
	case reflect.Array:
		elem, err := d.typeOf(t.Elem())
		return Array(elem, t.Len()), err
	case reflect.Map:
		key, err := d.typeOf(t.Key())
		if err != nil {
			return Type{}, err
		}
		if IsUnitType(t.Elem()) {
			return Generic(KindSet, key), nil
		}
		value, err := d.typeOf(t.Elem())
		return Generic(KindMap, key, value), err
	case reflect.Pointer:
		elem, err := d.typeOf(t.Elem())
		return Generic(KindOptional, elem), err
	case reflect.Interface:
		return d.union(t)
	case reflect.Struct:
		return d.structType(t)
	}
	return Type{}, &Error{Type: t.String(), Err: fmt.Errorf("%w: %s has no wire form", ErrUnknownType, t.Kind())}
}

// hasCustomForm reports whether t's wire form comes from an adapter or
// its own methods rather than from its kind.
func hasCustomForm(t reflect.Type) bool {
	if _, ok := externals.Load(t); ok {
		return true
	}
	return t.Implements(describerType) || t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// IsUnitType reports whether t is a struct with no fields, the Go
// spelling of the unit value (zero bytes on the wire). Named empty
// structs count: they are how union cases without a payload are
// declared.
func IsUnitType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

func (d *describer) structType(t reflect.Type) (Type, error) {
	switch {
	case IsUnitType(t):
		return Scalar(KindUnit), nil
	case t.Implements(optionalInterface):
		elem, err := d.typeOf(t.Field(0).Type)
		return Generic(KindOptional, elem), err
	case t.Implements(sharedIface):
		ref := reflect.Zero(t).Interface().(wire.SharedValue).SharedRef()
		return d.typeOf(reflect.TypeOf(ref).Elem())
	case t.Implements(tupleIface):
		members := make([]Type, t.NumField())
		for i := range members {
			member, err := d.typeOf(t.Field(i).Type)
			if err != nil {
				return Type{}, err
			}
			members[i] = member
		}
		if t.PkgPath() == wirePackage && strings.HasPrefix(t.Name(), "Range[") {
			return Generic(KindRange, members[0]), nil
		}
		return Generic(KindTuple, members...), nil
	}
	return d.record(t)
}

// claimName reserves the definition name for t. It returns false when
// t has already been described (or is being described further up the
// stack, for recursive types).
func (d *describer) claimName(t reflect.Type) (string, bool, error) {
	if name, seen := d.names[t]; seen {
		return name, false, nil
	}
	name := t.Name()
	if name == "" {
		return "", false, &Error{Type: t.String(), Err: fmt.Errorf("%w: anonymous types cannot be described", ErrUnknownType)}
	}
	if _, taken := d.catalog.defs[name]; taken {
		return "", false, &Error{Type: t.String(), Err: fmt.Errorf("%w: name %s used by two types", ErrDuplicateID, name)}
	}
	d.names[t] = name
	return name, true, nil
}

func (d *describer) add(def *Def) {
	d.catalog.defs[def.Name] = def
	d.catalog.names = append(d.catalog.names, def.Name)
}

func (d *describer) record(t reflect.Type) (Type, error) {
	name, fresh, err := d.claimName(t)
	if err != nil || !fresh {
		return Ref(name), err
	}
	record, err := RecordOf(t)
	if err != nil {
		return Type{}, err
	}
	def := &Def{Name: name, defaultVariant: -1, byID: make(map[uint16]int), byName: make(map[string]int)}
	// Register before recursing so self-references resolve.
	d.add(def)
	for i, field := range record.Fields {
		fieldType, err := d.typeOf(field.Type)
		if err != nil {
			return Type{}, err
		}
		desc := FieldDesc{
			ID:         field.ID,
			Name:       field.Name,
			Type:       fieldType,
			Presence:   field.Presence,
			Literal:    field.Literal,
			HasDefault: field.HasDefault(),
		}
		if desc.HasDefault {
			if desc.Default, err = ParseLiteral(fieldType, field.Literal); err != nil {
				return Type{}, &Error{Type: t.String(), Member: field.Name, Err: err}
			}
		}
		def.byID[field.ID] = i
		def.byName[field.Name] = i
		def.Fields = append(def.Fields, desc)
	}
	return Ref(name), nil
}

func (d *describer) union(t reflect.Type) (Type, error) {
	union, ok := UnionOf(t)
	if !ok {
		return Type{}, &Error{Type: t.String(), Err: ErrNotRegistered}
	}
	name, fresh, err := d.claimName(t)
	if err != nil || !fresh {
		return Ref(name), err
	}
	def := &Def{Name: name, Union: true, defaultVariant: union.defaultIndex, byID: make(map[uint16]int), byName: make(map[string]int)}
	d.add(def)
	for i, variant := range union.Variants {
		desc := VariantDesc{ID: variant.ID, Name: variant.Name}
		if variant.HasPayload {
			// A pointer case carries the pointed-to value, not an optional.
			payloadType := variant.Type
			if payloadType.Kind() == reflect.Pointer {
				payloadType = payloadType.Elem()
			}
			payload, err := d.typeOf(payloadType)
			if err != nil {
				return Type{}, err
			}
			desc.Payload = &payload
		}
		def.byID[variant.ID] = i
		def.byName[variant.Name] = i
		def.Variants = append(def.Variants, desc)
	}
	return Ref(name), nil
}
