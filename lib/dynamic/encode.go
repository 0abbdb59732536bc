// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dynamic

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/codec"
	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type encoder struct {
	catalog *schema.Catalog
	w       *wire.Writer
}

func (e *encoder) value(t schema.Type, v any) error {
	switch t.Kind {
	case schema.KindRef:
		def, err := lookup(e.catalog, t.Name)
		if err != nil {
			return err
		}
		if def.Union {
			return e.union(def, v)
		}
		return e.record(def, v)
	case schema.KindOptional:
		if err := e.w.WritePresence(v != nil); err != nil || v == nil {
			return err
		}
		return e.value(t.Elem(), v)
	case schema.KindList:
		elements, ok := v.([]any)
		if !ok && v != nil {
			return mismatch(t, v)
		}
		return e.sequence(t.Elem(), elements)
	case schema.KindSet:
		elements, ok := v.([]any)
		if !ok && v != nil {
			return mismatch(t, v)
		}
		return e.set(t.Elem(), elements)
	case schema.KindMap:
		return e.mapValue(t, v)
	case schema.KindTuple:
		elements, ok := v.([]any)
		if !ok || len(elements) != len(t.Elems) {
			return wire.Parsingf("%s needs a list of %d elements, got %T", t, len(t.Elems), v)
		}
		for i, element := range elements {
			if err := e.value(t.Elems[i], element); err != nil {
				return err
			}
		}
		return nil
	case schema.KindArray:
		return e.array(t, v)
	case schema.KindRange:
		start, end, err := rangeBounds(t, v)
		if err != nil {
			return err
		}
		if err := e.value(t.Elem(), start); err != nil {
			return err
		}
		return e.value(t.Elem(), end)
	}
	c, err := canonical(t, v)
	if err != nil {
		return err
	}
	return e.scalar(t, c)
}

// scalar writes a canonical scalar value.
func (e *encoder) scalar(t schema.Type, v any) error {
	w := e.w
	switch t.Kind {
	case schema.KindBool:
		return w.WriteBool(v.(bool))
	case schema.KindU8:
		return w.WriteUint8(uint8(v.(uint64)))
	case schema.KindU16:
		return w.WriteUint16(uint16(v.(uint64)))
	case schema.KindU32:
		return w.WriteUint32(uint32(v.(uint64)))
	case schema.KindU64, schema.KindUsize:
		return w.WriteUint64(v.(uint64))
	case schema.KindI8:
		return w.WriteInt8(int8(v.(int64)))
	case schema.KindI16:
		return w.WriteInt16(int16(v.(int64)))
	case schema.KindI32:
		return w.WriteInt32(int32(v.(int64)))
	case schema.KindI64, schema.KindIsize:
		return w.WriteInt64(v.(int64))
	case schema.KindU128:
		return w.WriteUint128(v.(wire.Uint128))
	case schema.KindI128:
		return w.WriteInt128(v.(wire.Int128))
	case schema.KindF32:
		return w.WriteFloat32(v.(float32))
	case schema.KindF64:
		return w.WriteFloat64(v.(float64))
	case schema.KindChar:
		return w.WriteChar(v.(wire.Char))
	case schema.KindString:
		return w.WriteString(v.(string))
	case schema.KindBytes:
		return w.WriteBytes(v.([]byte))
	case schema.KindUnit:
		return nil
	}
	// External kinds share the Go codec's adapters.
	return codec.EncodeTo(w, v)
}

func (e *encoder) sequence(elem schema.Type, elements []any) error {
	if err := e.w.WriteLen(len(elements)); err != nil {
		return err
	}
	for _, element := range elements {
		if err := e.value(elem, element); err != nil {
			return err
		}
	}
	return nil
}

// set writes elements of ordered kinds sorted, as the Go codec writes a
// map[K]struct{}.
func (e *encoder) set(elem schema.Type, elements []any) error {
	if !ordered(elem) {
		return e.sequence(elem, elements)
	}
	keys := make([]any, len(elements))
	for i, element := range elements {
		c, err := canonical(elem, element)
		if err != nil {
			return err
		}
		keys[i] = c
	}
	slices.SortStableFunc(keys, compareCanonical)
	return e.sequence(elem, keys)
}

type entry struct {
	key, value any
}

func (e *encoder) mapValue(t schema.Type, v any) error {
	keyType, valueType := t.Elems[0], t.Elems[1]
	var entries []entry
	switch x := v.(type) {
	case nil:
	case map[string]any:
		names := make([]string, 0, len(x))
		for name := range x {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entries = append(entries, entry{key: name, value: x[name]})
		}
	case []any:
		for _, element := range x {
			pair, ok := element.(map[string]any)
			if !ok {
				return wire.Parsingf("%s entries must be {\"key\", \"value\"} objects, got %T", t, element)
			}
			entries = append(entries, entry{key: pair["key"], value: pair["value"]})
		}
	default:
		return mismatch(t, v)
	}
	if ordered(keyType) {
		for i := range entries {
			c, err := canonical(keyType, entries[i].key)
			if err != nil {
				return err
			}
			entries[i].key = c
		}
		slices.SortStableFunc(entries, func(a, b entry) int { return compareCanonical(a.key, b.key) })
	}
	if err := e.w.WriteLen(len(entries)); err != nil {
		return err
	}
	for _, en := range entries {
		if err := e.value(keyType, en.key); err != nil {
			return err
		}
		if err := e.value(valueType, en.value); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) array(t schema.Type, v any) error {
	elements, ok := v.([]any)
	if !ok {
		if b, isBytes := v.([]byte); isBytes && t.Elem().Kind == schema.KindU8 {
			if len(b) != t.Len {
				return wire.Parsingf("%s needs %d bytes, got %d", t, t.Len, len(b))
			}
			return e.w.Write(b)
		}
		return mismatch(t, v)
	}
	if len(elements) != t.Len {
		return wire.Parsingf("%s needs %d elements, got %d", t, t.Len, len(elements))
	}
	for _, element := range elements {
		if err := e.value(t.Elem(), element); err != nil {
			return err
		}
	}
	return nil
}

func rangeBounds(t schema.Type, v any) (start, end any, err error) {
	switch x := v.(type) {
	case map[string]any:
		return x["start"], x["end"], nil
	case []any:
		if len(x) == 2 {
			return x[0], x[1], nil
		}
	}
	return nil, nil, mismatch(t, v)
}

func (e *encoder) union(def *schema.Def, v any) error {
	object, ok := v.(map[string]any)
	if !ok {
		return wire.Errorf(wire.KindUnknownVariant, "%s needs a {\"variant\", \"value\"} object, got %T", def.Name, v)
	}
	variant, err := findVariant(def, object["variant"])
	if err != nil {
		return err
	}
	if err := e.w.WriteVariant(variant.ID); err != nil {
		return err
	}
	if variant.Payload == nil {
		return nil
	}
	return e.value(*variant.Payload, object["value"])
}

func findVariant(def *schema.Def, selector any) (*schema.VariantDesc, error) {
	if name, ok := selector.(string); ok {
		if variant, found := def.VariantByName(name); found {
			return variant, nil
		}
		return nil, wire.Errorf(wire.KindUnknownVariant, "%s has no variant %q", def.Name, name)
	}
	id, err := toUint(schema.Scalar(schema.KindU16), selector)
	if err != nil {
		return nil, wire.Errorf(wire.KindUnknownVariant, "%s variant must be a name or ID, got %T", def.Name, selector)
	}
	variant, found := def.Variant(uint16(id))
	if !found {
		return nil, wire.Errorf(wire.KindUnknownVariant, "variant %d of %s", id, def.Name)
	}
	return variant, nil
}

func (e *encoder) record(def *schema.Def, v any) error {
	var object map[string]any
	switch x := v.(type) {
	case nil:
	case map[string]any:
		object = x
	default:
		return mismatch(schema.Ref(def.Name), v)
	}
	for name := range object {
		if !hasField(def, name) {
			return wire.Parsingf("%s has no field %q", def.Name, name)
		}
	}

	written := make([]bool, len(def.Fields))
	count := 0
	for i := range def.Fields {
		field := &def.Fields[i]
		value, present := object[field.Name]
		switch field.Presence {
		case schema.Skipped:
			continue
		case schema.Required:
			if !present {
				return wire.WithField(wire.Errorf(wire.KindMissingField, "%s.%s", def.Name, field.Name), field.ID)
			}
		case schema.Optional:
			if !present {
				continue
			}
			atDefault, err := isDefault(field, value)
			if err != nil {
				return wire.WithField(err, field.ID)
			}
			if atDefault {
				continue
			}
		}
		written[i] = true
		count++
	}
	if err := e.w.WriteFieldCount(count); err != nil {
		return err
	}
	for i := range def.Fields {
		if !written[i] {
			continue
		}
		field := &def.Fields[i]
		if err := e.w.WriteFieldID(field.ID); err != nil {
			return err
		}
		if err := e.value(field.Type, object[field.Name]); err != nil {
			return wire.WithField(err, field.ID)
		}
	}
	return nil
}

func hasField(def *schema.Def, name string) bool {
	for i := range def.Fields {
		if def.Fields[i].Name == name {
			return true
		}
	}
	return false
}

// isDefault reports whether an optional field's value may be left out:
// it equals the declared default, or without one the default of its
// type. Kinds the Go codec never leaves out are never default here
// either.
func isDefault(field *schema.FieldDesc, v any) (bool, error) {
	t := field.Type
	if field.HasDefault {
		if t.IsOptional() {
			if v == nil {
				return false, nil
			}
			t = t.Elem()
		}
		c, err := canonical(t, v)
		if err != nil {
			return false, err
		}
		return equalScalar(c, field.Default), nil
	}
	switch t.Kind {
	case schema.KindOptional:
		return v == nil, nil
	case schema.KindList, schema.KindSet:
		elements, ok := v.([]any)
		return v == nil || ok && len(elements) == 0, nil
	case schema.KindMap:
		switch x := v.(type) {
		case nil:
			return true, nil
		case map[string]any:
			return len(x) == 0, nil
		case []any:
			return len(x) == 0, nil
		}
		return false, nil
	case schema.KindBytes:
		c, err := canonical(t, v)
		if err != nil {
			return false, err
		}
		return len(c.([]byte)) == 0, nil
	case schema.KindUnit:
		return true, nil
	case schema.KindRef, schema.KindTuple, schema.KindArray, schema.KindRange,
		schema.KindTimestamp, schema.KindDuration, schema.KindUUID,
		schema.KindIPAddr, schema.KindIPNet, schema.KindRational:
		return false, nil
	}
	c, err := canonical(t, v)
	if err != nil {
		return false, err
	}
	return equalScalar(c, zeroScalar(t.Kind)), nil
}

func zeroScalar(kind schema.Kind) any {
	switch kind {
	case schema.KindBool:
		return false
	case schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64, schema.KindUsize:
		return uint64(0)
	case schema.KindI8, schema.KindI16, schema.KindI32, schema.KindI64, schema.KindIsize:
		return int64(0)
	case schema.KindU128:
		return wire.Uint128{}
	case schema.KindI128:
		return wire.Int128{}
	case schema.KindF32:
		return float32(0)
	case schema.KindF64:
		return float64(0)
	case schema.KindChar:
		return wire.Char(0)
	case schema.KindString:
		return ""
	case schema.KindBytes:
		return []byte(nil)
	case schema.KindUnit:
		return struct{}{}
	case schema.KindTimestamp:
		return time.Time{}
	case schema.KindDuration:
		return time.Duration(0)
	case schema.KindUUID:
		return uuid.UUID{}
	case schema.KindRational:
		return new(big.Rat)
	}
	return nil
}

// ordered reports whether the Go codec sorts map keys of type t.
func ordered(t schema.Type) bool {
	switch t.Kind {
	case schema.KindBool, schema.KindChar, schema.KindString, schema.KindF32, schema.KindF64,
		schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64, schema.KindUsize,
		schema.KindI8, schema.KindI16, schema.KindI32, schema.KindI64, schema.KindIsize,
		schema.KindDuration:
		return true
	}
	return false
}

// compareCanonical orders canonical values of one ordered kind.
func compareCanonical(a, b any) int {
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case y:
			return -1
		default:
			return 1
		}
	case uint64:
		return cmp.Compare(x, b.(uint64))
	case int64:
		return cmp.Compare(x, b.(int64))
	case float32:
		return cmp.Compare(x, b.(float32))
	case float64:
		return cmp.Compare(x, b.(float64))
	case wire.Char:
		return cmp.Compare(x, b.(wire.Char))
	case string:
		return cmp.Compare(x, b.(string))
	case time.Duration:
		return cmp.Compare(x, b.(time.Duration))
	}
	panic(fmt.Sprintf("dynamic: %T is not an ordered kind", a))
}
