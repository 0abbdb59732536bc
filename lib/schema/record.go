// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// TagKey is the struct tag key read by RecordOf.
const TagKey = "wire"

// Field is the resolved schema of one struct field.
type Field struct {
	ID       uint16
	Name     string
	Index    int
	Type     reflect.Type
	Presence Presence

	// Default is the parsed declared default, valid only when the
	// field declares one. Its type is Type.
	Default reflect.Value

	// Literal is the declared default as written.
	Literal string
}

// HasDefault reports whether the field declares a default.
func (f *Field) HasDefault() bool {
	return f.Default.IsValid()
}

// Record is the resolved schema of a struct type: its exported fields
// in declaration order, each with an ID unique within the record.
type Record struct {
	Type   reflect.Type
	Fields []Field

	byID map[uint16]int
}

// ByID returns the field with the given ID.
func (r *Record) ByID(id uint16) (*Field, bool) {
	index, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.Fields[index], true
}

type recordResult struct {
	record *Record
	err    error
}

var records sync.Map // reflect.Type → recordResult

// RecordOf returns the record schema of struct type t, building and
// caching it on first use. Errors are cached too: an ill-formed type
// fails the same way on every call.
func RecordOf(t reflect.Type) (*Record, error) {
	if cached, ok := records.Load(t); ok {
		result := cached.(recordResult)
		return result.record, result.err
	}
	record, err := buildRecord(t)
	actual, _ := records.LoadOrStore(t, recordResult{record: record, err: err})
	result := actual.(recordResult)
	return result.record, result.err
}

func buildRecord(t reflect.Type) (*Record, error) {
	if t.Kind() != reflect.Struct {
		return nil, &Error{Type: t.String(), Err: fmt.Errorf("%w: %s is not a struct", ErrUnknownType, t.Kind())}
	}
	record := &Record{Type: t, byID: make(map[uint16]int)}
	names := make(map[uint16]string)
	ordinal := 0
	for i := range t.NumField() {
		structField := t.Field(i)
		if !structField.IsExported() {
			continue
		}
		position := ordinal
		ordinal++

		modifiers, err := ParseTag(structField.Tag.Get(TagKey))
		if err != nil {
			return nil, &Error{Type: t.String(), Member: structField.Name, Err: err}
		}
		if !modifiers.HasID {
			if position > math.MaxUint16 {
				return nil, &Error{Type: t.String(), Member: structField.Name, Err: ErrTooManyFields}
			}
			modifiers.ID = uint16(position)
		}
		presence, err := ClassifyField(structField.Type, modifiers)
		if err != nil {
			return nil, &Error{Type: t.String(), Member: structField.Name, Err: err}
		}
		if other, exists := names[modifiers.ID]; exists {
			return nil, &Error{
				Type:   t.String(),
				Member: structField.Name,
				Err:    fmt.Errorf("%w: %d also used by %s", ErrDuplicateID, modifiers.ID, other),
			}
		}
		names[modifiers.ID] = structField.Name

		field := Field{
			ID:       modifiers.ID,
			Name:     structField.Name,
			Index:    i,
			Type:     structField.Type,
			Presence: presence,
		}
		if modifiers.HasDefault {
			value, err := ParseDefault(structField.Type, modifiers.Default)
			if err != nil {
				return nil, &Error{Type: t.String(), Member: structField.Name, Err: err}
			}
			field.Default = value
			field.Literal = modifiers.Default
		}
		record.byID[field.ID] = len(record.Fields)
		record.Fields = append(record.Fields, field)
	}
	if len(record.Fields) > math.MaxUint16 {
		return nil, &Error{Type: t.String(), Err: ErrTooManyFields}
	}
	return record, nil
}

var (
	charType        = reflect.TypeFor[wire.Char]()
	durationType    = reflect.TypeFor[time.Duration]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// ParseDefault parses a default literal as a value of type t. Pointer
// and wire.Option types parse the literal as their element and wrap it
// as present.
func ParseDefault(t reflect.Type, literal string) (reflect.Value, error) {
	value := reflect.New(t).Elem()
	if err := setLiteral(value, literal); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %q as %s: %v", ErrBadDefault, literal, t, err)
	}
	return value, nil
}

func setLiteral(value reflect.Value, literal string) error {
	t := value.Type()
	if reflect.PointerTo(t).Implements(textUnmarshaler) {
		return value.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(literal))
	}
	switch {
	case t == durationType:
		d, err := time.ParseDuration(literal)
		if err != nil {
			return err
		}
		value.SetInt(int64(d))
		return nil
	case t.Implements(optionalInterface):
		if err := setLiteral(value.Field(0), literal); err != nil {
			return err
		}
		value.Field(1).SetBool(true)
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return err
		}
		value.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		if t.Kind() == reflect.Int {
			bits = 64
		}
		n, err := strconv.ParseInt(literal, 0, bits)
		if err != nil {
			return err
		}
		value.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		bits := t.Bits()
		if t.Kind() == reflect.Uint || t.Kind() == reflect.Uintptr {
			bits = 64
		}
		n, err := strconv.ParseUint(literal, 0, bits)
		if err != nil {
			return err
		}
		value.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(literal, t.Bits())
		if err != nil {
			return err
		}
		value.SetFloat(f)
	case reflect.String:
		value.SetString(literal)
	case reflect.Pointer:
		element := reflect.New(t.Elem())
		if err := setLiteral(element.Elem(), literal); err != nil {
			return err
		}
		value.Set(element)
	default:
		return fmt.Errorf("%s has no literal form", t)
	}
	return nil
}
