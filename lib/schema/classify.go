// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// Presence is the decode-time contract of a record field.
type Presence uint8

const (
	// Required fields are always written and must be present when
	// decoding.
	Required Presence = iota + 1

	// Optional fields are written only when their value differs from
	// the default, and take the default when absent.
	Optional

	// Skipped fields are never written; decoding sets them to their
	// default.
	Skipped
)

func (p Presence) String() string {
	switch p {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Skipped:
		return "skipped"
	default:
		return "Presence(" + strconv.Itoa(int(p)) + ")"
	}
}

// Modifiers are the declaration-level settings of one field, from a
// struct tag or a schema document entry.
type Modifiers struct {
	ID    uint16
	HasID bool

	Required bool
	Optional bool
	Skip     bool

	Default    string
	HasDefault bool
}

// Classify decides a field's presence from whether its declared type is
// an optional-value type and from its modifiers. It is the only place
// this decision is made: record schemas built from Go types and schema
// documents both call it.
//
// Order of precedence: skip, then an explicit required, then optional,
// a declared default or an optional-value type; anything else is
// required.
func Classify(optionalType bool, m Modifiers) (Presence, error) {
	if m.Required {
		switch {
		case m.Skip:
			return 0, fmt.Errorf("%w: required and skip", ErrConflict)
		case m.Optional:
			return 0, fmt.Errorf("%w: required and optional", ErrConflict)
		case m.HasDefault:
			return 0, fmt.Errorf("%w: required with a default", ErrConflict)
		}
		return Required, nil
	}
	switch {
	case m.Skip:
		return Skipped, nil
	case m.Optional, m.HasDefault, optionalType:
		return Optional, nil
	default:
		return Required, nil
	}
}

var optionalInterface = reflect.TypeFor[wire.Optional]()

// IsOptionalType reports whether values of t carry their own presence
// flag on the wire: pointers and wire.Option.
func IsOptionalType(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Implements(optionalInterface)
}

// ClassifyField is Classify for a Go struct field type.
func ClassifyField(t reflect.Type, m Modifiers) (Presence, error) {
	return Classify(IsOptionalType(t), m)
}

// ParseTag parses the value of a `wire` struct tag:
//
//	wire:"3"                      ID 3
//	wire:"3,optional"             ID 3, optional
//	wire:",required"              ordinal ID, required
//	wire:"4,default=fallback"     ID 4, default literal "fallback"
//	wire:",skip" or wire:"-"      never written
//
// default= must be the last option; everything after it, commas
// included, is the literal.
func ParseTag(tag string) (Modifiers, error) {
	var m Modifiers
	if tag == "-" {
		m.Skip = true
		return m, nil
	}

	options := tag
	if index := strings.Index(tag, "default="); index >= 0 {
		m.Default = tag[index+len("default="):]
		m.HasDefault = true
		options = strings.TrimSuffix(tag[:index], ",")
		if index > 0 && !strings.HasSuffix(tag[:index], ",") {
			return m, fmt.Errorf("%w: %q: default= must be a separate option", ErrBadTag, tag)
		}
	}

	parts := strings.Split(options, ",")
	if id := strings.TrimSpace(parts[0]); id != "" {
		value, err := strconv.ParseUint(id, 10, 16)
		if err != nil {
			return m, fmt.Errorf("%w: %q: id must be an integer in [0, 65535]", ErrBadTag, tag)
		}
		m.ID = uint16(value)
		m.HasID = true
	}
	for _, option := range parts[1:] {
		switch strings.TrimSpace(option) {
		case "required":
			m.Required = true
		case "optional":
			m.Optional = true
		case "skip":
			m.Skip = true
		case "":
		default:
			return m, fmt.Errorf("%w: %q: unknown option %q", ErrBadTag, tag, option)
		}
	}
	return m, nil
}
