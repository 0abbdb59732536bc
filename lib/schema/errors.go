// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"strings"
)

// Sentinel errors wrapped by *Error. Match with errors.Is.
var (
	// ErrDuplicateID: two fields of one record, or two variants of
	// one union, resolve to the same ID.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrBadTag: a wire struct tag or document entry does not parse.
	ErrBadTag = errors.New("malformed field declaration")

	// ErrConflict: required combined with optional, skip or a default.
	ErrConflict = errors.New("conflicting modifiers")

	// ErrBadDefault: a default literal does not parse as the field's
	// type, or the type has no literal form.
	ErrBadDefault = errors.New("invalid default literal")

	// ErrTooManyFields: a record declares more fields than a u16 count
	// can hold.
	ErrTooManyFields = errors.New("too many fields")

	// ErrDuplicateCase: a union lists the same case type twice, has
	// more than one default case, or is registered twice.
	ErrDuplicateCase = errors.New("duplicate case")

	// ErrNotImplemented: a case type does not implement its union's
	// interface.
	ErrNotImplemented = errors.New("case does not implement the union interface")

	// ErrNotRegistered: an interface type used as a value has no
	// registered union.
	ErrNotRegistered = errors.New("interface is not a registered union")

	// ErrUnknownType: a type expression names a type that is not
	// defined, or a Go type has no wire form.
	ErrUnknownType = errors.New("unknown type")
)

// Error describes an ill-formed schema. Type is the Go type or
// document type name, Member the field or variant involved (empty when
// the problem is with the type as a whole).
type Error struct {
	Type   string
	Member string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("schema ")
	b.WriteString(e.Type)
	if e.Member != "" {
		b.WriteByte('.')
		b.WriteString(e.Member)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
