// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind classifies a codec failure. The set is closed: every error this
// package or lib/codec returns carries exactly one of these kinds.
type Kind uint8

const (
	// KindIO wraps a failure of the underlying stream, including
	// end of input. Encode-side domain failures (a length that does
	// not fit its prefix) are reported with this kind as well.
	KindIO Kind = iota + 1

	// KindParsing reports bytes that do not form a valid value:
	// malformed UTF-8, an unparseable string form, a length beyond
	// the reader's limit.
	KindParsing

	// KindInvalidTimestamp reports a timestamp whose nanosecond
	// component is out of range.
	KindInvalidTimestamp

	// KindInvalidChar reports a char that is not a Unicode scalar
	// value.
	KindInvalidChar

	// KindUnknownVariant reports a variant ID the union does not
	// declare, or an attempt to encode a nil union.
	KindUnknownVariant

	// KindMissingField reports a required record field that was not
	// present in the input.
	KindMissingField
)

// String returns the human-readable name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "i/o failure"
	case KindParsing:
		return "malformed value"
	case KindInvalidTimestamp:
		return "invalid timestamp"
	case KindInvalidChar:
		return "invalid char"
	case KindUnknownVariant:
		return "unknown variant"
	case KindMissingField:
		return "required field missing"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Sentinels matched by errors.Is against any [*Error] of the
// corresponding kind, whatever its path or detail.
var (
	ErrParsing          = errors.New("wire: malformed value")
	ErrInvalidTimestamp = errors.New("wire: invalid timestamp")
	ErrInvalidChar      = errors.New("wire: invalid char")
	ErrUnknownVariant   = errors.New("wire: unknown variant")
	ErrMissingField     = errors.New("wire: required field missing")
)

// ErrTooLong is wrapped by the KindIO error returned when a length or
// count does not fit its fixed-width prefix.
var ErrTooLong = errors.New("wire: length exceeds prefix width")

func (k Kind) sentinel() error {
	switch k {
	case KindParsing:
		return ErrParsing
	case KindInvalidTimestamp:
		return ErrInvalidTimestamp
	case KindInvalidChar:
		return ErrInvalidChar
	case KindUnknownVariant:
		return ErrUnknownVariant
	case KindMissingField:
		return ErrMissingField
	}
	return nil
}

// Error is the single error type of the codec.
type Error struct {
	Kind Kind

	// Path lists the field IDs of the enclosing records, outermost
	// first. Empty when the failure happened outside any record
	// field (a top-level primitive, a variant tag).
	Path []uint16

	// Detail is free-form diagnostic text, such as the offending
	// variant ID or the parser's message.
	Detail string

	// Err is the underlying cause: the stream error for KindIO, the
	// parser error for string-form values. May be nil.
	Err error
}

// Errorf returns an *Error of the given kind with formatted detail.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Parsingf is shorthand for Errorf(KindParsing, ...).
func Parsingf(format string, args ...any) *Error {
	return Errorf(KindParsing, format, args...)
}

// IOError wraps a stream failure. A nil err returns nil.
func IOError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if len(e.Path) > 0 {
		b.WriteString("field ")
		b.WriteString(FormatPath(e.Path))
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is(err, wire.ErrMissingField) and errors.Is(err, io.EOF) both
// work on the same value.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Field returns the innermost field ID on the path: the field of the
// record that actually failed.
func (e *Error) Field() (uint16, bool) {
	if len(e.Path) == 0 {
		return 0, false
	}
	return e.Path[len(e.Path)-1], true
}

// FormatPath renders a field path as dot-separated decimal IDs.
func FormatPath(path []uint16) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ".")
}

// WithField records that err happened while decoding (or encoding)
// the field with the given ID. The ID is prepended to the existing
// path; paths already present are never discarded or reordered. Errors
// that are not *Error are classified first: stream errors become
// KindIO, everything else KindParsing. A nil err returns nil.
func WithField(err error, id uint16) error {
	if err == nil {
		return nil
	}
	e := AsError(err)
	path := make([]uint16, 0, len(e.Path)+1)
	path = append(path, id)
	path = append(path, e.Path...)
	wrapped := *e
	wrapped.Path = path
	return &wrapped
}

// AsError returns err as an *Error. An *Error anywhere in the chain is
// returned as is; any other error is wrapped with the kind it most
// likely represents.
func AsError(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: KindIO, Err: err}
	}
	return &Error{Kind: KindParsing, Err: err}
}

// KindOf returns the kind of err, or zero when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	return AsError(err).Kind
}

// IsEOF reports whether err was caused by running out of input,
// whether cleanly at a value boundary or in the middle of a value. A
// streaming caller can treat it as "more data needed".
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Truncated converts a clean end-of-input error into
// io.ErrUnexpectedEOF, keeping its path. Decoders call it when input
// ended after a value had started, so that errors.Is(err, io.EOF)
// stays reserved for the clean end of a batch.
func Truncated(err error) error {
	if err == nil || !errors.Is(err, io.EOF) {
		return err
	}
	e := AsError(err)
	converted := *e
	converted.Kind = KindIO
	converted.Err = io.ErrUnexpectedEOF
	return &converted
}
