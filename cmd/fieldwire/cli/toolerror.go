// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// ErrorCategory classifies command errors so that scripts can tell bad
// invocations from bad data without parsing error text. main maps each
// category to an exit code.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// unknown flags, wrong argument count, invalid config values.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced file or type does not
	// exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryData indicates the data being processed is malformed:
	// undecodable bytes, values that do not fit the schema, invalid
	// schema documents.
	CategoryData ErrorCategory = "data"

	// CategoryInternal indicates an unexpected error: bugs, I/O
	// failures on output.
	CategoryInternal ErrorCategory = "internal"
)

// ExitCode returns the process exit code for errors of the category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryData:
		return 4
	default:
		return 1
	}
}

// ToolError is a categorized error returned by CLI commands. It wraps
// an inner error, preserving the full error chain for errors.Is and
// errors.As, and may carry a hint printed after the message.
//
// Use the category-specific constructors rather than constructing
// ToolError directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint is an optional next step for the user.
	Hint string
}

// Error returns the message, followed by the hint after a blank line
// when there is one.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns the receiver for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced file or type does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Data creates a data error: the bytes or documents being processed are malformed.
func Data(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryData, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of err: the category of a ToolError
// in its chain, CategoryData for codec errors, CategoryInternal for
// anything else.
func CategoryOf(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	var wireErr *wire.Error
	if errors.As(err, &wireErr) {
		return CategoryData
	}
	return CategoryInternal
}
