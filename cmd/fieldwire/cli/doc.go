// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the fieldwire binary: a tree
// of [Command] values dispatched by name, pflag-based flag parsing,
// generated help with examples, and "did you mean" suggestions for
// mistyped commands and flags.
//
// Commands report failures as errors. [ToolError] attaches a category
// and an optional hint; [ExitError] requests a specific exit code for
// commands whose non-zero exit is a result rather than a failure
// (schema compat finding breaking changes). [NewCommandLogger] builds
// the slog logger commands pass to the codec.
package cli
