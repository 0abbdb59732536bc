// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for fieldwire packages.
//
// [Hex] turns a human-formatted hex string (whitespace and underscores
// allowed between bytes) into bytes, so golden wire encodings can be
// written with their fields visually separated:
//
//	want := testutil.Hex(t, "0200 0000 01 0100 02000000 6869")
//
// [DumpHex] formats bytes the same way for failure messages.
//
// [WriteFile] writes a fixture into a test's temporary directory and
// returns its path, for tests of loaders that read from disk.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no fieldwire-internal dependencies.
package testutil
