// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture reads and writes capture files: batches of encoded
// values written back to back, optionally wrapped in a zstd or LZ4
// frame.
//
// The values themselves carry no framing (see lib/codec), so a capture
// is only meaningful together with the type of its values. Compression
// is a property of the file: [NewWriter] takes it explicitly and
// [NewReader] detects it from the frame magic at the start of the
// stream. An uncompressed capture whose first four bytes happen to be
// a frame magic is misdetected; callers that know the file is raw can
// pass [None] to [NewReaderWith].
package capture
