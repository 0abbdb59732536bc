// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Writer is the write side of a capture. Close must be called to
// flush the compression frame; it does not close the underlying
// writer.
type Writer struct {
	w           io.Writer
	close       func() error
	compression Compression
}

// NewWriter returns a Writer that wraps w in the given compression
// frame.
func NewWriter(w io.Writer, compression Compression) (*Writer, error) {
	switch compression {
	case None:
		return &Writer{w: w, close: func() error { return nil }, compression: None}, nil
	case Zstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return &Writer{w: encoder, close: encoder.Close, compression: Zstd}, nil
	case LZ4:
		encoder := lz4.NewWriter(w)
		if err := encoder.Apply(lz4.ChecksumOption(true)); err != nil {
			return nil, fmt.Errorf("configuring lz4 writer: %w", err)
		}
		return &Writer{w: encoder, close: encoder.Close, compression: LZ4}, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

// Write writes encoded bytes into the capture.
func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

// Compression returns the frame format being written.
func (w *Writer) Compression() Compression {
	return w.compression
}

// Close finishes the compression frame.
func (w *Writer) Close() error {
	if err := w.close(); err != nil {
		return fmt.Errorf("closing %s capture: %w", w.compression, err)
	}
	return nil
}

// Reader is the read side of a capture, yielding the uncompressed
// value bytes.
type Reader struct {
	r           io.Reader
	close       func()
	compression Compression
}

// NewReader returns a Reader for r, detecting the compression from
// the frame magic.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	return NewReaderWith(buffered, Detect(prefix))
}

// NewReaderWith returns a Reader for r with a known compression.
func NewReaderWith(r io.Reader, compression Compression) (*Reader, error) {
	switch compression {
	case None:
		return &Reader{r: r, close: func() {}, compression: None}, nil
	case Zstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		return &Reader{r: decoder, close: decoder.Close, compression: Zstd}, nil
	case LZ4:
		return &Reader{r: lz4.NewReader(r), close: func() {}, compression: LZ4}, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

// Read reads uncompressed capture bytes.
func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

// Compression returns the detected or given frame format.
func (r *Reader) Compression() Compression {
	return r.compression
}

// Close releases decompressor resources. It does not close the
// underlying reader.
func (r *Reader) Close() error {
	r.close()
	return nil
}
