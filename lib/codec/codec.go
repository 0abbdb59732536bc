// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// UnknownFields selects what a decoder does with a record field ID its
// schema does not declare.
type UnknownFields uint8

const (
	// IgnoreUnknown logs the ID and moves on without consuming any
	// bytes. Decoding stays correct only if the unknown field was the
	// last one in the input.
	IgnoreUnknown UnknownFields = iota

	// RejectUnknown fails with wire.KindParsing, with the unknown ID at
	// the end of the error path.
	RejectUnknown
)

func (u UnknownFields) String() string {
	switch u {
	case IgnoreUnknown:
		return "ignore"
	case RejectUnknown:
		return "reject"
	default:
		return fmt.Sprintf("UnknownFields(%d)", uint8(u))
	}
}

// ParseUnknownFields parses "ignore" or "reject".
func ParseUnknownFields(s string) (UnknownFields, error) {
	switch s {
	case "ignore", "":
		return IgnoreUnknown, nil
	case "reject":
		return RejectUnknown, nil
	default:
		return 0, fmt.Errorf("unknown field policy %q (want ignore or reject)", s)
	}
}

// Option configures a Decoder.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	unknown   UnknownFields
	maxLength int
}

// WithLogger sets the logger that receives unknown-field warnings. The
// default discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithUnknownFields sets the unknown-field policy.
func WithUnknownFields(policy UnknownFields) Option {
	return func(o *options) { o.unknown = policy }
}

// WithMaxLength bounds every string, byte slice, sequence and map
// length the decoder accepts. Zero or less keeps wire.DefaultMaxLength.
func WithMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// decodeState is what decode plans see besides the target value.
type decodeState struct {
	r       *wire.Reader
	unknown UnknownFields
	logger  *slog.Logger
}

// Marshal encodes v. A pointer is encoded as the value it points to;
// pass a pointer to an interface variable to encode a union value.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one value from data into the value v points to.
// Bytes after the value are ignored. Empty input fails with an error
// matching io.EOF; input that ends inside the value fails with one
// matching io.ErrUnexpectedEOF.
func Unmarshal(data []byte, v any, opts ...Option) error {
	err := NewDecoder(bytes.NewReader(data), opts...).Decode(v)
	if err == io.EOF {
		return wire.IOError(io.EOF)
	}
	return err
}

// Encoder writes values back to back to an output stream.
type Encoder struct {
	w *wire.Writer
}

// NewEncoder returns an encoder writing to w. Nothing is buffered: each
// primitive is handed to w as it is encoded, so wrap slow writers in a
// bufio.Writer.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: wire.NewWriter(w)}
}

// Encode writes v. A pointer is encoded as the value it points to.
func (e *Encoder) Encode(v any) error {
	return EncodeTo(e.w, v)
}

// EncodeTo writes v to w. It is Encoder.Encode for callers that already
// hold a wire.Writer.
func EncodeTo(w *wire.Writer, v any) error {
	value := reflect.ValueOf(v)
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return fmt.Errorf("codec: cannot encode a nil %T", v)
		}
		value = value.Elem()
	}
	if !value.IsValid() {
		return errors.New("codec: cannot encode nil")
	}
	p, err := planFor(value.Type())
	if err != nil {
		return err
	}
	return p.encode(w, value)
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int64 {
	return e.w.Written()
}

// Decoder reads values written back to back from an input stream.
type Decoder struct {
	state decodeState
}

// NewDecoder returns a decoder reading from r. It never reads past the
// end of the value being decoded.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	reader := wire.NewReader(r)
	reader.SetMaxLength(o.maxLength)
	return &Decoder{state: decodeState{r: reader, unknown: o.unknown, logger: o.logger}}
}

// Decode reads the next value into the value v points to. It returns
// io.EOF, unwrapped, when the input ends cleanly before the value's
// first byte. Input ending anywhere later yields an error matching
// io.ErrUnexpectedEOF.
func (d *Decoder) Decode(v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("codec: Decode needs a non-nil pointer, got %T", v)
	}
	p, err := planFor(target.Type().Elem())
	if err != nil {
		return err
	}
	start := d.state.r.Consumed()
	err = p.decode(&d.state, target.Elem())
	if err == nil {
		return nil
	}
	if d.state.r.Consumed() == start && errors.Is(err, io.EOF) {
		return io.EOF
	}
	return wire.Truncated(err)
}

// Consumed returns the number of bytes read so far.
func (d *Decoder) Consumed() int64 {
	return d.state.r.Consumed()
}

// DecodeFrom reads one value from r into the value v points to,
// ignoring unknown record fields without logging. Unlike Decode it
// reports end of input as is.
func DecodeFrom(r *wire.Reader, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("codec: DecodeFrom needs a non-nil pointer, got %T", v)
	}
	p, err := planFor(target.Type().Elem())
	if err != nil {
		return err
	}
	state := decodeState{r: r, logger: slog.New(slog.DiscardHandler)}
	return p.decode(&state, target.Elem())
}

// New returns a T holding its declared defaults: what a record with no
// fields on the wire decodes to. It fails if T has no valid schema.
func New[T any]() (T, error) {
	var v T
	p, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return v, err
	}
	p.resetValue(reflect.ValueOf(&v).Elem())
	return v, nil
}

// Check builds the encoding plan of T and every type it contains,
// returning the schema error that its first encode or decode would
// otherwise report. Call it at startup to fail fast.
func Check[T any]() error {
	_, err := planFor(reflect.TypeFor[T]())
	return err
}
