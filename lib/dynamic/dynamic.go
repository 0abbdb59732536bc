// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dynamic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/fieldwire/lib/codec"
	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// Codec encodes and decodes values of the types in one catalog. It is
// immutable and safe for concurrent use.
type Codec struct {
	catalog   *schema.Catalog
	unknown   codec.UnknownFields
	logger    *slog.Logger
	maxLength int
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger that receives unknown-field warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// WithUnknownFields sets the unknown-field policy used when decoding.
func WithUnknownFields(policy codec.UnknownFields) Option {
	return func(c *Codec) { c.unknown = policy }
}

// WithMaxLength bounds every length prefix the decoder accepts.
func WithMaxLength(n int) Option {
	return func(c *Codec) { c.maxLength = n }
}

// New returns a Codec for the types in catalog.
func New(catalog *schema.Catalog, opts ...Option) *Codec {
	c := &Codec{catalog: catalog}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Catalog returns the catalog c was built from.
func (c *Codec) Catalog() *schema.Catalog {
	return c.catalog
}

// Resolve parses a type expression such as "Event" or "list<Event>"
// and checks that every type it names is in the catalog.
func (c *Codec) Resolve(expr string) (schema.Type, error) {
	t, err := schema.ParseType(expr)
	if err != nil {
		return schema.Type{}, err
	}
	var missing []string
	t.Walk(func(element schema.Type) {
		if element.Kind != schema.KindRef {
			return
		}
		if _, ok := c.catalog.Lookup(element.Name); !ok {
			missing = append(missing, element.Name)
		}
	})
	if len(missing) > 0 {
		return schema.Type{}, &schema.Error{Type: missing[0], Err: schema.ErrUnknownType}
	}
	return t, nil
}

// Marshal encodes v as a value of the type expression expr.
func (c *Codec) Marshal(expr string, v any) ([]byte, error) {
	t, err := c.Resolve(expr)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.Encode(wire.NewWriter(&buf), t, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one value of the type expression expr from data.
// Bytes after the value are ignored.
func (c *Codec) Unmarshal(expr string, data []byte) (any, error) {
	t, err := c.Resolve(expr)
	if err != nil {
		return nil, err
	}
	decoder := c.NewDecoder(bytes.NewReader(data), t)
	v, err := decoder.Decode()
	if err == io.EOF {
		return nil, wire.IOError(io.EOF)
	}
	return v, err
}

// Encode writes v as a value of type t.
func (c *Codec) Encode(w *wire.Writer, t schema.Type, v any) error {
	e := encoder{catalog: c.catalog, w: w}
	return e.value(t, v)
}

// Decoder reads values of one type written back to back.
type Decoder struct {
	typ   schema.Type
	state decoder
}

// NewDecoder returns a decoder of values of type t read from r.
func (c *Codec) NewDecoder(r io.Reader, t schema.Type) *Decoder {
	reader := wire.NewReader(r)
	reader.SetMaxLength(c.maxLength)
	return &Decoder{
		typ:   t,
		state: decoder{codec: c, r: reader},
	}
}

// Decode reads the next value. It returns io.EOF, unwrapped, when the
// input ends cleanly before the value's first byte.
func (d *Decoder) Decode() (any, error) {
	start := d.state.r.Consumed()
	v, err := d.state.value(d.typ)
	if err == nil {
		return v, nil
	}
	if d.state.r.Consumed() == start && errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, wire.Truncated(err)
}

// Consumed returns the number of bytes read so far.
func (d *Decoder) Consumed() int64 {
	return d.state.r.Consumed()
}

// Encoder writes values of one type back to back.
type Encoder struct {
	typ   schema.Type
	codec *Codec
	w     *wire.Writer
}

// NewEncoder returns an encoder of values of type t written to w.
func (c *Codec) NewEncoder(w io.Writer, t schema.Type) *Encoder {
	return &Encoder{typ: t, codec: c, w: wire.NewWriter(w)}
}

// Encode writes v.
func (e *Encoder) Encode(v any) error {
	return e.codec.Encode(e.w, e.typ, v)
}

// Written returns the number of bytes written so far.
func (e *Encoder) Written() int64 {
	return e.w.Written()
}

func mismatch(t schema.Type, v any) error {
	return wire.Parsingf("cannot use %T as %s", v, t)
}

func lookup(catalog *schema.Catalog, name string) (*schema.Def, error) {
	def, ok := catalog.Lookup(name)
	if !ok {
		return nil, &schema.Error{Type: name, Err: fmt.Errorf("%w: not in the catalog", schema.ErrUnknownType)}
	}
	return def, nil
}
