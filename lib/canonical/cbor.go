// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode produces Core Deterministic Encoding: sorted map keys,
// smallest integer forms, definite lengths. Equal inputs always encode
// to equal bytes, which is what fingerprints depend on.
var encMode cbor.EncMode

// decMode decodes into map[string]any when the target is untyped, so
// CBOR read back by the CLI is interchangeable with decoded JSON.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Values such as uuid.UUID, netip.Addr and big.Rat appear in
	// dynamically decoded records; encode them through MarshalText so
	// they keep their canonical string form instead of becoming
	// opaque byte arrays or empty maps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	// The library prefers MarshalBinary over MarshalText; uuid.UUID and
	// netip types implement both.
	encOptions.BinaryMarshaler = cbor.BinaryMarshalerNone
	// time.Time values from decoded timestamps keep nanosecond
	// precision.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("canonical: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("canonical: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder writes a CBOR sequence. Type alias so callers import only
// this package.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence.
type Decoder = cbor.Decoder

// NewEncoder returns a deterministic CBOR encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the diagnostic notation (RFC 8949 §8) of the single
// CBOR item in data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// DiagnoseFirst returns the diagnostic notation of the first item in
// data and the bytes that follow it.
func DiagnoseFirst(data []byte) (string, []byte, error) {
	return cbor.DiagnoseFirst(data)
}
