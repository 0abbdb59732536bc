// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec encodes Go values in the fieldwire binary format and
// decodes them back.
//
// The format is compact and fixed-width: integers are little-endian at
// their natural width, strings and sequences carry a u32 length, and
// nothing is self-describing. Schema evolution happens at two points
// only: records and unions.
//
// A record is a Go struct. It is written as a u16 field count followed
// by (u16 field ID, value) pairs. Field IDs and presence come from the
// `wire` struct tag (see package schema):
//
//	type Message struct {
//		Sequence uint64            `wire:"0"`
//		Note     *string           `wire:"1"`
//		Retries  uint32            `wire:"2,default=3"`
//		Cache    map[string][]byte `wire:"-"`
//	}
//
// Required fields are always written. Optional fields are written only
// when they differ from their default, so a message whose optional
// fields all hold their defaults is two bytes long. On decode the
// target is reset to its defaults, pairs are applied in the order they
// arrive, and any required field that did not arrive fails the decode
// with wire.KindMissingField.
//
// A union is a Go interface type registered with schema.RegisterUnion.
// It is written as a u16 variant ID followed by the case's payload;
// cases whose type is a struct with no fields carry no payload.
//
// # Unknown fields
//
// Field values are not length-framed, so a decoder cannot skip the
// bytes of a field it does not know. With IgnoreUnknown (the default)
// the unknown ID is logged and decoding continues with the next bytes
// as if they were the next field ID; this is only sound when the
// unknown field is the last one in the input. RejectUnknown fails
// instead. schema.CheckCompatibility reports schema changes that would
// lead here.
//
// # Usage
//
//	data, err := codec.Marshal(message)
//	err = codec.Unmarshal(data, &message)
//
// For a stream of values written back to back:
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn, codec.WithUnknownFields(codec.RejectUnknown))
//	for {
//		var message Message
//		if err := decoder.Decode(&message); err == io.EOF {
//			break
//		} else if err != nil {
//			return err
//		}
//	}
//
// Types outside this module get a wire form through RegisterAdapter
// (time.Time, time.Duration, netip.Addr, netip.Prefix, uuid.UUID and
// big.Rat are registered here) or by implementing wire.Marshaler and
// wire.Unmarshaler.
package codec
