// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dynamic

import (
	"math/big"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/codec"
	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// Containers start at most this many elements large, as in the Go codec.
const containerAllocLimit = 1024

type decoder struct {
	codec *Codec
	r     *wire.Reader
}

func (d *decoder) value(t schema.Type) (any, error) {
	r := d.r
	switch t.Kind {
	case schema.KindRef:
		def, err := lookup(d.codec.catalog, t.Name)
		if err != nil {
			return nil, err
		}
		if def.Union {
			return d.union(def)
		}
		return d.record(def)
	case schema.KindOptional:
		present, err := r.ReadPresence()
		if err != nil || !present {
			return nil, err
		}
		return d.value(t.Elem())
	case schema.KindList, schema.KindSet:
		n, err := r.ReadLen()
		if err != nil {
			return nil, err
		}
		return d.elements(t.Elem(), n)
	case schema.KindMap:
		return d.mapValue(t)
	case schema.KindTuple:
		out := make([]any, len(t.Elems))
		for i, elem := range t.Elems {
			v, err := d.value(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case schema.KindArray:
		return d.elements(t.Elem(), t.Len)
	case schema.KindRange:
		start, err := d.value(t.Elem())
		if err != nil {
			return nil, err
		}
		end, err := d.value(t.Elem())
		if err != nil {
			return nil, err
		}
		return map[string]any{"start": start, "end": end}, nil
	}
	v, err := d.scalar(t)
	if err != nil {
		return nil, err
	}
	return present(v), nil
}

// scalar reads a scalar in its canonical representation.
func (d *decoder) scalar(t schema.Type) (any, error) {
	r := d.r
	switch t.Kind {
	case schema.KindBool:
		return r.ReadBool()
	case schema.KindU8:
		n, err := r.ReadUint8()
		return uint64(n), err
	case schema.KindU16:
		n, err := r.ReadUint16()
		return uint64(n), err
	case schema.KindU32:
		n, err := r.ReadUint32()
		return uint64(n), err
	case schema.KindU64, schema.KindUsize:
		return r.ReadUint64()
	case schema.KindI8:
		n, err := r.ReadInt8()
		return int64(n), err
	case schema.KindI16:
		n, err := r.ReadInt16()
		return int64(n), err
	case schema.KindI32:
		n, err := r.ReadInt32()
		return int64(n), err
	case schema.KindI64, schema.KindIsize:
		return r.ReadInt64()
	case schema.KindU128:
		return r.ReadUint128()
	case schema.KindI128:
		return r.ReadInt128()
	case schema.KindF32:
		return r.ReadFloat32()
	case schema.KindF64:
		return r.ReadFloat64()
	case schema.KindChar:
		return r.ReadChar()
	case schema.KindString:
		return r.ReadString()
	case schema.KindBytes:
		b, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return b, nil
	case schema.KindUnit:
		return struct{}{}, nil
	case schema.KindTimestamp:
		var ts time.Time
		err := codec.DecodeFrom(r, &ts)
		return ts, err
	case schema.KindDuration:
		var duration time.Duration
		err := codec.DecodeFrom(r, &duration)
		return duration, err
	case schema.KindUUID:
		var id uuid.UUID
		err := codec.DecodeFrom(r, &id)
		return id, err
	case schema.KindIPAddr:
		var addr netip.Addr
		err := codec.DecodeFrom(r, &addr)
		return addr, err
	case schema.KindIPNet:
		var prefix netip.Prefix
		err := codec.DecodeFrom(r, &prefix)
		return prefix, err
	case schema.KindRational:
		rat := new(big.Rat)
		err := codec.DecodeFrom(r, rat)
		return rat, err
	}
	return nil, wire.Parsingf("%s has no wire form", t)
}

func (d *decoder) elements(elem schema.Type, n int) ([]any, error) {
	out := make([]any, 0, min(n, containerAllocLimit))
	for range n {
		v, err := d.value(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) mapValue(t schema.Type) (any, error) {
	n, err := d.r.ReadLen()
	if err != nil {
		return nil, err
	}
	keyType, valueType := t.Elems[0], t.Elems[1]
	if keyType.Kind == schema.KindString {
		out := make(map[string]any, min(n, containerAllocLimit))
		for range n {
			key, err := d.r.ReadString()
			if err != nil {
				return nil, err
			}
			value, err := d.value(valueType)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	}
	out := make([]any, 0, min(n, containerAllocLimit))
	for range n {
		key, err := d.value(keyType)
		if err != nil {
			return nil, err
		}
		value, err := d.value(valueType)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]any{"key": key, "value": value})
	}
	return out, nil
}

func (d *decoder) union(def *schema.Def) (any, error) {
	id, err := d.r.ReadVariant()
	if err != nil {
		return nil, err
	}
	variant, ok := def.Variant(id)
	if !ok {
		return nil, wire.Errorf(wire.KindUnknownVariant, "variant %d of %s", id, def.Name)
	}
	out := map[string]any{"variant": variant.Name}
	if variant.Payload != nil {
		payload, err := d.value(*variant.Payload)
		if err != nil {
			return nil, err
		}
		out["value"] = payload
	}
	return out, nil
}

func (d *decoder) record(def *schema.Def) (any, error) {
	count, err := d.r.ReadFieldCount()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(def.Fields))
	for range count {
		id, err := d.r.ReadFieldID()
		if err != nil {
			return nil, err
		}
		field, known := def.Field(id)
		if !known {
			if d.codec.unknown == codec.RejectUnknown {
				return nil, wire.WithField(wire.Parsingf("unknown field of %s", def.Name), id)
			}
			d.codec.logger.Warn("unknown field ignored", "type", def.Name, "field_id", id)
			continue
		}
		v, err := d.value(field.Type)
		if err != nil {
			return nil, wire.WithField(err, id)
		}
		if field.Presence != schema.Skipped {
			out[field.Name] = v
		}
	}
	for i := range def.Fields {
		field := &def.Fields[i]
		if _, ok := out[field.Name]; ok || field.Presence == schema.Skipped {
			continue
		}
		if field.Presence == schema.Required {
			return nil, wire.WithField(wire.Errorf(wire.KindMissingField, "%s.%s", def.Name, field.Name), field.ID)
		}
		out[field.Name] = d.fieldDefault(field)
	}
	return out, nil
}

// fieldDefault is the decoded form of an absent optional field.
func (d *decoder) fieldDefault(field *schema.FieldDesc) any {
	if field.HasDefault {
		return present(field.Default)
	}
	return d.zero(field.Type, map[string]bool{})
}

// zero is the decoded form of the default value of t. A record that
// contains itself without an optional in between yields nil at the
// point of recursion.
func (d *decoder) zero(t schema.Type, visiting map[string]bool) any {
	switch t.Kind {
	case schema.KindOptional, schema.KindIPAddr, schema.KindIPNet:
		return nil
	case schema.KindList, schema.KindSet:
		return []any{}
	case schema.KindMap:
		if t.Elems[0].Kind == schema.KindString {
			return map[string]any{}
		}
		return []any{}
	case schema.KindTuple:
		out := make([]any, len(t.Elems))
		for i, elem := range t.Elems {
			out[i] = d.zero(elem, visiting)
		}
		return out
	case schema.KindArray:
		out := make([]any, t.Len)
		for i := range out {
			out[i] = d.zero(t.Elem(), visiting)
		}
		return out
	case schema.KindRange:
		return map[string]any{"start": d.zero(t.Elem(), visiting), "end": d.zero(t.Elem(), visiting)}
	case schema.KindRef:
		def, ok := d.codec.catalog.Lookup(t.Name)
		if !ok || visiting[t.Name] {
			return nil
		}
		visiting[t.Name] = true
		defer delete(visiting, t.Name)
		if def.Union {
			variant, ok := def.DefaultVariant()
			if !ok {
				return nil
			}
			out := map[string]any{"variant": variant.Name}
			if variant.Payload != nil {
				out["value"] = d.zero(*variant.Payload, visiting)
			}
			return out
		}
		out := make(map[string]any, len(def.Fields))
		for i := range def.Fields {
			field := &def.Fields[i]
			if field.Presence == schema.Skipped {
				continue
			}
			if field.HasDefault {
				out[field.Name] = present(field.Default)
				continue
			}
			out[field.Name] = d.zero(field.Type, visiting)
		}
		return out
	}
	return present(zeroScalar(t.Kind))
}
