// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

// Adapter gives a type from outside this module a wire form. Adapted
// values are never omitted as defaults unless the field declares one.
type Adapter[T any] struct {
	// Kind is the descriptor kind reported by schema.Describe for T.
	// Empty leaves T undescribable.
	Kind schema.Kind

	Encode func(w *wire.Writer, v T) error
	Decode func(r *wire.Reader) (T, error)
}

var adapters sync.Map // reflect.Type → func(*plan)

// RegisterAdapter installs the wire form of T. Register adapters during
// initialization, before any value containing a T is encoded: plans
// already built keep the form they were built with.
func RegisterAdapter[T any](adapter Adapter[T]) {
	t := reflect.TypeFor[T]()
	adapters.Store(t, func(p *plan) {
		p.encode = func(w *wire.Writer, v reflect.Value) error {
			return adapter.Encode(w, v.Interface().(T))
		}
		p.decode = func(d *decodeState, v reflect.Value) error {
			value, err := adapter.Decode(d.r)
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(&value).Elem())
			return nil
		}
	})
	if adapter.Kind != "" {
		schema.RegisterExternal(t, adapter.Kind)
	}
}

func init() {
	RegisterAdapter(Adapter[time.Time]{Kind: schema.KindTimestamp, Encode: encodeTime, Decode: decodeTime})
	RegisterAdapter(Adapter[time.Duration]{Kind: schema.KindDuration, Encode: encodeDuration, Decode: decodeDuration})
	RegisterAdapter(Adapter[netip.Addr]{Kind: schema.KindIPAddr, Encode: encodeAddr, Decode: decodeAddr})
	RegisterAdapter(Adapter[netip.Prefix]{Kind: schema.KindIPNet, Encode: encodePrefix, Decode: decodePrefix})
	RegisterAdapter(Adapter[uuid.UUID]{Kind: schema.KindUUID, Encode: encodeUUID, Decode: decodeUUID})
	RegisterAdapter(Adapter[big.Rat]{Kind: schema.KindRational, Encode: encodeRat, Decode: decodeRat})
}

// Timestamps are i64 Unix seconds then u32 nanoseconds within the
// second. Decoded times are in UTC.
func encodeTime(w *wire.Writer, t time.Time) error {
	if err := w.WriteInt64(t.Unix()); err != nil {
		return err
	}
	return w.WriteUint32(uint32(t.Nanosecond()))
}

func decodeTime(r *wire.Reader) (time.Time, error) {
	seconds, err := r.ReadInt64()
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := r.ReadUint32()
	if err != nil {
		return time.Time{}, err
	}
	if nanos >= 1e9 {
		return time.Time{}, wire.Errorf(wire.KindInvalidTimestamp, "%d seconds %d nanoseconds", seconds, nanos)
	}
	return time.Unix(seconds, int64(nanos)).UTC(), nil
}

// Durations are u64 seconds then u32 nanoseconds.
func encodeDuration(w *wire.Writer, d time.Duration) error {
	if d < 0 {
		return wire.Parsingf("negative duration %s", d)
	}
	if err := w.WriteUint64(uint64(d / time.Second)); err != nil {
		return err
	}
	return w.WriteUint32(uint32(d % time.Second))
}

func decodeDuration(r *wire.Reader) (time.Duration, error) {
	seconds, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	nanos, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if seconds > math.MaxInt64/uint64(time.Second) {
		return 0, wire.Parsingf("duration of %d seconds overflows time.Duration", seconds)
	}
	d := time.Duration(seconds) * time.Second
	if int64(nanos) > math.MaxInt64-int64(d) {
		return 0, wire.Parsingf("duration of %d seconds %d nanoseconds overflows time.Duration", seconds, nanos)
	}
	return d + time.Duration(nanos), nil
}

// Addresses are a bool (true for IPv4) then the address as an unsigned
// integer: u32 for IPv4, u128 for IPv6. The integer is little-endian, so
// the address octets appear in reverse order.
func encodeAddr(w *wire.Writer, addr netip.Addr) error {
	if !addr.IsValid() {
		return wire.Parsingf("invalid IP address")
	}
	if addr.Is4() {
		if err := w.WriteBool(true); err != nil {
			return err
		}
		octets := addr.As4()
		return w.WriteUint32(binary.BigEndian.Uint32(octets[:]))
	}
	if err := w.WriteBool(false); err != nil {
		return err
	}
	octets := addr.As16()
	return w.WriteUint128(wire.Uint128{
		Hi: binary.BigEndian.Uint64(octets[:8]),
		Lo: binary.BigEndian.Uint64(octets[8:]),
	})
}

func decodeAddr(r *wire.Reader) (netip.Addr, error) {
	v4, err := r.ReadBool()
	if err != nil {
		return netip.Addr{}, err
	}
	if v4 {
		n, err := r.ReadUint32()
		if err != nil {
			return netip.Addr{}, err
		}
		var octets [4]byte
		binary.BigEndian.PutUint32(octets[:], n)
		return netip.AddrFrom4(octets), nil
	}
	n, err := r.ReadUint128()
	if err != nil {
		return netip.Addr{}, err
	}
	var octets [16]byte
	binary.BigEndian.PutUint64(octets[:8], n.Hi)
	binary.BigEndian.PutUint64(octets[8:], n.Lo)
	return netip.AddrFrom16(octets), nil
}

// The remaining adapters use the type's canonical text form as a
// string.

func encodePrefix(w *wire.Writer, prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return wire.Parsingf("invalid IP prefix")
	}
	return w.WriteString(prefix.String())
}

func decodePrefix(r *wire.Reader) (netip.Prefix, error) {
	return decodeText(r, netip.ParsePrefix)
}

func encodeUUID(w *wire.Writer, id uuid.UUID) error {
	return w.WriteString(id.String())
}

func decodeUUID(r *wire.Reader) (uuid.UUID, error) {
	return decodeText(r, uuid.Parse)
}

func encodeRat(w *wire.Writer, rat big.Rat) error {
	return w.WriteString(rat.String())
}

func decodeRat(r *wire.Reader) (big.Rat, error) {
	s, err := r.ReadString()
	if err != nil {
		return big.Rat{}, err
	}
	var rat big.Rat
	if _, ok := rat.SetString(s); !ok {
		return big.Rat{}, wire.Parsingf("invalid rational %q", s)
	}
	return rat, nil
}

func decodeText[T any](r *wire.Reader, parse func(string) (T, error)) (T, error) {
	s, err := r.ReadString()
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := parse(s)
	if err != nil {
		var zero T
		return zero, &wire.Error{Kind: wire.KindParsing, Detail: fmt.Sprintf("%q", s), Err: err}
	}
	return v, nil
}
