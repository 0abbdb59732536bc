// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type encodeFunc func(w *wire.Writer, v reflect.Value) error

// decodeFunc decodes into v, which is always settable.
type decodeFunc func(d *decodeState, v reflect.Value) error

// plan is the compiled encoding of one Go type. Plans are built once,
// cached, and never modified after construction finishes.
type plan struct {
	typ    reflect.Type
	encode encodeFunc
	decode decodeFunc

	// isDefault reports whether a value equals the type's default and
	// may be left out of an optional record field. Nil for types that
	// are never left out: records, tuples, arrays, shared values and
	// adapted types. A union is default only when nil.
	isDefault func(v reflect.Value) bool

	// reset stores the value a decode starts from. Nil means the zero
	// value.
	reset func(v reflect.Value)
}

func (p *plan) resetValue(v reflect.Value) {
	if p.reset != nil {
		p.reset(v)
		return
	}
	v.SetZero()
}

// Containers start at most this many elements large and grow as
// elements actually decode, so a corrupt count cannot force a huge
// allocation.
const containerAllocLimit = 1024

var (
	plans     sync.Map // reflect.Type → *plan
	buildLock sync.Mutex

	charType        = reflect.TypeFor[wire.Char]()
	uint128Type     = reflect.TypeFor[wire.Uint128]()
	int128Type      = reflect.TypeFor[wire.Int128]()
	optionalIface   = reflect.TypeFor[wire.Optional]()
	tupleIface      = reflect.TypeFor[wire.Tuple]()
	sharedIface     = reflect.TypeFor[wire.SharedValue]()
	marshalerType   = reflect.TypeFor[wire.Marshaler]()
	unmarshalerType = reflect.TypeFor[wire.Unmarshaler]()
)

// planFor returns the cached plan for t, building it and the plans of
// every type it contains on first use.
func planFor(t reflect.Type) (*plan, error) {
	if cached, ok := plans.Load(t); ok {
		return cached.(*plan), nil
	}
	buildLock.Lock()
	defer buildLock.Unlock()
	b := &builder{building: make(map[reflect.Type]*plan)}
	p, err := b.plan(t)
	if err != nil {
		return nil, err
	}
	for typ, built := range b.building {
		plans.LoadOrStore(typ, built)
	}
	return p, nil
}

// builder holds the plans under construction. A recursive type finds
// its own unfinished plan here; plans therefore call their children
// through the *plan at encode time instead of copying the child's
// functions at build time.
type builder struct {
	building map[reflect.Type]*plan
	// order lists building's keys in insertion order, so a failed
	// build can drop the plans made after it. Those may point at the
	// failed, unfinished plan.
	order []reflect.Type
}

func (b *builder) plan(t reflect.Type) (*plan, error) {
	if cached, ok := plans.Load(t); ok {
		return cached.(*plan), nil
	}
	if p, ok := b.building[t]; ok {
		return p, nil
	}
	p := &plan{typ: t}
	mark := len(b.order)
	b.building[t] = p
	b.order = append(b.order, t)
	if err := b.fill(p, t); err != nil {
		for _, typ := range b.order[mark:] {
			delete(b.building, typ)
		}
		b.order = b.order[:mark]
		return nil, err
	}
	return p, nil
}

func (b *builder) fill(p *plan, t reflect.Type) error {
	if install, ok := adapters.Load(t); ok {
		install.(func(*plan))(p)
		return nil
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		(t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)) {
		return marshalerPlan(p, t)
	}
	switch t {
	case charType:
		charPlan(p)
		return nil
	case uint128Type:
		uint128Plan(p)
		return nil
	case int128Type:
		int128Plan(p)
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		boolPlan(p)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intPlan(p, t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		uintPlan(p, t)
	case reflect.Float32:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteFloat32(float32(v.Float())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			f, err := d.r.ReadFloat32()
			v.SetFloat(float64(f))
			return err
		}
		p.isDefault = isZeroFloat
	case reflect.Float64:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteFloat64(v.Float()) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			f, err := d.r.ReadFloat64()
			v.SetFloat(f)
			return err
		}
		p.isDefault = isZeroFloat
	case reflect.String:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteString(v.String()) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			s, err := d.r.ReadString()
			v.SetString(s)
			return err
		}
		p.isDefault = isEmpty
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !hasCustomForm(t.Elem()) {
			bytesPlan(p)
			return nil
		}
		return b.slicePlan(p, t)
	case reflect.Array:
		return b.arrayPlan(p, t)
	case reflect.Map:
		return b.mapPlan(p, t)
	case reflect.Pointer:
		return b.pointerPlan(p, t)
	case reflect.Interface:
		return b.unionPlan(p, t)
	case reflect.Struct:
		return b.structPlan(p, t)
	default:
		return &schema.Error{Type: t.String(), Err: fmt.Errorf("%w: %s has no wire form", schema.ErrUnknownType, t.Kind())}
	}
	return nil
}

func isZeroFloat(v reflect.Value) bool { return v.Float() == 0 }
func isEmpty(v reflect.Value) bool     { return v.Len() == 0 }

func boolPlan(p *plan) {
	p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteBool(v.Bool()) }
	p.decode = func(d *decodeState, v reflect.Value) error {
		b, err := d.r.ReadBool()
		v.SetBool(b)
		return err
	}
	p.isDefault = func(v reflect.Value) bool { return !v.Bool() }
}

// intPlan covers every signed kind. int is always eight bytes on the
// wire; a value that does not fit the host's int fails to decode.
func intPlan(p *plan, t reflect.Type) {
	switch t.Kind() {
	case reflect.Int8:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteInt8(int8(v.Int())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadInt8()
			v.SetInt(int64(n))
			return err
		}
	case reflect.Int16:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteInt16(int16(v.Int())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadInt16()
			v.SetInt(int64(n))
			return err
		}
	case reflect.Int32:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteInt32(int32(v.Int())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadInt32()
			v.SetInt(int64(n))
			return err
		}
	default:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteInt64(v.Int()) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadInt64()
			if err != nil {
				return err
			}
			if v.OverflowInt(n) {
				return wire.Parsingf("%d overflows %s", n, v.Type())
			}
			v.SetInt(n)
			return nil
		}
	}
	p.isDefault = func(v reflect.Value) bool { return v.Int() == 0 }
}

func uintPlan(p *plan, t reflect.Type) {
	switch t.Kind() {
	case reflect.Uint8:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteUint8(uint8(v.Uint())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadUint8()
			v.SetUint(uint64(n))
			return err
		}
	case reflect.Uint16:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteUint16(uint16(v.Uint())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadUint16()
			v.SetUint(uint64(n))
			return err
		}
	case reflect.Uint32:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteUint32(uint32(v.Uint())) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadUint32()
			v.SetUint(uint64(n))
			return err
		}
	default:
		p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteUint64(v.Uint()) }
		p.decode = func(d *decodeState, v reflect.Value) error {
			n, err := d.r.ReadUint64()
			if err != nil {
				return err
			}
			if v.OverflowUint(n) {
				return wire.Parsingf("%d overflows %s", n, v.Type())
			}
			v.SetUint(n)
			return nil
		}
	}
	p.isDefault = func(v reflect.Value) bool { return v.Uint() == 0 }
}

func charPlan(p *plan) {
	p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteChar(wire.Char(v.Int())) }
	p.decode = func(d *decodeState, v reflect.Value) error {
		c, err := d.r.ReadChar()
		if err != nil {
			return err
		}
		v.SetInt(int64(c))
		return nil
	}
	p.isDefault = func(v reflect.Value) bool { return v.Int() == 0 }
}

// uint128Plan and int128Plan read the halves through reflection so that
// values reached through any path need not be addressable.
func uint128Plan(p *plan) {
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		return w.WriteUint128(wire.Uint128{Hi: v.Field(0).Uint(), Lo: v.Field(1).Uint()})
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		u, err := d.r.ReadUint128()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(u))
		return nil
	}
	p.isDefault = func(v reflect.Value) bool { return v.Field(0).Uint() == 0 && v.Field(1).Uint() == 0 }
}

func int128Plan(p *plan) {
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		return w.WriteInt128(wire.Int128{Hi: v.Field(0).Int(), Lo: v.Field(1).Uint()})
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		i, err := d.r.ReadInt128()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(i))
		return nil
	}
	p.isDefault = func(v reflect.Value) bool { return v.Field(0).Int() == 0 && v.Field(1).Uint() == 0 }
}

// bytesPlan is the bulk path for slices of byte-sized elements. Empty
// slices decode as nil, like every other empty container.
func bytesPlan(p *plan) {
	p.encode = func(w *wire.Writer, v reflect.Value) error { return w.WriteBytes(v.Bytes()) }
	p.decode = func(d *decodeState, v reflect.Value) error {
		data, err := d.r.ReadBytes()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			v.SetZero()
			return nil
		}
		v.SetBytes(data)
		return nil
	}
	p.isDefault = isEmpty
}

func marshalerPlan(p *plan, t reflect.Type) error {
	if !reflect.PointerTo(t).Implements(unmarshalerType) {
		return &schema.Error{
			Type: t.String(),
			Err:  fmt.Errorf("%w: implements wire.Marshaler but *%s does not implement wire.Unmarshaler", schema.ErrUnknownType, t),
		}
	}
	valueReceiver := t.Implements(marshalerType)
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		if valueReceiver {
			return v.Interface().(wire.Marshaler).MarshalWire(w)
		}
		if !v.CanAddr() {
			addressable := reflect.New(t).Elem()
			addressable.Set(v)
			v = addressable
		}
		return v.Addr().Interface().(wire.Marshaler).MarshalWire(w)
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		return v.Addr().Interface().(wire.Unmarshaler).UnmarshalWire(d.r)
	}
	return nil
}

func (b *builder) slicePlan(p *plan, t reflect.Type) error {
	elem, err := b.plan(t.Elem())
	if err != nil {
		return err
	}
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		n := v.Len()
		if err := w.WriteLen(n); err != nil {
			return err
		}
		for i := range n {
			if err := elem.encode(w, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		n, err := d.r.ReadLen()
		if err != nil {
			return err
		}
		if n == 0 {
			v.SetZero()
			return nil
		}
		slice := reflect.MakeSlice(t, 0, min(n, containerAllocLimit))
		zero := reflect.Zero(t.Elem())
		for i := range n {
			slice = reflect.Append(slice, zero)
			if err := elem.decode(d, slice.Index(i)); err != nil {
				return err
			}
		}
		v.Set(slice)
		return nil
	}
	p.isDefault = isEmpty
	return nil
}

// arrayPlan writes the elements back to back: a fixed-arity tuple.
func (b *builder) arrayPlan(p *plan, t reflect.Type) error {
	elem, err := b.plan(t.Elem())
	if err != nil {
		return err
	}
	bulk := t.Elem().Kind() == reflect.Uint8 && !hasCustomForm(t.Elem())
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		if bulk && v.CanAddr() {
			return w.Write(v.Bytes())
		}
		for i := range v.Len() {
			if err := elem.encode(w, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		if bulk {
			return d.r.Read(v.Bytes())
		}
		for i := range v.Len() {
			if err := elem.decode(d, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// hasCustomForm reports whether t is encoded by something other than
// its kind: an adapter or a wire.Marshaler.
func hasCustomForm(t reflect.Type) bool {
	if _, ok := adapters.Load(t); ok {
		return true
	}
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// mapPlan covers maps and sets (maps whose value type is a struct with
// no fields, which encodes as zero bytes). Keys of ordered kinds are
// written sorted so that equal maps encode identically.
func (b *builder) mapPlan(p *plan, t reflect.Type) error {
	key, err := b.plan(t.Key())
	if err != nil {
		return err
	}
	value, err := b.plan(t.Elem())
	if err != nil {
		return err
	}
	compare := keyOrder(t.Key())
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		if err := w.WriteLen(v.Len()); err != nil {
			return err
		}
		keys := v.MapKeys()
		if compare != nil {
			slices.SortFunc(keys, compare)
		}
		for _, k := range keys {
			if err := key.encode(w, k); err != nil {
				return err
			}
			if err := value.encode(w, v.MapIndex(k)); err != nil {
				return err
			}
		}
		return nil
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		n, err := d.r.ReadLen()
		if err != nil {
			return err
		}
		if n == 0 {
			v.SetZero()
			return nil
		}
		m := reflect.MakeMapWithSize(t, min(n, containerAllocLimit))
		for range n {
			k := reflect.New(t.Key()).Elem()
			if err := key.decode(d, k); err != nil {
				return err
			}
			element := reflect.New(t.Elem()).Elem()
			if err := value.decode(d, element); err != nil {
				return err
			}
			m.SetMapIndex(k, element)
		}
		v.Set(m)
		return nil
	}
	p.isDefault = isEmpty
	return nil
}

func keyOrder(t reflect.Type) func(a, b reflect.Value) int {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
	case reflect.String:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case b.Bool():
				return -1
			default:
				return 1
			}
		}
	}
	return nil
}

// pointerPlan makes *T an optional T. A present value always decodes
// into a freshly allocated T.
func (b *builder) pointerPlan(p *plan, t reflect.Type) error {
	elem, err := b.plan(t.Elem())
	if err != nil {
		return err
	}
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		if err := w.WritePresence(!v.IsNil()); err != nil || v.IsNil() {
			return err
		}
		return elem.encode(w, v.Elem())
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		present, err := d.r.ReadPresence()
		if err != nil {
			return err
		}
		if !present {
			v.SetZero()
			return nil
		}
		fresh := reflect.New(t.Elem())
		if err := elem.decode(d, fresh.Elem()); err != nil {
			return err
		}
		v.Set(fresh)
		return nil
	}
	p.isDefault = func(v reflect.Value) bool { return v.IsNil() }
	return nil
}

func (b *builder) structPlan(p *plan, t reflect.Type) error {
	switch {
	case schema.IsUnitType(t):
		p.encode = func(*wire.Writer, reflect.Value) error { return nil }
		p.decode = func(*decodeState, reflect.Value) error { return nil }
		p.isDefault = func(reflect.Value) bool { return true }
		return nil
	case t.Implements(optionalIface):
		return b.optionPlan(p, t)
	case t.Implements(sharedIface):
		return b.sharedPlan(p, t)
	case t.Implements(tupleIface):
		return b.tuplePlan(p, t)
	}
	return b.recordPlan(p, t)
}

// optionPlan handles wire.Option[T], whose first field is the value and
// second the presence flag.
func (b *builder) optionPlan(p *plan, t reflect.Type) error {
	elem, err := b.plan(t.Field(0).Type)
	if err != nil {
		return err
	}
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		present := v.Field(1).Bool()
		if err := w.WritePresence(present); err != nil || !present {
			return err
		}
		return elem.encode(w, v.Field(0))
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		present, err := d.r.ReadPresence()
		if err != nil {
			return err
		}
		v.SetZero()
		if !present {
			return nil
		}
		if err := elem.decode(d, v.Field(0)); err != nil {
			return err
		}
		v.Field(1).SetBool(true)
		return nil
	}
	p.isDefault = func(v reflect.Value) bool { return !v.Field(1).Bool() }
	return nil
}

// sharedPlan makes wire.Shared[T] transparent: it encodes the referenced
// T and decodes into a T no other Shared refers to.
func (b *builder) sharedPlan(p *plan, t reflect.Type) error {
	refType := reflect.TypeOf(reflect.Zero(t).Interface().(wire.SharedValue).SharedRef())
	elem, err := b.plan(refType.Elem())
	if err != nil {
		return err
	}
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		ref := reflect.ValueOf(v.Interface().(wire.SharedValue).SharedRef())
		if ref.IsNil() {
			return elem.encode(w, reflect.Zero(refType.Elem()))
		}
		return elem.encode(w, ref.Elem())
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		fresh := reflect.New(refType.Elem())
		if err := elem.decode(d, fresh.Elem()); err != nil {
			return err
		}
		adopted := v.Interface().(wire.SharedValue).AdoptRef(fresh.Interface())
		v.Set(reflect.ValueOf(adopted))
		return nil
	}
	return nil
}

// tuplePlan writes every field of a wire.Pair, wire.Triple or
// wire.Range in order, with no framing.
func (b *builder) tuplePlan(p *plan, t reflect.Type) error {
	members := make([]*plan, t.NumField())
	for i := range members {
		member, err := b.plan(t.Field(i).Type)
		if err != nil {
			return err
		}
		members[i] = member
	}
	p.encode = func(w *wire.Writer, v reflect.Value) error {
		for i, member := range members {
			if err := member.encode(w, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}
	p.decode = func(d *decodeState, v reflect.Value) error {
		for i, member := range members {
			if err := member.decode(d, v.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
