// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type casePlan struct {
	variant schema.Variant
	// payload is nil for cases without one. For pointer case types it
	// is the plan of the pointed-to type: the pointer itself is not
	// written.
	payload *plan
}

type unionPlan struct {
	iface  reflect.Type
	cases  []casePlan
	byID   map[uint16]int
	byType map[reflect.Type]int

	defaultCase int // -1 when the union has no default case
}

func (b *builder) unionPlan(p *plan, t reflect.Type) error {
	union, ok := schema.UnionOf(t)
	if !ok {
		return &schema.Error{Type: t.String(), Err: schema.ErrNotRegistered}
	}
	up := &unionPlan{
		iface:       t,
		cases:       make([]casePlan, len(union.Variants)),
		byID:        make(map[uint16]int, len(union.Variants)),
		byType:      make(map[reflect.Type]int, len(union.Variants)),
		defaultCase: -1,
	}
	for i, variant := range union.Variants {
		up.cases[i].variant = variant
		up.byID[variant.ID] = i
		up.byType[variant.Type] = i
		if !variant.HasPayload {
			continue
		}
		payloadType := variant.Type
		if payloadType.Kind() == reflect.Pointer {
			payloadType = payloadType.Elem()
		}
		payload, err := b.plan(payloadType)
		if err != nil {
			return &schema.Error{Type: t.String(), Member: variant.Name, Err: err}
		}
		up.cases[i].payload = payload
	}
	if def, ok := union.Default(); ok {
		up.defaultCase = up.byID[def.ID]
	}
	p.encode = up.encode
	p.decode = up.decode
	p.reset = up.reset
	// Only an explicitly optional field can be left out, and only when
	// it holds no case at all.
	p.isDefault = func(v reflect.Value) bool { return v.IsNil() }
	return nil
}

func (up *unionPlan) encode(w *wire.Writer, v reflect.Value) error {
	if v.IsNil() {
		return wire.Errorf(wire.KindUnknownVariant, "nil %s has no variant", up.iface)
	}
	concrete := v.Elem()
	index, ok := up.byType[concrete.Type()]
	if !ok {
		return wire.Errorf(wire.KindUnknownVariant, "%s is not a registered case of %s", concrete.Type(), up.iface)
	}
	c := &up.cases[index]
	if err := w.WriteVariant(c.variant.ID); err != nil {
		return err
	}
	if c.payload == nil {
		return nil
	}
	if concrete.Kind() == reflect.Pointer {
		if concrete.IsNil() {
			return wire.Errorf(wire.KindUnknownVariant, "nil %s case of %s", concrete.Type(), up.iface)
		}
		concrete = concrete.Elem()
	}
	return c.payload.encode(w, concrete)
}

func (up *unionPlan) decode(d *decodeState, v reflect.Value) error {
	id, err := d.r.ReadVariant()
	if err != nil {
		return err
	}
	index, ok := up.byID[id]
	if !ok {
		return wire.Errorf(wire.KindUnknownVariant, "variant %d of %s", id, up.iface)
	}
	value, err := up.cases[index].decode(d)
	if err != nil {
		return err
	}
	v.Set(value)
	return nil
}

func (c *casePlan) decode(d *decodeState) (reflect.Value, error) {
	caseType := c.variant.Type
	if caseType.Kind() == reflect.Pointer {
		fresh := reflect.New(caseType.Elem())
		if c.payload != nil {
			if err := c.payload.decode(d, fresh.Elem()); err != nil {
				return reflect.Value{}, err
			}
		}
		return fresh, nil
	}
	value := reflect.New(caseType).Elem()
	if c.payload != nil {
		if err := c.payload.decode(d, value); err != nil {
			return reflect.Value{}, err
		}
	}
	return value, nil
}

// reset stores the zero value of the default case, or nil. Nested
// defaults of the case are not applied: a recursive union would never
// finish materializing.
func (up *unionPlan) reset(v reflect.Value) {
	if up.defaultCase < 0 {
		v.SetZero()
		return
	}
	caseType := up.cases[up.defaultCase].variant.Type
	if caseType.Kind() == reflect.Pointer {
		v.Set(reflect.New(caseType.Elem()))
		return
	}
	v.Set(reflect.Zero(caseType))
}
