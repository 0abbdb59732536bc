// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type fieldPlan struct {
	id       uint16
	name     string
	index    int
	presence schema.Presence
	def      reflect.Value // declared default, if any
	plan     *plan

	// planErr is set instead of plan for a skipped field whose type has
	// no wire form. It only matters if the field shows up on the wire.
	planErr error
}

type recordPlan struct {
	typ      reflect.Type
	fields   []fieldPlan
	byID     map[uint16]int
	required []int
}

func (b *builder) recordPlan(p *plan, t reflect.Type) error {
	record, err := schema.RecordOf(t)
	if err != nil {
		return err
	}
	rp := &recordPlan{
		typ:    t,
		fields: make([]fieldPlan, len(record.Fields)),
		byID:   make(map[uint16]int, len(record.Fields)),
	}
	for i, field := range record.Fields {
		fp := fieldPlan{
			id:       field.ID,
			name:     field.Name,
			index:    field.Index,
			presence: field.Presence,
			def:      field.Default,
		}
		fp.plan, err = b.plan(field.Type)
		if err != nil {
			if field.Presence != schema.Skipped {
				return &schema.Error{Type: t.String(), Member: field.Name, Err: err}
			}
			fp.planErr = err
		}
		rp.fields[i] = fp
		rp.byID[field.ID] = i
		if field.Presence == schema.Required {
			rp.required = append(rp.required, i)
		}
	}
	p.encode = rp.encode
	p.decode = rp.decode
	p.reset = rp.reset
	return nil
}

// written reports whether field f of record value v goes on the wire.
func (f *fieldPlan) written(v reflect.Value) bool {
	switch f.presence {
	case schema.Required:
		return true
	case schema.Skipped:
		return false
	}
	value := v.Field(f.index)
	if f.def.IsValid() {
		return !reflect.DeepEqual(value.Interface(), f.def.Interface())
	}
	if f.plan.isDefault == nil {
		return true
	}
	return !f.plan.isDefault(value)
}

func (rp *recordPlan) encode(w *wire.Writer, v reflect.Value) error {
	count := 0
	for i := range rp.fields {
		if rp.fields[i].written(v) {
			count++
		}
	}
	if err := w.WriteFieldCount(count); err != nil {
		return err
	}
	for i := range rp.fields {
		field := &rp.fields[i]
		if !field.written(v) {
			continue
		}
		if err := w.WriteFieldID(field.id); err != nil {
			return err
		}
		if err := field.plan.encode(w, v.Field(field.index)); err != nil {
			return wire.WithField(err, field.id)
		}
	}
	return nil
}

// reset zeroes v, then stores each field's declared default, or for
// fields without one the default of the field's own type (nested
// record defaults, a union's default case).
func (rp *recordPlan) reset(v reflect.Value) {
	v.SetZero()
	for i := range rp.fields {
		field := &rp.fields[i]
		target := v.Field(field.index)
		switch {
		case field.def.IsValid():
			target.Set(cloneDefault(field.def))
		case field.plan != nil && field.plan.reset != nil:
			field.plan.reset(target)
		}
	}
}

// cloneDefault copies a declared default so that decoded values never
// share a pointer with the schema or with each other.
func cloneDefault(def reflect.Value) reflect.Value {
	if def.Kind() != reflect.Pointer || def.IsNil() {
		return def
	}
	fresh := reflect.New(def.Type().Elem())
	fresh.Elem().Set(def.Elem())
	return fresh
}

func (rp *recordPlan) decode(d *decodeState, v reflect.Value) error {
	rp.reset(v)
	count, err := d.r.ReadFieldCount()
	if err != nil {
		return err
	}
	var seen []bool
	if len(rp.required) > 0 {
		seen = make([]bool, len(rp.fields))
	}
	for range count {
		id, err := d.r.ReadFieldID()
		if err != nil {
			return err
		}
		index, known := rp.byID[id]
		if !known {
			if d.unknown == RejectUnknown {
				return wire.WithField(wire.Parsingf("unknown field of %s", rp.typ), id)
			}
			// The value's bytes cannot be skipped without knowing its
			// type; what follows is read as the next field ID.
			d.logger.Warn("unknown field ignored", "type", rp.typ.String(), "field_id", id)
			continue
		}
		field := &rp.fields[index]
		target := v.Field(field.index)
		if field.presence == schema.Skipped {
			if field.plan == nil {
				return wire.WithField(wire.Parsingf("skipped field %s has no wire form: %v", field.name, field.planErr), id)
			}
			target = reflect.New(target.Type()).Elem()
		}
		if err := field.plan.decode(d, target); err != nil {
			return wire.WithField(err, id)
		}
		if seen != nil {
			seen[index] = true
		}
	}
	for _, index := range rp.required {
		if !seen[index] {
			field := &rp.fields[index]
			return wire.WithField(wire.Errorf(wire.KindMissingField, "%s.%s", rp.typ, field.name), field.id)
		}
	}
	return nil
}
