// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document is the serializable form of a set of record and union
// declarations, written by hand in YAML or JSONC or produced by
// Catalog.Document. IDs left out take the entry's ordinal position.
//
//	types:
//	  - name: Message
//	    fields:
//	      - {id: 0, name: sequence, type: u64}
//	      - {id: 1, name: note, type: optional<string>}
//	      - {id: 2, name: retries, type: u32, default: "3"}
//	  - name: Shape
//	    variants:
//	      - {id: 0, name: Empty, default: true}
//	      - {id: 1, name: Label, payload: string}
type Document struct {
	Types []TypeDef `yaml:"types" json:"types"`
}

// TypeDef declares one record (Fields) or union (Variants).
type TypeDef struct {
	Name     string       `yaml:"name" json:"name"`
	Fields   []FieldDef   `yaml:"fields,omitempty" json:"fields,omitempty"`
	Variants []VariantDef `yaml:"variants,omitempty" json:"variants,omitempty"`
}

// FieldDef declares one record field. The modifiers mean the same as
// the options of a `wire` struct tag.
type FieldDef struct {
	ID       *uint16 `yaml:"id,omitempty" json:"id,omitempty"`
	Name     string  `yaml:"name" json:"name"`
	Type     string  `yaml:"type" json:"type"`
	Required bool    `yaml:"required,omitempty" json:"required,omitempty"`
	Optional bool    `yaml:"optional,omitempty" json:"optional,omitempty"`
	Skip     bool    `yaml:"skip,omitempty" json:"skip,omitempty"`
	Default  *string `yaml:"default,omitempty" json:"default,omitempty"`
}

// VariantDef declares one union case. An empty Payload declares a case
// that carries no value.
type VariantDef struct {
	ID      *uint16 `yaml:"id,omitempty" json:"id,omitempty"`
	Name    string  `yaml:"name" json:"name"`
	Payload string  `yaml:"payload,omitempty" json:"payload,omitempty"`
	Default bool    `yaml:"default,omitempty" json:"default,omitempty"`
}

// ParseYAML parses a YAML schema document. Unknown keys are rejected
// so that misspelled modifiers do not silently change a schema.
func ParseYAML(data []byte) (*Document, error) {
	var document Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	return &document, nil
}

// ParseJSONC parses a JSON schema document. Comments and trailing
// commas are allowed.
func ParseJSONC(data []byte) (*Document, error) {
	var document Document
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing schema JSON: %w", err)
	}
	return &document, nil
}

// LoadDocument reads a schema document, choosing the parser by file
// extension: .json and .jsonc are JSONC, anything else YAML.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	var document *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		document, err = ParseJSONC(data)
	default:
		document, err = ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return document, nil
}

// LoadCatalog loads and compiles every document in paths as one
// catalog. Type names must be unique across all of them.
func LoadCatalog(paths ...string) (*Catalog, error) {
	documents := make([]*Document, 0, len(paths))
	for _, path := range paths {
		document, err := LoadDocument(path)
		if err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}
	return Compile(documents...)
}

// YAML renders the document in the format ParseYAML reads.
func (d *Document) YAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(d); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Catalog is a validated, resolved set of record and union
// definitions. It is immutable and safe for concurrent use.
type Catalog struct {
	defs  map[string]*Def
	names []string
}

// Def is one resolved record or union.
type Def struct {
	Name     string
	Union    bool
	Fields   []FieldDesc
	Variants []VariantDesc

	defaultVariant int
	byID           map[uint16]int
	byName         map[string]int
}

// FieldDesc is a resolved record field.
type FieldDesc struct {
	ID       uint16
	Name     string
	Type     Type
	Presence Presence

	// Literal and Default are the declared default as written and as
	// parsed by ParseLiteral. HasDefault distinguishes an empty
	// literal from none.
	Literal    string
	Default    any
	HasDefault bool
}

// VariantDesc is a resolved union case. Payload is nil for cases that
// carry no value.
type VariantDesc struct {
	ID      uint16
	Name    string
	Payload *Type
}

// Field returns the field with the given ID.
func (d *Def) Field(id uint16) (*FieldDesc, bool) {
	index, ok := d.byID[id]
	if !ok || d.Union {
		return nil, false
	}
	return &d.Fields[index], true
}

// Variant returns the case with the given ID.
func (d *Def) Variant(id uint16) (*VariantDesc, bool) {
	index, ok := d.byID[id]
	if !ok || !d.Union {
		return nil, false
	}
	return &d.Variants[index], true
}

// VariantByName returns the case with the given name.
func (d *Def) VariantByName(name string) (*VariantDesc, bool) {
	index, ok := d.byName[name]
	if !ok || !d.Union {
		return nil, false
	}
	return &d.Variants[index], true
}

// DefaultVariant returns the union's default case, if it declares one.
func (d *Def) DefaultVariant() (*VariantDesc, bool) {
	if !d.Union || d.defaultVariant < 0 {
		return nil, false
	}
	return &d.Variants[d.defaultVariant], true
}

// Lookup returns the definition with the given name.
func (c *Catalog) Lookup(name string) (*Def, bool) {
	def, ok := c.defs[name]
	return def, ok
}

// Names returns every type name in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Compile validates documents and resolves them into one catalog. It
// applies the same rules as record schemas built from Go types: IDs
// unique within each type, ordinal IDs where none is given, presence
// from Classify, defaults that parse as their field type. It also
// checks that every referenced type is defined.
func Compile(documents ...*Document) (*Catalog, error) {
	catalog := &Catalog{defs: make(map[string]*Def)}
	for _, document := range documents {
		for i := range document.Types {
			def, err := compileDef(&document.Types[i])
			if err != nil {
				return nil, err
			}
			if _, exists := catalog.defs[def.Name]; exists {
				return nil, &Error{Type: def.Name, Err: fmt.Errorf("%w: type defined twice", ErrDuplicateID)}
			}
			catalog.defs[def.Name] = def
			catalog.names = append(catalog.names, def.Name)
		}
	}
	for _, name := range catalog.names {
		if err := catalog.checkRefs(catalog.defs[name]); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func compileDef(typeDef *TypeDef) (*Def, error) {
	if typeDef.Name == "" {
		return nil, &Error{Type: "<unnamed>", Err: fmt.Errorf("%w: type without a name", ErrBadTag)}
	}
	if _, err := ParseType(typeDef.Name); err != nil || scalarKinds[Kind(typeDef.Name)] {
		return nil, &Error{Type: typeDef.Name, Err: fmt.Errorf("%w: %q is not a valid type name", ErrBadTag, typeDef.Name)}
	}
	if len(typeDef.Fields) > 0 && len(typeDef.Variants) > 0 {
		return nil, &Error{Type: typeDef.Name, Err: fmt.Errorf("%w: both fields and variants", ErrBadTag)}
	}
	def := &Def{
		Name:           typeDef.Name,
		Union:          len(typeDef.Variants) > 0,
		defaultVariant: -1,
		byID:           make(map[uint16]int),
		byName:         make(map[string]int),
	}
	if len(typeDef.Fields) > math.MaxUint16 || len(typeDef.Variants) > math.MaxUint16+1 {
		return nil, &Error{Type: def.Name, Err: ErrTooManyFields}
	}

	for position, entry := range typeDef.Fields {
		field, err := compileField(position, &entry)
		if err != nil {
			return nil, &Error{Type: def.Name, Member: entry.Name, Err: err}
		}
		if err := def.claim(field.ID, field.Name, len(def.Fields)); err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
	}

	for position, entry := range typeDef.Variants {
		variant := VariantDesc{ID: uint16(position), Name: entry.Name}
		if entry.ID != nil {
			variant.ID = *entry.ID
		}
		if entry.Name == "" {
			return nil, &Error{Type: def.Name, Err: fmt.Errorf("%w: variant %d has no name", ErrBadTag, position)}
		}
		if entry.Payload != "" {
			payload, err := ParseType(entry.Payload)
			if err != nil {
				return nil, &Error{Type: def.Name, Member: entry.Name, Err: err}
			}
			variant.Payload = &payload
		}
		if entry.Default {
			if def.defaultVariant >= 0 {
				return nil, &Error{Type: def.Name, Member: entry.Name, Err: fmt.Errorf("%w: more than one default case", ErrDuplicateCase)}
			}
			def.defaultVariant = len(def.Variants)
		}
		if err := def.claim(variant.ID, variant.Name, len(def.Variants)); err != nil {
			return nil, err
		}
		def.Variants = append(def.Variants, variant)
	}
	return def, nil
}

func compileField(position int, entry *FieldDef) (FieldDesc, error) {
	if entry.Name == "" {
		return FieldDesc{}, fmt.Errorf("%w: field %d has no name", ErrBadTag, position)
	}
	fieldType, err := ParseType(entry.Type)
	if err != nil {
		return FieldDesc{}, err
	}
	modifiers := Modifiers{
		Required: entry.Required,
		Optional: entry.Optional,
		Skip:     entry.Skip,
	}
	if entry.Default != nil {
		modifiers.Default = *entry.Default
		modifiers.HasDefault = true
	}
	presence, err := Classify(fieldType.IsOptional(), modifiers)
	if err != nil {
		return FieldDesc{}, err
	}
	field := FieldDesc{
		ID:         uint16(position),
		Name:       entry.Name,
		Type:       fieldType,
		Presence:   presence,
		Literal:    modifiers.Default,
		HasDefault: modifiers.HasDefault,
	}
	if entry.ID != nil {
		field.ID = *entry.ID
	}
	if modifiers.HasDefault {
		field.Default, err = ParseLiteral(fieldType, modifiers.Default)
		if err != nil {
			return FieldDesc{}, err
		}
	}
	return field, nil
}

func (d *Def) claim(id uint16, name string, index int) error {
	if other, exists := d.byID[id]; exists {
		otherName := ""
		if d.Union {
			otherName = d.Variants[other].Name
		} else {
			otherName = d.Fields[other].Name
		}
		return &Error{Type: d.Name, Member: name, Err: fmt.Errorf("%w: %d also used by %s", ErrDuplicateID, id, otherName)}
	}
	if _, exists := d.byName[name]; exists {
		return &Error{Type: d.Name, Member: name, Err: fmt.Errorf("%w: name declared twice", ErrDuplicateID)}
	}
	d.byID[id] = index
	d.byName[name] = index
	return nil
}

func (c *Catalog) checkRefs(def *Def) error {
	var missing string
	check := func(t Type) {
		if t.Kind == KindRef && missing == "" {
			if _, ok := c.defs[t.Name]; !ok {
				missing = t.Name
			}
		}
	}
	for _, field := range def.Fields {
		field.Type.Walk(check)
		if missing != "" {
			return &Error{Type: def.Name, Member: field.Name, Err: fmt.Errorf("%w: %s", ErrUnknownType, missing)}
		}
	}
	for _, variant := range def.Variants {
		if variant.Payload == nil {
			continue
		}
		variant.Payload.Walk(check)
		if missing != "" {
			return &Error{Type: def.Name, Member: variant.Name, Err: fmt.Errorf("%w: %s", ErrUnknownType, missing)}
		}
	}
	return nil
}

// Document returns the catalog in serializable form with every ID
// explicit.
func (c *Catalog) Document() *Document {
	document := &Document{}
	for _, name := range c.names {
		def := c.defs[name]
		typeDef := TypeDef{Name: def.Name}
		for _, field := range def.Fields {
			id := field.ID
			entry := FieldDef{ID: &id, Name: field.Name, Type: field.Type.String()}
			switch field.Presence {
			case Required:
				entry.Required = field.Type.IsOptional()
			case Skipped:
				entry.Skip = true
			case Optional:
				// Optional types and defaults already imply it.
				entry.Optional = !field.Type.IsOptional() && !field.HasDefault
			}
			if field.HasDefault {
				literal := field.Literal
				entry.Default = &literal
			}
			typeDef.Fields = append(typeDef.Fields, entry)
		}
		for i, variant := range def.Variants {
			id := variant.ID
			entry := VariantDef{ID: &id, Name: variant.Name, Default: i == def.defaultVariant}
			if variant.Payload != nil {
				entry.Payload = variant.Payload.String()
			}
			typeDef.Variants = append(typeDef.Variants, entry)
		}
		document.Types = append(document.Types, typeDef)
	}
	return document
}
