// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/fieldwire/lib/wire"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag  string
		want Modifiers
	}{
		{"", Modifiers{}},
		{"-", Modifiers{Skip: true}},
		{"7", Modifiers{ID: 7, HasID: true}},
		{"7,optional", Modifiers{ID: 7, HasID: true, Optional: true}},
		{",required", Modifiers{Required: true}},
		{",skip", Modifiers{Skip: true}},
		{"3,default=42", Modifiers{ID: 3, HasID: true, Default: "42", HasDefault: true}},
		{"default=a,b,c", Modifiers{Default: "a,b,c", HasDefault: true}},
		{"65535", Modifiers{ID: 65535, HasID: true}},
	}
	for _, test := range tests {
		got, err := ParseTag(test.tag)
		if err != nil {
			t.Errorf("ParseTag(%q): %v", test.tag, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseTag(%q) = %+v, want %+v", test.tag, got, test.want)
		}
	}

	for _, bad := range []string{"65536", "x", "1,sometimes", "1default=2"} {
		if _, err := ParseTag(bad); !errors.Is(err, ErrBadTag) {
			t.Errorf("ParseTag(%q): got %v, want ErrBadTag", bad, err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		optionalType bool
		modifiers    Modifiers
		want         Presence
	}{
		{"plain value", false, Modifiers{}, Required},
		{"optional type", true, Modifiers{}, Optional},
		{"marked optional", false, Modifiers{Optional: true}, Optional},
		{"declared default", false, Modifiers{HasDefault: true}, Optional},
		{"skip", false, Modifiers{Skip: true}, Skipped},
		{"skip beats optional type", true, Modifiers{Skip: true}, Skipped},
		{"explicit required on optional type", true, Modifiers{Required: true}, Required},
	}
	for _, test := range tests {
		got, err := Classify(test.optionalType, test.modifiers)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if got != test.want {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}

	conflicts := []Modifiers{
		{Required: true, Skip: true},
		{Required: true, Optional: true},
		{Required: true, HasDefault: true},
	}
	for _, modifiers := range conflicts {
		if _, err := Classify(false, modifiers); !errors.Is(err, ErrConflict) {
			t.Errorf("Classify(%+v): got %v, want ErrConflict", modifiers, err)
		}
	}
}

type ordinalRecord struct {
	First  uint64
	hidden int
	Second *string
	Third  string          `wire:"10"`
	Fourth wire.Option[int] `wire:",required"`
	Fifth  []byte          `wire:"-"`
	Sixth  int32           `wire:"11,default=-5"`
	Window time.Duration   `wire:"12,default=90s"`
	Letter wire.Char       `wire:"13,default=ż"`
	Limit  *uint16         `wire:"14,default=0x10"`
	Maybe  wire.Option[bool] `wire:"15,default=true"`
}

func TestRecordOf(t *testing.T) {
	record, err := RecordOf(reflect.TypeFor[ordinalRecord]())
	if err != nil {
		t.Fatalf("RecordOf: %v", err)
	}
	want := []struct {
		name     string
		id       uint16
		presence Presence
	}{
		{"First", 0, Required},
		{"Second", 1, Optional},
		{"Third", 10, Required},
		{"Fourth", 3, Required},
		{"Fifth", 4, Skipped},
		{"Sixth", 11, Optional},
		{"Window", 12, Optional},
		{"Letter", 13, Optional},
		{"Limit", 14, Optional},
		{"Maybe", 15, Optional},
	}
	if len(record.Fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(record.Fields), len(want))
	}
	for i, w := range want {
		field := record.Fields[i]
		if field.Name != w.name || field.ID != w.id || field.Presence != w.presence {
			t.Errorf("field %d = %s/%d/%v, want %s/%d/%v", i, field.Name, field.ID, field.Presence, w.name, w.id, w.presence)
		}
	}

	defaults := map[string]any{
		"Sixth":  int32(-5),
		"Window": 90 * time.Second,
		"Letter": wire.Char('ż'),
		"Maybe":  wire.Some(true),
	}
	for name, want := range defaults {
		field := findField(t, record, name)
		if got := field.Default.Interface(); got != want {
			t.Errorf("%s default = %v, want %v", name, got, want)
		}
	}
	limit := findField(t, record, "Limit").Default.Interface().(*uint16)
	if limit == nil || *limit != 16 {
		t.Errorf("Limit default = %v, want pointer to 16", limit)
	}

	if _, ok := record.ByID(10); !ok {
		t.Error("ByID(10) not found")
	}
	if _, ok := record.ByID(2); ok {
		t.Error("ByID(2) found a field, but the third exported field has explicit ID 10")
	}
}

func findField(t *testing.T, record *Record, name string) *Field {
	t.Helper()
	for i := range record.Fields {
		if record.Fields[i].Name == name {
			return &record.Fields[i]
		}
	}
	t.Fatalf("no field %s", name)
	return nil
}

type duplicateIDRecord struct {
	A uint8 `wire:"1"`
	B uint8 `wire:"1"`
}

type ordinalCollision struct {
	A uint8
	B uint8 `wire:"0"`
}

type badDefaultRecord struct {
	A uint8 `wire:"0,default=300"`
}

type conflictRecord struct {
	A uint8 `wire:"0,required,default=1"`
}

func TestRecordOfRejectsIllFormedSchemas(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want error
	}{
		{reflect.TypeFor[duplicateIDRecord](), ErrDuplicateID},
		{reflect.TypeFor[ordinalCollision](), ErrDuplicateID},
		{reflect.TypeFor[badDefaultRecord](), ErrBadDefault},
		{reflect.TypeFor[conflictRecord](), ErrConflict},
		{reflect.TypeFor[int](), ErrUnknownType},
	}
	for _, test := range tests {
		_, err := RecordOf(test.typ)
		if !errors.Is(err, test.want) {
			t.Errorf("RecordOf(%s): got %v, want %v", test.typ, err, test.want)
		}
		// The cached result fails the same way.
		_, again := RecordOf(test.typ)
		if again == nil || again.Error() != err.Error() {
			t.Errorf("RecordOf(%s) second call: got %v, want %v", test.typ, again, err)
		}
	}
}

type animal interface{ sound() string }

type quiet struct{}
type bark struct{ Volume uint8 }
type named string

func (quiet) sound() string { return "" }
func (bark) sound() string  { return "woof" }
func (named) sound() string { return "hello" }

type notAnimal struct{}

func TestBuildUnion(t *testing.T) {
	iface := reflect.TypeFor[animal]()
	union, err := buildUnion(iface, []CaseSpec{
		Case[quiet](AsDefault()),
		Case[bark](WithID(7)),
		Case[named](WithName("Named")),
	})
	if err != nil {
		t.Fatalf("buildUnion: %v", err)
	}
	quietCase, ok := union.ByID(0)
	if !ok || quietCase.HasPayload || quietCase.Name != "quiet" {
		t.Errorf("variant 0 = %+v", quietCase)
	}
	barkCase, ok := union.ByType(reflect.TypeFor[bark]())
	if !ok || barkCase.ID != 7 || !barkCase.HasPayload {
		t.Errorf("bark = %+v", barkCase)
	}
	namedCase, ok := union.ByID(2)
	if !ok || namedCase.Name != "Named" || !namedCase.HasPayload {
		t.Errorf("variant 2 = %+v", namedCase)
	}
	if def, ok := union.Default(); !ok || def.Type != reflect.TypeFor[quiet]() {
		t.Errorf("Default() = %+v, %v", def, ok)
	}

	failures := []struct {
		name  string
		cases []CaseSpec
		want  error
	}{
		{"duplicate variant id", []CaseSpec{Case[quiet](WithID(1)), Case[bark]()}, ErrDuplicateID},
		{"case listed twice", []CaseSpec{Case[quiet](), Case[quiet]()}, ErrDuplicateCase},
		{"two defaults", []CaseSpec{Case[quiet](AsDefault()), Case[bark](AsDefault())}, ErrDuplicateCase},
		{"not implemented", []CaseSpec{Case[notAnimal]()}, ErrNotImplemented},
		{"zero spec", []CaseSpec{{}}, ErrBadTag},
	}
	for _, failure := range failures {
		if _, err := buildUnion(iface, failure.cases); !errors.Is(err, failure.want) {
			t.Errorf("%s: got %v, want %v", failure.name, err, failure.want)
		}
	}

	if _, err := buildUnion(reflect.TypeFor[quiet](), nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("non-interface union: got %v, want ErrUnknownType", err)
	}
}

type registeredOnce interface{ once() }
type onlyCase struct{}

func (onlyCase) once() {}

func TestRegisterUnionTwice(t *testing.T) {
	if err := RegisterUnion[registeredOnce](Case[onlyCase]()); err != nil {
		t.Fatalf("first RegisterUnion: %v", err)
	}
	if err := RegisterUnion[registeredOnce](Case[onlyCase]()); !errors.Is(err, ErrDuplicateCase) {
		t.Errorf("second RegisterUnion: got %v, want ErrDuplicateCase", err)
	}
	if _, ok := UnionOf(reflect.TypeFor[registeredOnce]()); !ok {
		t.Error("UnionOf did not find the registered union")
	}
}

func TestParseType(t *testing.T) {
	roundtrips := []string{
		"u64",
		"list<string>",
		"map<string, list<optional<u8>>>",
		"tuple<u8, i16, Message>",
		"array<f32, 4>",
		"range<timestamp>",
		"set<uuid>",
		"pkg.Message",
	}
	for _, input := range roundtrips {
		parsed, err := ParseType(input)
		if err != nil {
			t.Errorf("ParseType(%q): %v", input, err)
			continue
		}
		if parsed.String() != input {
			t.Errorf("ParseType(%q).String() = %q", input, parsed.String())
		}
	}

	spaced, err := ParseType("map< string ,u8 >")
	if err != nil || spaced.String() != "map<string, u8>" {
		t.Errorf("spaced map: %v, %v", spaced, err)
	}

	for _, bad := range []string{"", "list", "list<>", "map<u8>", "list<u8, u8>", "array<u8>", "array<u8, x>", "array<u8, 2, 3>", "list<u8", "u8>", "9lives", "tuple<>"} {
		if _, err := ParseType(bad); !errors.Is(err, ErrBadTag) {
			t.Errorf("ParseType(%q): got %v, want ErrBadTag", bad, err)
		}
	}
}
