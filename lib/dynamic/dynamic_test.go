// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dynamic

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/codec"
	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/testutil"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type Source interface{ isSource() }

type Manual struct{}

type Remote struct {
	Host string
}

type Relay string

func (Manual) isSource() {}
func (Remote) isSource() {}
func (Relay) isSource()  {}

func init() {
	schema.MustRegisterUnion[Source](
		schema.Case[Manual](schema.AsDefault()),
		schema.Case[Remote](),
		schema.Case[Relay](),
	)
}

type Reading struct {
	Sensor  string
	Value   float32
	Taken   time.Time
	Unit    wire.Char           `wire:",default=C"`
	Samples []int16             `wire:",optional"`
	Tags    map[string]struct{} `wire:",optional"`
	Limits  map[uint32]string   `wire:",optional"`
	Window  wire.Range[uint64]
	Source  Source
	Device  uuid.UUID
	Address netip.Addr
	Note    *string
	Total   wire.Uint128
	Every   time.Duration `wire:",default=1m"`
	Raw     []byte        `wire:",optional"`
	Retries uint8         `wire:",default=3"`
}

func readingCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	catalog, err := schema.Describe(reflect.TypeFor[Reading]())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	return New(catalog, opts...)
}

func TestDecodeMatchesGoCodec(t *testing.T) {
	c := readingCodec(t)
	value := Reading{
		Sensor:  "t1",
		Value:   21.5,
		Taken:   time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC),
		Unit:    'F',
		Samples: []int16{-1, 2},
		Tags:    map[string]struct{}{"b": {}, "a": {}},
		Limits:  map[uint32]string{2: "hi", 1: "lo"},
		Window:  wire.Range[uint64]{Start: 10, End: 20},
		Source:  Remote{Host: "h"},
		Device:  uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Address: netip.MustParseAddr("10.0.0.1"),
		Total:   wire.Uint128{Hi: 1},
		Every:   time.Minute,
		Retries: 3,
	}
	data, err := codec.Marshal(value)
	if err != nil {
		t.Fatalf("codec.Marshal: %v", err)
	}

	decoded, err := c.Unmarshal("Reading", data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"Sensor":  "t1",
		"Value":   float32(21.5),
		"Taken":   "2025-03-01T12:00:00.0000005Z",
		"Unit":    "F",
		"Samples": []any{int64(-1), int64(2)},
		"Tags":    []any{"a", "b"},
		"Limits": []any{
			map[string]any{"key": uint64(1), "value": "lo"},
			map[string]any{"key": uint64(2), "value": "hi"},
		},
		"Window":  map[string]any{"start": uint64(10), "end": uint64(20)},
		"Source":  map[string]any{"variant": "Remote", "value": map[string]any{"Host": "h"}},
		"Device":  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"Address": "10.0.0.1",
		"Note":    nil,
		"Total":   "18446744073709551616",
		"Every":   "1m0s",
		"Raw":     []byte(nil),
		"Retries": uint64(3),
	}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("decoded:\n%#v\nwant:\n%#v", decoded, want)
	}

	reencoded, err := c.Marshal("Reading", decoded)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(reencoded, data) {
		t.Errorf("re-encoded %s\nGo codec   %s", testutil.DumpHex(reencoded), testutil.DumpHex(data))
	}
}

const readingJSON = `{
	"Sensor": "t2",
	"Value": 1.25,
	"Taken": "2024-01-01T00:00:00Z",
	"Samples": [1, -2],
	"Tags": ["z", "y"],
	"Limits": {"7": "seven"},
	"Window": {"start": 1, "end": 2},
	"Source": {"variant": "Relay", "value": "r"},
	"Device": "f47ac10b-58cc-4372-a567-0e02b2c3d479",
	"Address": "::1",
	"Total": "5",
	"Every": "90s",
	"Raw": "AQI="
}`

func TestEncodeJSONInput(t *testing.T) {
	c := readingCodec(t)
	decoder := json.NewDecoder(strings.NewReader(readingJSON))
	decoder.UseNumber()
	var input any
	if err := decoder.Decode(&input); err != nil {
		t.Fatalf("json: %v", err)
	}
	data, err := c.Marshal("Reading", input)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Reading
	if err := codec.Unmarshal(data, &got); err != nil {
		t.Fatalf("codec.Unmarshal: %v", err)
	}
	want := Reading{
		Sensor:  "t2",
		Value:   1.25,
		Taken:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Unit:    'C',
		Samples: []int16{1, -2},
		Tags:    map[string]struct{}{"y": {}, "z": {}},
		Limits:  map[uint32]string{7: "seven"},
		Window:  wire.Range[uint64]{Start: 1, End: 2},
		Source:  Relay("r"),
		Device:  uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
		Address: netip.MustParseAddr("::1"),
		Total:   wire.Uint128From64(5),
		Every:   90 * time.Second,
		Raw:     []byte{1, 2},
		Retries: 3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got  %+v\nwant %+v", got, want)
	}

	// The same value through the Go codec gives the same bytes.
	direct, err := codec.Marshal(want)
	if err != nil {
		t.Fatalf("codec.Marshal: %v", err)
	}
	if !bytes.Equal(direct, data) {
		t.Errorf("dynamic %s\nGo codec %s", testutil.DumpHex(data), testutil.DumpHex(direct))
	}
}

const settingsYAML = `
types:
  - name: Settings
    fields:
      - {name: name, type: string, optional: true}
      - {name: level, type: u8, default: "2"}
      - {name: tags, type: list<string>, optional: true}
      - {name: limit, type: optional<u32>, default: "10"}
      - {name: mode, type: Mode, optional: true}
      - {name: cache, type: bytes, skip: true}
  - name: Mode
    variants:
      - {name: Fast, default: true}
      - {name: Careful, payload: u16}
  - name: Envelope
    fields:
      - {id: 4, name: settings, type: Settings}
      - {id: 9, name: serial, type: u64}
`

func settingsCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	document, err := schema.ParseYAML([]byte(settingsYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	catalog, err := schema.Compile(document)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return New(catalog, opts...)
}

func TestDefaultsOmittedAndFilled(t *testing.T) {
	c := settingsCodec(t)
	input := map[string]any{
		"name":  "",
		"level": uint64(2),
		"tags":  []any{},
		"limit": json.Number("10"),
		"mode":  map[string]any{"variant": "Fast"},
	}
	data, err := c.Marshal("Settings", input)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// The union field is never left out; everything else is at its
	// default.
	if want := testutil.Hex(t, "0100 0400 0000"); !bytes.Equal(data, want) {
		t.Errorf("got %s, want %s", testutil.DumpHex(data), testutil.DumpHex(want))
	}

	empty, err := c.Unmarshal("Settings", []byte{0, 0})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"name":  "",
		"level": uint64(2),
		"tags":  []any{},
		"limit": uint64(10),
		"mode":  map[string]any{"variant": "Fast"},
	}
	if !reflect.DeepEqual(empty, want) {
		t.Errorf("decoded %#v, want %#v", empty, want)
	}

	// An absent optional<u32> differs from its declared default.
	data, err = c.Marshal("Settings", map[string]any{"limit": nil, "mode": map[string]any{"variant": 1, "value": 7}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := testutil.Hex(t, "0200 0300 00 0400 0100 0700"); !bytes.Equal(data, want) {
		t.Errorf("got %s, want %s", testutil.DumpHex(data), testutil.DumpHex(want))
	}
}

func TestMissingRequiredField(t *testing.T) {
	c := settingsCodec(t)

	_, err := c.Marshal("Envelope", map[string]any{"settings": map[string]any{}})
	if !errors.Is(err, wire.ErrMissingField) {
		t.Fatalf("Marshal: got %v, want ErrMissingField", err)
	}
	if id, _ := wire.AsError(err).Field(); id != 9 {
		t.Errorf("Marshal: Field() = %d, want 9", id)
	}

	// Envelope{settings: {level: 5}} with serial left off the wire.
	_, err = c.Unmarshal("Envelope", testutil.Hex(t, "0100 0400 0100 0100 05"))
	if !errors.Is(err, wire.ErrMissingField) {
		t.Fatalf("Unmarshal: got %v, want ErrMissingField", err)
	}
	if path := wire.AsError(err).Path; len(path) != 1 || path[0] != 9 {
		t.Errorf("Unmarshal: Path = %v, want [9]", path)
	}
}

func TestNestedErrorPath(t *testing.T) {
	c := settingsCodec(t)
	input := map[string]any{
		"serial":   uint64(1),
		"settings": map[string]any{"mode": map[string]any{"variant": "Careful", "value": "seven"}},
	}
	_, err := c.Marshal("Envelope", input)
	if path := wire.AsError(err).Path; wire.FormatPath(path) != "4.4" {
		t.Errorf("Path = %v (%v), want 4.4", path, err)
	}
}

func TestInputErrors(t *testing.T) {
	c := settingsCodec(t)
	tests := []struct {
		name  string
		input any
		kind  wire.Kind
	}{
		{"unknown key", map[string]any{"colour": "red"}, wire.KindParsing},
		{"wrong type", map[string]any{"name": 5}, wire.KindParsing},
		{"out of range", map[string]any{"level": 256}, wire.KindParsing},
		{"not a record", []any{}, wire.KindParsing},
		{"unknown variant", map[string]any{"mode": map[string]any{"variant": "Reckless"}}, wire.KindUnknownVariant},
		{"unknown variant id", map[string]any{"mode": map[string]any{"variant": 8}}, wire.KindUnknownVariant},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.Marshal("Settings", test.input)
			if got := wire.KindOf(err); got != test.kind {
				t.Errorf("got %v (%v), want %v", got, err, test.kind)
			}
		})
	}
}

func TestUnknownFields(t *testing.T) {
	// Settings with a trailing field 12 this schema does not declare.
	data := testutil.Hex(t, "0200 0100 07 0c00 01")

	var logged bytes.Buffer
	lenient := settingsCodec(t, WithLogger(slog.New(slog.NewTextHandler(&logged, nil))))
	decoded, err := lenient.Unmarshal("Settings", data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if level := decoded.(map[string]any)["level"]; level != uint64(7) {
		t.Errorf("level = %v, want 7", level)
	}
	if !strings.Contains(logged.String(), "field_id=12") {
		t.Errorf("warning not logged: %q", logged.String())
	}

	strict := settingsCodec(t, WithUnknownFields(codec.RejectUnknown))
	_, err = strict.Unmarshal("Settings", data)
	if id, _ := wire.AsError(err).Field(); wire.KindOf(err) != wire.KindParsing || id != 12 {
		t.Errorf("got %v, want a parsing error at field 12", err)
	}
}

func TestSkippedFieldDiscarded(t *testing.T) {
	c := settingsCodec(t)
	decoded, err := c.Unmarshal("Settings", testutil.Hex(t, "0100 0500 02000000 abcd"))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded.(map[string]any)["cache"]; ok {
		t.Errorf("skipped field decoded into %v", decoded)
	}
}

func TestBatch(t *testing.T) {
	c := settingsCodec(t)
	typ, err := c.Resolve("Mode")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var buf bytes.Buffer
	encoder := c.NewEncoder(&buf, typ)
	values := []any{
		map[string]any{"variant": "Fast"},
		map[string]any{"variant": "Careful", "value": uint64(3)},
	}
	for _, v := range values {
		if err := encoder.Encode(v); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if encoder.Written() != 6 {
		t.Errorf("Written() = %d, want 6", encoder.Written())
	}

	decoder := c.NewDecoder(&buf, typ)
	for i, want := range values {
		got, err := decoder.Decode()
		if err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("value %d = %#v, want %#v", i, got, want)
		}
	}
	if _, err := decoder.Decode(); err != io.EOF {
		t.Errorf("Decode past the end: got %v, want io.EOF", err)
	}
}

func TestTypeExpressions(t *testing.T) {
	c := settingsCodec(t)
	data, err := c.Marshal("map<u16, tuple<bool, char>>", map[string]any{"2": []any{true, "x"}, "1": []any{false, "y"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := testutil.Hex(t, "02000000 0100 00 79000000 0200 01 78000000")
	if !bytes.Equal(data, want) {
		t.Errorf("got %s, want %s", testutil.DumpHex(data), testutil.DumpHex(want))
	}

	if _, err := c.Resolve("list<Missing>"); !errors.Is(err, schema.ErrUnknownType) {
		t.Errorf("Resolve(list<Missing>): got %v, want ErrUnknownType", err)
	}
	if _, err := c.Unmarshal("Settings", nil); !errors.Is(err, io.EOF) {
		t.Errorf("Unmarshal of nothing: got %v, want io.EOF", err)
	}
	if _, err := c.Unmarshal("Settings", []byte{1}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Unmarshal of one byte: got %v, want io.ErrUnexpectedEOF", err)
	}
}
