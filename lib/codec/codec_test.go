// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"math/big"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fieldwire/lib/schema"
	"github.com/bureau-foundation/fieldwire/lib/testutil"
	"github.com/bureau-foundation/fieldwire/lib/wire"
)

type enumOne interface{ isEnumOne() }

type one struct{}
type two struct{}
type three string
type four struct{ Inner enumTwo }

func (one) isEnumOne()   {}
func (two) isEnumOne()   {}
func (three) isEnumOne() {}
func (four) isEnumOne()  {}

type enumTwo interface{ isEnumTwo() }

type first struct{}
type second struct{}

func (first) isEnumTwo()  {}
func (second) isEnumTwo() {}

func init() {
	schema.MustRegisterUnion[enumOne](
		schema.Case[one](schema.AsDefault()),
		schema.Case[two](),
		schema.Case[three](),
		schema.Case[four](),
	)
	schema.MustRegisterUnion[enumTwo](
		schema.Case[first](),
		schema.Case[second](),
	)
}

type structTwo struct {
	ID   uuid.UUID
	Name string
	Kind wire.Option[enumOne]
}

// everyKind holds one field of each kind the codec supports.
type everyKind struct {
	U8      uint8
	U16     uint16
	U32     uint32
	U64     uint64
	Uint    uint
	U128    wire.Uint128
	I8      int8
	I16     int16
	I32     int32
	I64     int64
	Int     int
	I128    wire.Int128
	F32     float32
	F64     float64
	Unit    struct{}
	Pair    wire.Pair[uint64, string]
	Triple  [3]uint64
	Flag    bool
	Letter  wire.Char
	Text    string
	Wait    time.Duration
	When    time.Time
	V4      netip.Addr
	V6      netip.Addr
	Span    wire.Range[uint64]
	List    []uint64
	Shared  wire.Shared[string]
	Note    wire.Option[string]
	Words   []string
	Counts  map[string]uint64
	Ordered map[uint64]string
	Tags    map[string]struct{}
	IDs     map[uint64]struct{}
	When2   *time.Time
	Nested  structTwo
	Choice  enumOne
	Network netip.Prefix
	Key     uuid.UUID
	Skipped bool `wire:"-"`
	Ratio   *big.Rat
	Raw     []byte
	Grid    [2][2]int16
	Digest  [4]byte
	Triples wire.Triple[int8, bool, string]
	Later   *structTwo
}

func sampleEveryKind() everyKind {
	when := time.Date(2024, 2, 29, 12, 30, 45, 123456789, time.UTC)
	return everyKind{
		U8: 1, U16: 1, U32: 2, U64: 3, Uint: 4,
		U128:    wire.Uint128{Hi: 1, Lo: 5},
		I8:      1,
		I16:     -1,
		I32:     -2,
		I64:     -3,
		Int:     23,
		I128:    wire.Int128From64(-77),
		F32:     1.1,
		F64:     -3.14,
		Pair:    wire.Pair[uint64, string]{First: 1, Second: "1"},
		Triple:  [3]uint64{1, 2, 3},
		Flag:    true,
		Letter:  'a',
		Text:    "test",
		Wait:    1500 * time.Millisecond,
		When:    when,
		V4:      netip.MustParseAddr("192.168.1.2"),
		V6:      netip.MustParseAddr("2001:db8:85a3::8a2e:370:7334"),
		Span:    wire.Range[uint64]{Start: 0, End: 1},
		List:    []uint64{1, 2, 3},
		Shared:  wire.NewShared("test_shared"),
		Note:    wire.Some("str"),
		Words:   []string{"a", "b", "c"},
		Counts:  map[string]uint64{"key1": 1, "key2": 2},
		Ordered: map[uint64]string{1: "key1", 2: "key2"},
		Tags:    map[string]struct{}{"key1": {}, "key2": {}},
		IDs:     map[uint64]struct{}{1: {}},
		When2:   &when,
		Nested: structTwo{
			ID:   uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			Name: "nested",
			Kind: wire.Some[enumOne](four{Inner: second{}}),
		},
		Choice:  three("test_enum"),
		Network: netip.MustParsePrefix("192.168.1.0/24"),
		Key:     uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
		Skipped: true,
		Ratio:   big.NewRat(157, 50),
		Raw:     []byte{0, 1, 2},
		Grid:    [2][2]int16{{1, -1}, {2, -2}},
		Digest:  [4]byte{0xde, 0xad, 0xbe, 0xef},
		Triples: wire.Triple[int8, bool, string]{First: -8, Second: true, Third: "t"},
	}
}

func TestRoundtripEveryKind(t *testing.T) {
	original := sampleEveryKind()
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded everyKind
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Skipped {
		t.Error("skipped field was written")
	}
	if decoded.Ratio == nil || decoded.Ratio.Cmp(original.Ratio) != 0 {
		t.Errorf("Ratio = %v, want %v", decoded.Ratio, original.Ratio)
	}
	if decoded.Shared.Same(original.Shared) {
		t.Error("decoded Shared refers to the original value")
	}
	if *decoded.When2 != *original.When2 || decoded.When2 == original.When2 {
		t.Errorf("When2 = %v (%p), want an equal fresh copy of %v", decoded.When2, decoded.When2, original.When2)
	}

	expected := original
	expected.Skipped = false
	expected.Ratio, decoded.Ratio = nil, nil
	if !reflect.DeepEqual(decoded, expected) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", decoded, expected)
	}
}

// optionalOnly has no required fields, so it can be rebuilt entirely
// from defaults.
type optionalOnly struct {
	Count   uint32            `wire:",optional"`
	Name    string            `wire:",optional"`
	Retries uint32            `wire:",default=3"`
	Window  time.Duration     `wire:",default=90s"`
	Tags    []string          `wire:",optional"`
	Letter  wire.Char         `wire:",default=x"`
	Cache   map[string]int    `wire:"-"`
	Limit   *uint16           `wire:",default=16"`
	Kind    enumOne           `wire:",optional"`
	Ratio   wire.Option[bool] `wire:",default=true"`
	Note    *string
	Maybe   wire.Option[int64]
}

func TestAllDefaultRecordIsEmpty(t *testing.T) {
	defaults, err := New[optionalOnly]()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if defaults.Retries != 3 || defaults.Window != 90*time.Second || defaults.Letter != 'x' {
		t.Errorf("New() = %+v, declared defaults not applied", defaults)
	}
	if defaults.Limit == nil || *defaults.Limit != 16 {
		t.Errorf("New().Limit = %v, want pointer to 16", defaults.Limit)
	}
	if _, ok := defaults.Kind.(one); !ok {
		t.Errorf("New().Kind = %#v, want the default case one{}", defaults.Kind)
	}

	// The union field is never omitted: it carries only its tag.
	data, err := Marshal(defaults)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := testutil.Hex(t, "0100 0800 0000")
	if !bytes.Equal(data, want) {
		t.Errorf("all-default record = %x, want %x", data, want)
	}

	var decoded optionalOnly
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, defaults) {
		t.Errorf("decoded %+v, want %+v", decoded, defaults)
	}

	other, _ := New[optionalOnly]()
	if other.Limit == defaults.Limit {
		t.Error("two New values share the Limit default pointer")
	}
}

type plainDefaults struct {
	Count uint32 `wire:",optional"`
	Name  string `wire:",optional"`
	Note  *string
	Maybe wire.Option[int64]
	Flags map[string]bool `wire:",optional"`
	Skip  []byte          `wire:"-"`
}

func TestAllDefaultRecordFieldCountZero(t *testing.T) {
	data, err := Marshal(plainDefaults{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(data, []byte{0, 0}) {
		t.Errorf("got %x, want 0000", data)
	}
	var decoded plainDefaults
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fresh, _ := New[plainDefaults]()
	if !reflect.DeepEqual(decoded, fresh) {
		t.Errorf("decoded %+v, want %+v", decoded, fresh)
	}
}

func TestZeroValuesDifferingFromDeclaredDefaultsAreWritten(t *testing.T) {
	var value optionalOnly
	value.Kind = one{}
	data, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Retries, Window, Letter, Limit (absent, unlike its default),
	// Kind and Ratio (absent, unlike its default).
	if count := int(data[0]) | int(data[1])<<8; count != 6 {
		t.Errorf("field count = %d, want 6 (%x)", count, data)
	}
	var decoded optionalOnly
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, value) {
		t.Errorf("decoded %+v, want %+v", decoded, value)
	}
}

type messageV1 struct {
	F0 uint64              `wire:"0"`
	F1 wire.Option[uint64] `wire:"1"`
}

type messageV2Required struct {
	F0 uint64              `wire:"0"`
	F1 wire.Option[uint64] `wire:"1"`
	F2 uint64              `wire:"2"`
}

type messageV2Optional struct {
	F0 uint64              `wire:"0"`
	F1 wire.Option[uint64] `wire:"1"`
	F2 uint64              `wire:"2,optional"`
}

type messageV0 struct {
	F0 uint64 `wire:"0"`
}

func TestNarrowing(t *testing.T) {
	// The optional field holds its default, so the wider writer never
	// writes it and the narrower reader never sees its ID.
	data, err := Marshal(messageV1{F0: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := testutil.Hex(t, "0100 0000 0700000000000000")
	if !bytes.Equal(data, want) {
		t.Errorf("got %x, want %x", data, want)
	}
	var narrow messageV0
	if err := Unmarshal(data, &narrow, WithUnknownFields(RejectUnknown)); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if narrow.F0 != 7 {
		t.Errorf("F0 = %d, want 7", narrow.F0)
	}
}

func TestWideningWithRequiredField(t *testing.T) {
	data, err := Marshal(messageV1{F0: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var wide messageV2Required
	err = Unmarshal(data, &wide)
	if !errors.Is(err, wire.ErrMissingField) {
		t.Fatalf("got %v, want ErrMissingField", err)
	}
	if id, ok := wire.AsError(err).Field(); !ok || id != 2 {
		t.Errorf("Field() = %d, %v, want 2", id, ok)
	}
	if wire.KindOf(err) != wire.KindMissingField {
		t.Errorf("KindOf = %v", wire.KindOf(err))
	}
}

func TestWideningWithOptionalField(t *testing.T) {
	data, err := Marshal(messageV1{F0: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var wide messageV2Optional
	if err := Unmarshal(data, &wide); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if wide != (messageV2Optional{F0: 1}) {
		t.Errorf("got %+v", wide)
	}
}

func TestUnionStringPayloadBytes(t *testing.T) {
	var value enumOne = three("hi")
	data, err := Marshal(&value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := testutil.Hex(t, "0200 02000000 6869")
	if !bytes.Equal(data, want) {
		t.Errorf("got %x, want %x", data, want)
	}
	var decoded enumOne
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != three("hi") {
		t.Errorf("decoded %#v", decoded)
	}
}

type duplicateFields struct {
	A uint8 `wire:"3"`
	B uint8 `wire:"3"`
}

type holdsDuplicate struct {
	Inner []duplicateFields
}

type dupVariants interface{ isDup() }

type dupA struct{}
type dupB struct{ N uint8 }

func (dupA) isDup() {}
func (dupB) isDup() {}

func TestDuplicateIDsRejectedBeforeAnyIO(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	for _, value := range []any{duplicateFields{}, holdsDuplicate{}} {
		if err := encoder.Encode(value); !errors.Is(err, schema.ErrDuplicateID) {
			t.Errorf("Encode(%T): got %v, want ErrDuplicateID", value, err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("encoder wrote %x", buf.Bytes())
	}

	reader := bytes.NewReader([]byte{0, 0, 0, 0})
	decoder := NewDecoder(reader)
	var target duplicateFields
	if err := decoder.Decode(&target); !errors.Is(err, schema.ErrDuplicateID) {
		t.Errorf("Decode: got %v, want ErrDuplicateID", err)
	}
	if decoder.Consumed() != 0 || reader.Len() != 4 {
		t.Errorf("decoder consumed input before failing")
	}
	if err := Check[holdsDuplicate](); !errors.Is(err, schema.ErrDuplicateID) {
		t.Errorf("Check: got %v, want ErrDuplicateID", err)
	}

	err := schema.RegisterUnion[dupVariants](
		schema.Case[dupA](schema.WithID(1)),
		schema.Case[dupB](schema.WithID(1)),
	)
	if !errors.Is(err, schema.ErrDuplicateID) {
		t.Errorf("RegisterUnion: got %v, want ErrDuplicateID", err)
	}
	var value dupVariants = dupA{}
	if _, err := Marshal(&value); !errors.Is(err, schema.ErrNotRegistered) {
		t.Errorf("Marshal of the rejected union: got %v, want ErrNotRegistered", err)
	}
}

func TestBatchFraming(t *testing.T) {
	values := []messageV2Optional{
		{F0: 1, F1: wire.Some[uint64](10)},
		{F0: 2, F2: 20},
	}
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	for _, value := range values {
		if err := encoder.Encode(value); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if encoder.Written() != int64(buf.Len()) {
		t.Errorf("Written() = %d, buffer holds %d", encoder.Written(), buf.Len())
	}

	decoder := NewDecoder(&buf)
	for i, want := range values {
		var got messageV2Optional
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("value %d = %+v, want %+v", i, got, want)
		}
	}
	var extra messageV2Optional
	if err := decoder.Decode(&extra); err != io.EOF {
		t.Errorf("Decode past the end: got %v, want io.EOF", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	data, err := Marshal(messageV2Optional{F0: 1, F2: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for cut := 1; cut < len(data); cut++ {
		var decoded messageV2Optional
		err := Unmarshal(data[:cut], &decoded)
		if !errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			t.Errorf("cut at %d: got %v, want io.ErrUnexpectedEOF only", cut, err)
		}
		if !wire.IsEOF(err) {
			t.Errorf("cut at %d: IsEOF false", cut)
		}
	}

	// Cut inside field 2's value: the path names the field.
	var decoded messageV2Optional
	err = Unmarshal(data[:len(data)-3], &decoded)
	if id, ok := wire.AsError(err).Field(); !ok || id != 2 {
		t.Errorf("Field() = %d, %v, want 2 (%v)", id, ok, err)
	}

	if err := Unmarshal(nil, &decoded); !errors.Is(err, io.EOF) {
		t.Errorf("empty input: got %v, want io.EOF", err)
	}
}

func TestDecodeTarget(t *testing.T) {
	var value messageV0
	if err := Unmarshal([]byte{0, 0}, value); err == nil {
		t.Error("Unmarshal into a non-pointer succeeded")
	}
	if _, err := Marshal(nil); err == nil {
		t.Error("Marshal(nil) succeeded")
	}
	var nilPointer *messageV0
	if _, err := Marshal(nilPointer); err == nil {
		t.Error("Marshal of a nil pointer succeeded")
	}
	if err := Check[chan int](); !errors.Is(err, schema.ErrUnknownType) {
		t.Errorf("Check[chan int]: got %v, want ErrUnknownType", err)
	}
}

func TestParseUnknownFields(t *testing.T) {
	for _, policy := range []UnknownFields{IgnoreUnknown, RejectUnknown} {
		parsed, err := ParseUnknownFields(policy.String())
		if err != nil || parsed != policy {
			t.Errorf("ParseUnknownFields(%q) = %v, %v", policy.String(), parsed, err)
		}
	}
	if _, err := ParseUnknownFields("skip"); err == nil {
		t.Error("ParseUnknownFields accepted skip")
	}
}

func BenchmarkMarshalEveryKind(b *testing.B) {
	value := sampleEveryKind()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Marshal(value); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshalEveryKind(b *testing.B) {
	data, err := Marshal(sampleEveryKind())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		var decoded everyKind
		if err := Unmarshal(data, &decoded); err != nil {
			b.Fatal(err)
		}
	}
}
