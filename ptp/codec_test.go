package ptp

import (
	"reflect"
	"testing"
)

func TestPrimitiveCodecU16RoundTrip(t *testing.T) {
	codec := NewPrimitiveCodec(KindU16, CodecU16)
	c := NewWriteCursor()
	if err := codec.Encode(c, uint16(0x1234)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := parseHex("3412")
	if err := diffIndex(c.Bytes(), want); err != nil {
		t.Fatalf("encode mismatch: %v", err)
	}

	v, err := codec.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.(uint16) != 0x1234 {
		t.Fatalf("Decode = %v, want 0x1234", v)
	}
}

func TestArrayCodecU16(t *testing.T) {
	inner := NewPrimitiveCodec(KindU16, CodecU16)
	arr := NewArrayCodec(inner, "U16Array")

	c := NewWriteCursor()
	if err := arr.Encode(c, []uint16{1, 2, 3}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := parseHex("03000000 0100 0200 0300")
	if err := diffIndex(c.Bytes(), want); err != nil {
		t.Fatalf("encode mismatch: %v", err)
	}

	v, err := arr.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := v.([]interface{})
	want2 := []interface{}{uint16(1), uint16(2), uint16(3)}
	if !reflect.DeepEqual(got, want2) {
		t.Fatalf("Decode = %v, want %v", got, want2)
	}
}

func TestArrayCodecDeclaresMoreThanRemains(t *testing.T) {
	inner := NewPrimitiveCodec(KindU16, CodecU16)
	arr := NewArrayCodec(inner, "U16Array")
	// count=100 but only 2 bytes follow.
	buf := parseHex("64000000 0100")
	if _, err := arr.Decode(NewCursor(buf)); err == nil {
		t.Fatal("expected MalformedArray error")
	} else if _, ok := err.(MalformedArray); !ok {
		t.Fatalf("expected MalformedArray, got %T: %v", err, err)
	}
}

func TestEnumCodecNameRoundTrip(t *testing.T) {
	base := NewPrimitiveCodec(KindU16, CodecU16)
	enum := NewEnumCodec(base, []EnumEntry{
		{Value: 1, Name: "On"},
		{Value: 2, Name: "Off"},
	}, "OnOff")

	c := NewWriteCursor()
	if err := enum.Encode(c, "Off"); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := enum.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != "Off" {
		t.Fatalf("Decode = %v, want Off", v)
	}
}

func TestEnumCodecUnknownValueDecodesRaw(t *testing.T) {
	base := NewPrimitiveCodec(KindU16, CodecU16)
	enum := NewEnumCodec(base, []EnumEntry{{Value: 1, Name: "On"}}, "OnOff")

	c := NewWriteCursor()
	c.WriteU16(99)
	v, err := enum.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	raw, ok := v.(Raw)
	if !ok || raw != 99 {
		t.Fatalf("Decode = %v (%T), want Raw(99)", v, v)
	}
}

func TestEnumCodecUnknownNameFailsEncode(t *testing.T) {
	base := NewPrimitiveCodec(KindU16, CodecU16)
	enum := NewEnumCodec(base, []EnumEntry{{Value: 1, Name: "On"}}, "OnOff")
	if err := enum.Encode(NewWriteCursor(), "Sideways"); err == nil {
		t.Fatal("expected error encoding unknown enum name")
	}
}

func TestEnumCodecAliasFirstDeclaredWins(t *testing.T) {
	base := NewPrimitiveCodec(KindU16, CodecU16)
	enum := NewEnumCodec(base, []EnumEntry{
		{Value: 5, Name: "First"},
		{Value: 5, Name: "Second"},
	}, "Aliased")

	c := NewWriteCursor()
	c.WriteU16(5)
	v, err := enum.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != "First" {
		t.Fatalf("Decode = %v, want First (first-declared alias)", v)
	}
}

func TestDatasetCodecOptionalFieldAbsentAtEnd(t *testing.T) {
	u32 := NewPrimitiveCodec(KindU32, CodecU32)
	ds := NewDatasetCodec([]DatasetField{
		{Name: "required", Codec: u32},
		{Name: "optional", Codec: u32, Optional: true},
	}, "TestDataset")

	// Only the required field is present in the wire data.
	buf := parseHex("2a000000")
	v, err := ds.Decode(NewCursor(buf))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	d := v.(*Dataset)
	got, present := d.Get("required")
	if !present || got.(uint32) != 42 {
		t.Fatalf("required = %v, present=%v", got, present)
	}
	if _, present := d.Get("optional"); present {
		t.Fatal("expected optional field absent")
	}
	if !d.Missing["optional"] {
		t.Fatal("expected Missing[\"optional\"] = true")
	}
}

func TestDatasetCodecRequiredFieldMissingFailsDecode(t *testing.T) {
	u32 := NewPrimitiveCodec(KindU32, CodecU32)
	ds := NewDatasetCodec([]DatasetField{
		{Name: "a", Codec: u32},
		{Name: "b", Codec: u32},
	}, "TestDataset")

	buf := parseHex("2a000000") // only one field's worth of bytes
	if _, err := ds.Decode(NewCursor(buf)); err == nil {
		t.Fatal("expected decode error when a required field runs out of bytes")
	}
}

func TestCustomCodecEncodeWithoutEncoderFails(t *testing.T) {
	cc := NewCustomCodec("NoEncoder", nil, func(c *Cursor) (interface{}, error) { return nil, nil })
	if err := cc.Encode(NewWriteCursor(), "x"); err == nil {
		t.Fatal("expected error encoding through a nil EncodeFunc")
	}
}
