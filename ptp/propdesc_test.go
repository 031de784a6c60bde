package ptp

import (
	"context"
	"testing"
)

// buildPropDescRange encodes a DevicePropDesc body in Range form:
// property_code, data_type, get_set, default, current, form_flag, then
// min/max/step at data_type's width, grounded on the teacher's
// TestVariantDPD (mtp/encoding_test.go).
func buildPropDescRange() []byte {
	c := NewWriteCursor()
	c.WriteU16(PropBatteryLevel)
	c.WriteU16(dtcUint16)
	c.WriteU8(1) // get_set
	c.WriteU16(3) // factory default
	c.WriteU16(5) // current
	c.WriteU8(propDescFormFlagRange)
	c.WriteU16(1)  // min
	c.WriteU16(11) // max
	c.WriteU16(2)  // step
	return c.Bytes()
}

func TestPropertyDescriptorCodecDecodesRangeForm(t *testing.T) {
	codec := NewPropertyDescriptorCodec()
	v, err := codec.Decode(NewCursor(buildPropDescRange()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	desc, ok := v.(*PropertyDescriptor)
	if !ok {
		t.Fatalf("Decode returned %T, want *PropertyDescriptor", v)
	}
	if desc.Form != FormRange {
		t.Fatalf("Form = %v, want FormRange", desc.Form)
	}
	if desc.Default.(uint16) != 3 || desc.Current.(uint16) != 5 {
		t.Fatalf("Default/Current = %v/%v, want 3/5", desc.Default, desc.Current)
	}
	if desc.Min.(uint16) != 1 || desc.Max.(uint16) != 11 || desc.Step.(uint16) != 2 {
		t.Fatalf("Min/Max/Step = %v/%v/%v, want 1/11/2", desc.Min, desc.Max, desc.Step)
	}
}

func TestPropertyDescriptorCodecDecodesEnumForm(t *testing.T) {
	c := NewWriteCursor()
	c.WriteU16(PropWhiteBalance)
	c.WriteU16(dtcUint16)
	c.WriteU8(1)
	c.WriteU16(1)
	c.WriteU16(2)
	c.WriteU8(propDescFormFlagEnum)
	c.WriteU16(3) // count
	c.WriteU16(1)
	c.WriteU16(11)
	c.WriteU16(2)

	codec := NewPropertyDescriptorCodec()
	v, err := codec.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	desc := v.(*PropertyDescriptor)
	if desc.Form != FormEnum {
		t.Fatalf("Form = %v, want FormEnum", desc.Form)
	}
	if len(desc.AllowedValues) != 3 {
		t.Fatalf("len(AllowedValues) = %d, want 3", len(desc.AllowedValues))
	}
	if desc.AllowedValues[1].(uint16) != 11 {
		t.Fatalf("AllowedValues[1] = %v, want 11", desc.AllowedValues[1])
	}
}

func TestPropertyDescriptorCodecNoneForm(t *testing.T) {
	c := NewWriteCursor()
	c.WriteU16(PropFocalLength)
	c.WriteU16(dtcUint32)
	c.WriteU8(0)
	c.WriteU32(0)
	c.WriteU32(50)
	c.WriteU8(propDescFormFlagNone)

	codec := NewPropertyDescriptorCodec()
	v, err := codec.Decode(NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	desc := v.(*PropertyDescriptor)
	if desc.Form != FormNone {
		t.Fatalf("Form = %v, want FormNone", desc.Form)
	}
	if desc.Current.(uint32) != 50 {
		t.Fatalf("Current = %v, want 50", desc.Current)
	}
}

func TestExecuteGetDevicePropDescDecodesDescriptor(t *testing.T) {
	ft := &fakeTransport{}
	e := newTestEngine(ft)
	op, ok := e.registry.Operation("GetDevicePropDesc")
	if !ok {
		t.Fatal("GetDevicePropDesc missing from generic registry")
	}
	ft.recv = [][]byte{
		EncodeData(op.Code, 1, buildPropDescRange()),
		mustEncodeResponse(RespOK, 1, nil),
	}
	res, err := e.Execute(context.Background(), Call{Operation: op, Params: map[string]interface{}{"property_code": uint16(PropBatteryLevel)}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	desc, ok := res.Decoded.(*PropertyDescriptor)
	if !ok {
		t.Fatalf("Decoded = %T, want *PropertyDescriptor", res.Decoded)
	}
	if desc.Current.(uint16) != 5 {
		t.Fatalf("Current = %v, want 5", desc.Current)
	}
}
