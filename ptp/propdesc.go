package ptp

import "fmt"

// Wire DataType selector codes for GetDevicePropDesc's self-describing
// body, matching the teacher's DTC_* constants (mtp/const.go).
const (
	dtcInt8    = 0x0001
	dtcUint8   = 0x0002
	dtcInt16   = 0x0003
	dtcUint16  = 0x0004
	dtcInt32   = 0x0005
	dtcUint32  = 0x0006
	dtcInt64   = 0x0007
	dtcUint64  = 0x0008
	dtcInt128  = 0x0009
	dtcUint128 = 0x000A
	dtcString  = 0xFFFF
)

// Wire FormFlag codes, matching the teacher's DPFF_* constants
// (mtp/const.go).
const (
	propDescFormFlagNone  = 0x00
	propDescFormFlagRange = 0x01
	propDescFormFlagEnum  = 0x02
)

// codecForDataType returns the primitive codec matching a DevicePropDesc
// wire DataType selector, grounded on the teacher's InstantiateType
// (mtp/encoding.go), which switches on the same DTC_* codes to pick a
// Go type to decode into.
func codecForDataType(dataType uint16) (Codec, error) {
	switch dataType {
	case dtcInt8:
		return NewPrimitiveCodec(KindI8, CodecI8), nil
	case dtcUint8:
		return NewPrimitiveCodec(KindU8, CodecU8), nil
	case dtcInt16:
		return NewPrimitiveCodec(KindI16, CodecI16), nil
	case dtcUint16:
		return NewPrimitiveCodec(KindU16, CodecU16), nil
	case dtcInt32:
		return NewPrimitiveCodec(KindI32, CodecI32), nil
	case dtcUint32:
		return NewPrimitiveCodec(KindU32, CodecU32), nil
	case dtcInt64:
		return NewPrimitiveCodec(KindI64, CodecI64), nil
	case dtcUint64:
		return NewPrimitiveCodec(KindU64, CodecU64), nil
	case dtcInt128, dtcUint128:
		return NewPrimitiveCodec(KindU128, CodecU128), nil
	case dtcString:
		return NewPrimitiveCodec(KindString, CodecString), nil
	default:
		return nil, fmt.Errorf("ptp: unknown property descriptor data type 0x%04x", dataType)
	}
}

// propertyDescriptorCodec decodes GetDevicePropDesc's data phase into a
// *PropertyDescriptor, grounded on the teacher's DevicePropDesc.Decode
// and decodePropDescForm (mtp/encoding.go): a DevicePropertyCode/DataType/
// GetSet header, the default and current value at the width DataType
// names, a FormFlag, and then (for Range/Enumeration) bounds or allowed
// values at that same width. Host-only: there is no legitimate reason to
// encode a PropertyDescriptor, so Encode always fails.
type propertyDescriptorCodec struct{}

// NewPropertyDescriptorCodec builds the DataCodec wired to
// GetDevicePropDesc and its vendor equivalents.
func NewPropertyDescriptorCodec() Codec { return propertyDescriptorCodec{} }

func (propertyDescriptorCodec) Name() string { return "PropertyDescriptor" }

func (propertyDescriptorCodec) Encode(c *Cursor, value interface{}) error {
	return fmt.Errorf("ptp: PropertyDescriptor is host-only, encoding is not supported")
}

func (propertyDescriptorCodec) Decode(c *Cursor) (interface{}, error) {
	if _, err := c.ReadU16(); err != nil { // device_property_code
		return nil, err
	}
	dataType, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	valueCodec, err := codecForDataType(dataType)
	if err != nil {
		return nil, err
	}
	if _, err := c.ReadU8(); err != nil { // get_set
		return nil, err
	}

	def, err := valueCodec.Decode(c)
	if err != nil {
		return nil, fmt.Errorf("ptp: decoding factory default value: %w", err)
	}
	cur, err := valueCodec.Decode(c)
	if err != nil {
		return nil, fmt.Errorf("ptp: decoding current value: %w", err)
	}
	formFlag, err := c.ReadU8()
	if err != nil {
		return nil, err
	}

	desc := &PropertyDescriptor{Default: def, Current: cur}
	switch formFlag {
	case propDescFormFlagRange:
		desc.Form = FormRange
		if desc.Min, err = valueCodec.Decode(c); err != nil {
			return nil, fmt.Errorf("ptp: decoding range minimum: %w", err)
		}
		if desc.Max, err = valueCodec.Decode(c); err != nil {
			return nil, fmt.Errorf("ptp: decoding range maximum: %w", err)
		}
		if desc.Step, err = valueCodec.Decode(c); err != nil {
			return nil, fmt.Errorf("ptp: decoding range step: %w", err)
		}
	case propDescFormFlagEnum:
		desc.Form = FormEnum
		count, err := c.ReadU16()
		if err != nil {
			return nil, err
		}
		desc.AllowedValues = make([]interface{}, 0, count)
		for i := uint16(0); i < count; i++ {
			v, err := valueCodec.Decode(c)
			if err != nil {
				return nil, fmt.Errorf("ptp: decoding enum value %d: %w", i, err)
			}
			desc.AllowedValues = append(desc.AllowedValues, v)
		}
	default:
		desc.Form = FormNone
	}
	return desc, nil
}
