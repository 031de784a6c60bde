package ptp

import (
	"fmt"
	"reflect"
)

// Codec is the common interface every codec variant implements: Primitive,
// Array, Enum, Dataset, Custom. Grounded on the teacher's reflection-driven
// Decode/Encode entry points (mtp/encoding.go), generalized into an
// explicit tagged-variant interface rather than a single god function.
type Codec interface {
	// Encode appends value's wire representation to c.
	Encode(c *Cursor, value interface{}) error
	// Decode reads one value from c, advancing its offset.
	Decode(c *Cursor) (interface{}, error)
	// Name identifies the codec for registry lookups and error messages.
	Name() string
}

// PrimitiveKind enumerates the fixed-width PTP scalar types plus string.
type PrimitiveKind int

const (
	KindU8 PrimitiveKind = iota
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindU128
	KindString
)

// primitiveCodec implements Codec for a single fixed-width scalar or the
// PTP string type. Base codecs referenced by symbolic handle from the
// registry (spec §4.D) are instances of this type.
type primitiveCodec struct {
	kind PrimitiveKind
	name string
}

// NewPrimitiveCodec constructs a base codec for one of the PTP scalar
// kinds. Registries build one of each kind once and share it by pointer.
func NewPrimitiveCodec(kind PrimitiveKind, name string) Codec {
	return &primitiveCodec{kind: kind, name: name}
}

func (p *primitiveCodec) Name() string { return p.name }

// FixedSize returns the encoded width in bytes, or -1 for variable-width
// kinds (string), matching the array codec's need to know inner widths
// up front (spec §4.A, "Array codec... fails if remaining bytes <
// count*inner.fixed_size() for fixed-width inners").
func (p *primitiveCodec) FixedSize() int {
	switch p.kind {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32:
		return 4
	case KindU64, KindI64:
		return 8
	case KindU128:
		return 16
	default:
		return -1
	}
}

func (p *primitiveCodec) Encode(c *Cursor, value interface{}) error {
	switch p.kind {
	case KindU8:
		c.WriteU8(toU8(value))
	case KindI8:
		c.WriteI8(int8(toI64(value)))
	case KindU16:
		c.WriteU16(toU16(value))
	case KindI16:
		c.WriteI16(int16(toI64(value)))
	case KindU32:
		c.WriteU32(toU32(value))
	case KindI32:
		c.WriteI32(int32(toI64(value)))
	case KindU64:
		c.WriteU64(toU64(value))
	case KindI64:
		c.WriteI64(toI64(value))
	case KindU128:
		b, ok := value.([16]byte)
		if !ok {
			return &ValidationError{Field: p.name, Reason: "expected [16]byte"}
		}
		c.WriteU128(b)
	case KindString:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Field: p.name, Reason: "expected string"}
		}
		return c.WriteString(s)
	default:
		return fmt.Errorf("ptp: unknown primitive kind %d", p.kind)
	}
	return nil
}

func (p *primitiveCodec) Decode(c *Cursor) (interface{}, error) {
	switch p.kind {
	case KindU8:
		return c.ReadU8()
	case KindI8:
		return c.ReadI8()
	case KindU16:
		return c.ReadU16()
	case KindI16:
		return c.ReadI16()
	case KindU32:
		return c.ReadU32()
	case KindI32:
		return c.ReadI32()
	case KindU64:
		return c.ReadU64()
	case KindI64:
		return c.ReadI64()
	case KindU128:
		return c.ReadU128()
	case KindString:
		return c.ReadString()
	default:
		return nil, fmt.Errorf("ptp: unknown primitive kind %d", p.kind)
	}
}

func toU8(v interface{}) uint8 { return uint8(toU64(v)) }
func toU16(v interface{}) uint16 { return uint16(toU64(v)) }
func toU32(v interface{}) uint32 { return uint32(toU64(v)) }

func toU64(v interface{}) uint64 {
	switch x := v.(type) {
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case int:
		return uint64(x)
	case int32:
		return uint64(x)
	case int64:
		return uint64(x)
	default:
		return 0
	}
}

func toI64(v interface{}) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return 0
	}
}

// arrayCodec implements the u32-count-prefixed array codec (spec §4.A).
type arrayCodec struct {
	inner Codec
	name  string
}

// NewArrayCodec builds an array codec whose elements are decoded/encoded
// with inner.
func NewArrayCodec(inner Codec, name string) Codec {
	return &arrayCodec{inner: inner, name: name}
}

func (a *arrayCodec) Name() string { return a.name }

func (a *arrayCodec) Encode(c *Cursor, value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return &ValidationError{Field: a.name, Reason: "expected a slice"}
	}
	c.WriteU32(uint32(rv.Len()))
	for i := 0; i < rv.Len(); i++ {
		if err := a.inner.Encode(c, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func (a *arrayCodec) Decode(c *Cursor) (interface{}, error) {
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if pc, ok := a.inner.(*primitiveCodec); ok {
		if fs := pc.FixedSize(); fs > 0 && int(count)*fs > c.Remaining() {
			return nil, MalformedArray(fmt.Sprintf("%s: declares %d elements, only %d bytes remain", a.name, count, c.Remaining()))
		}
	}
	out := make([]interface{}, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := a.inner.Decode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Raw wraps a numeric value an enum codec could not map to any symbolic
// name, preserving the original bits (spec §3, enum decode policy).
type Raw uint64

// EnumEntry is one row of an enum codec's lookup table.
type EnumEntry struct {
	Value       uint64
	Name        string
	Description string
}

// enumCodec implements symbolic-name <-> numeric-value translation over a
// base codec, per spec §4.B "Enum codec policy".
type enumCodec struct {
	base    Codec
	table   []EnumEntry
	byName  map[string]uint64
	byValue map[uint64]string // first-declared name wins
	name    string
}

// NewEnumCodec builds an enum codec. When two entries share a numeric
// value, the first one declared in table wins name resolution on decode
// (spec: "Enum alias preservation").
func NewEnumCodec(base Codec, table []EnumEntry, name string) Codec {
	e := &enumCodec{base: base, table: table, name: name,
		byName: map[string]uint64{}, byValue: map[uint64]string{}}
	for _, ent := range table {
		if _, exists := e.byName[ent.Name]; !exists {
			e.byName[ent.Name] = ent.Value
		}
		if _, exists := e.byValue[ent.Value]; !exists {
			e.byValue[ent.Value] = ent.Name
		}
	}
	return e
}

func (e *enumCodec) Name() string { return e.name }

func (e *enumCodec) Encode(c *Cursor, value interface{}) error {
	name, ok := value.(string)
	if !ok {
		if raw, ok := value.(Raw); ok {
			return e.base.Encode(c, numericToBase(e.base, uint64(raw)))
		}
		return &ValidationError{Field: e.name, Reason: "expected a symbolic name string or Raw value"}
	}
	numeric, found := e.byName[name]
	if !found {
		return &UnknownCodeError{Kind: "enum name", Key: name}
	}
	return e.base.Encode(c, numericToBase(e.base, numeric))
}

func (e *enumCodec) Decode(c *Cursor) (interface{}, error) {
	raw, err := e.base.Decode(c)
	if err != nil {
		return nil, err
	}
	numeric := toU64(raw)
	if name, found := e.byValue[numeric]; found {
		return name, nil
	}
	return Raw(numeric), nil
}

// numericToBase converts a uint64 numeric value to the Go type the base
// codec's Encode expects (its own kind), so callers of enum codecs never
// have to know the base codec's concrete width.
func numericToBase(base Codec, numeric uint64) interface{} {
	pc, ok := base.(*primitiveCodec)
	if !ok {
		return numeric
	}
	switch pc.kind {
	case KindU8:
		return uint8(numeric)
	case KindU16:
		return uint16(numeric)
	case KindU32:
		return uint32(numeric)
	case KindU64:
		return numeric
	default:
		return numeric
	}
}

// DatasetField describes one named, ordered field of a Dataset codec.
type DatasetField struct {
	Name     string
	Codec    Codec
	Optional bool
}

// Dataset is the decoded form of a Dataset codec: an ordered map from
// field name to decoded value, plus which optional fields were absent.
// Grounded on the teacher's reflection-walked structs (mtp/types.go's
// DeviceInfo, ObjectInfo, StorageInfo) generalized into data.
type Dataset struct {
	Order  []string
	Values map[string]interface{}
	Missing map[string]bool
}

// Get returns a decoded field's value and whether it was present.
func (d *Dataset) Get(name string) (interface{}, bool) {
	if d.Missing[name] {
		return nil, false
	}
	v, ok := d.Values[name]
	return v, ok
}

// datasetCodec implements the ordered-named-fields codec, spec §4.B
// "Dataset codec policy".
type datasetCodec struct {
	fields []DatasetField
	name   string
}

// NewDatasetCodec builds a dataset codec over fields, decoded/encoded in
// declared order.
func NewDatasetCodec(fields []DatasetField, name string) Codec {
	return &datasetCodec{fields: fields, name: name}
}

func (d *datasetCodec) Name() string { return d.name }

func (d *datasetCodec) Encode(c *Cursor, value interface{}) error {
	ds, ok := value.(*Dataset)
	if !ok {
		return &ValidationError{Field: d.name, Reason: "expected *Dataset"}
	}
	for _, f := range d.fields {
		v, present := ds.Get(f.Name)
		if !present {
			if f.Optional {
				continue
			}
			return &ValidationError{Field: f.Name, Reason: "required dataset field missing"}
		}
		if err := f.Codec.Encode(c, v); err != nil {
			return fmt.Errorf("ptp: encoding field %q of dataset %q: %w", f.Name, d.name, err)
		}
	}
	return nil
}

func (d *datasetCodec) Decode(c *Cursor) (interface{}, error) {
	ds := &Dataset{Values: map[string]interface{}{}, Missing: map[string]bool{}}
	for _, f := range d.fields {
		ds.Order = append(ds.Order, f.Name)
		if f.Optional && c.Remaining() == 0 {
			ds.Missing[f.Name] = true
			continue
		}
		v, err := f.Codec.Decode(c)
		if err != nil {
			if f.Optional {
				ds.Missing[f.Name] = true
				continue
			}
			return nil, fmt.Errorf("ptp: decoding field %q of dataset %q: %w", f.Name, d.name, err)
		}
		ds.Values[f.Name] = v
	}
	return ds, nil
}

// CustomCodec is an opaque encode/decode pair supplied by a vendor
// registry for formats the generic variants can't express (Canon event
// stream, Sony SDIO OSD image, Nikon live-view frame header). Grounded on
// the teacher's LVServer.getLiveViewImgInner (mtp/server.go), which hand
// parses a fixed binary header followed by a JPEG payload.
type CustomCodec struct {
	name       string
	EncodeFunc func(c *Cursor, value interface{}) error
	DecodeFunc func(c *Cursor) (interface{}, error)
}

// NewCustomCodec wraps a pair of hand-written encode/decode functions as
// a Codec.
func NewCustomCodec(name string, encode func(c *Cursor, value interface{}) error, decode func(c *Cursor) (interface{}, error)) Codec {
	return &CustomCodec{name: name, EncodeFunc: encode, DecodeFunc: decode}
}

func (cc *CustomCodec) Name() string { return cc.name }

func (cc *CustomCodec) Encode(c *Cursor, value interface{}) error {
	if cc.EncodeFunc == nil {
		return fmt.Errorf("ptp: custom codec %q has no encoder", cc.name)
	}
	return cc.EncodeFunc(c, value)
}

func (cc *CustomCodec) Decode(c *Cursor) (interface{}, error) {
	if cc.DecodeFunc == nil {
		return nil, fmt.Errorf("ptp: custom codec %q has no decoder", cc.name)
	}
	return cc.DecodeFunc(c)
}
