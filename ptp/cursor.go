package ptp

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// byteOrder is PTP/USB's wire order. Kept as a variable, not a hardcoded
// call, so a future PTP/IP transport could flip it without touching every
// call site.
var byteOrder = binary.LittleEndian

// MalformedString is returned when a PTP string lacks its trailing NUL
// code unit and strict decoding was requested.
type MalformedString string

func (e MalformedString) Error() string { return string(e) }

// MalformedArray is returned when an array codec's declared count implies
// more bytes than remain in the buffer.
type MalformedArray string

func (e MalformedArray) Error() string { return string(e) }

// ShortRead is returned when a cursor read runs past the end of its buffer.
type ShortRead string

func (e ShortRead) Error() string { return string(e) }

// Cursor reads and writes PTP primitive types from/to a byte slice,
// tracking its own offset. It never allocates beyond what Bytes() needs.
type Cursor struct {
	buf    []byte
	off    int
	Strict bool
}

// NewCursor wraps buf for reading.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewWriteCursor returns a cursor that appends to an initially empty
// buffer, for encoding.
func NewWriteCursor() *Cursor {
	return &Cursor{buf: make([]byte, 0, 64)}
}

// Bytes returns the cursor's full backing buffer.
func (c *Cursor) Bytes() []byte { return c.buf }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Offset returns the current read/write position.
func (c *Cursor) Offset() int { return c.off }

func (c *Cursor) need(n int) error {
	if c.Remaining() < n {
		return ShortRead(fmt.Sprintf("need %d bytes, have %d", n, c.Remaining()))
	}
	return nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := byteOrder.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := byteOrder.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadU64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := byteOrder.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

// ReadU128 returns the raw 16 bytes; PTP's UINT128 has no common Go
// numeric representation, so callers treat it opaquely.
func (c *Cursor) ReadU128() ([16]byte, error) {
	var out [16]byte
	if err := c.need(16); err != nil {
		return out, err
	}
	copy(out[:], c.buf[c.off:c.off+16])
	c.off += 16
	return out, nil
}

func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := c.buf[c.off : c.off+n]
	c.off += n
	return out, nil
}

// ReadString decodes a PTP string: u8 length (code-unit count, including a
// trailing NUL when non-empty) followed by that many UTF-16LE code units.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadU8()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	raw, err := c.ReadBytes(2 * int(n))
	if err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = byteOrder.Uint16(raw[2*i:])
	}
	if units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	} else if c.Strict {
		return "", MalformedString("PTP string missing trailing NUL")
	}
	var sb []byte
	for _, u := range units {
		var tmp [4]byte
		w := utf8.EncodeRune(tmp[:], rune(u))
		sb = append(sb, tmp[:w]...)
	}
	return string(sb), nil
}

func (c *Cursor) WriteU8(v uint8) {
	c.buf = append(c.buf, v)
}

func (c *Cursor) WriteI8(v int8) { c.WriteU8(uint8(v)) }

func (c *Cursor) WriteU16(v uint16) {
	var tmp [2]byte
	byteOrder.PutUint16(tmp[:], v)
	c.buf = append(c.buf, tmp[:]...)
}

func (c *Cursor) WriteI16(v int16) { c.WriteU16(uint16(v)) }

func (c *Cursor) WriteU32(v uint32) {
	var tmp [4]byte
	byteOrder.PutUint32(tmp[:], v)
	c.buf = append(c.buf, tmp[:]...)
}

func (c *Cursor) WriteI32(v int32) { c.WriteU32(uint32(v)) }

func (c *Cursor) WriteU64(v uint64) {
	var tmp [8]byte
	byteOrder.PutUint64(tmp[:], v)
	c.buf = append(c.buf, tmp[:]...)
}

func (c *Cursor) WriteI64(v int64) { c.WriteU64(uint64(v)) }

func (c *Cursor) WriteU128(v [16]byte) {
	c.buf = append(c.buf, v[:]...)
}

func (c *Cursor) WriteBytes(b []byte) {
	c.buf = append(c.buf, b...)
}

// WriteString encodes a PTP string. An empty string encodes as a single
// 0x00 length byte; a non-empty string's length includes the trailing NUL.
func (c *Cursor) WriteString(s string) error {
	if s == "" {
		c.WriteU8(0)
		return nil
	}
	count := 0
	var units []uint16
	for _, r := range s {
		units = append(units, uint16(r))
		count++
	}
	units = append(units, 0)
	count++
	if count > 255 {
		return fmt.Errorf("ptp: string too long to encode (%d code units)", count)
	}
	c.WriteU8(uint8(count))
	for _, u := range units {
		c.WriteU16(u)
	}
	return nil
}
