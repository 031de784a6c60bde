package ptp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// parseHex turns a whitespace-separated hex dump (as used throughout
// this file) into bytes, grounded on mtp/encoding_test.go's parseHex.
func parseHex(s string) []byte {
	hex := strings.Replace(s, " ", "", -1)
	hex = strings.Replace(hex, "\n", "", -1)
	buf := bytes.NewBufferString(hex)
	bin := make([]byte, len(hex)/2)
	if _, err := fmt.Fscanf(buf, "%x", &bin); err != nil {
		panic(err)
	}
	if buf.Len() > 0 {
		panic("consume")
	}
	return bin
}

func diffIndex(a, b []byte) error {
	l := len(b)
	if len(a) < len(b) {
		l = len(a)
	}
	for i := 0; i < l; i++ {
		if a[i] != b[i] {
			return fmt.Errorf("data idx 0x%x got %x want %x", i, a[i], b[i])
		}
	}
	if len(a) != len(b) {
		return fmt.Errorf("length mismatch got %d want %d", len(a), len(b))
	}
	return nil
}

func TestCursorPrimitivesRoundTrip(t *testing.T) {
	c := NewWriteCursor()
	c.WriteU8(0xAB)
	c.WriteU16(0x1234)
	c.WriteU32(0xDEADBEEF)
	c.WriteU64(0x0102030405060708)
	c.WriteI32(-1)

	want := parseHex("ab 3412 efbeadde 0807060504030201 ffffffff")
	if err := diffIndex(c.Bytes(), want); err != nil {
		t.Fatalf("encode mismatch: %v", err)
	}

	r := NewCursor(c.Bytes())
	if v, err := r.ReadU8(); err != nil || v != 0xAB {
		t.Fatalf("ReadU8 = %v, %v", v, err)
	}
	if v, err := r.ReadU16(); err != nil || v != 0x1234 {
		t.Fatalf("ReadU16 = %v, %v", v, err)
	}
	if v, err := r.ReadU32(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("ReadU32 = %v, %v", v, err)
	}
	if v, err := r.ReadU64(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("ReadU64 = %v, %v", v, err)
	}
	if v, err := r.ReadI32(); err != nil || v != -1 {
		t.Fatalf("ReadI32 = %v, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected cursor exhausted, %d bytes remaining", r.Remaining())
	}
}

func TestCursorStringRoundTrip(t *testing.T) {
	c := NewWriteCursor()
	if err := c.WriteString("hi"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	// "hi" + NUL = 3 code units, little-endian UTF-16.
	want := parseHex("03 6800 6900 0000")
	if err := diffIndex(c.Bytes(), want); err != nil {
		t.Fatalf("encode mismatch: %v", err)
	}

	r := NewCursor(c.Bytes())
	s, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "hi" {
		t.Fatalf("ReadString = %q, want %q", s, "hi")
	}
}

func TestCursorStringEmpty(t *testing.T) {
	c := NewWriteCursor()
	if err := c.WriteString(""); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if !bytes.Equal(c.Bytes(), []byte{0}) {
		t.Fatalf("empty string encode = %x, want 00", c.Bytes())
	}
	r := NewCursor(c.Bytes())
	s, err := r.ReadString()
	if err != nil || s != "" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
}

func TestCursorStringMissingNULStrict(t *testing.T) {
	// One code unit, no trailing NUL: malformed under Strict.
	buf := parseHex("01 4100")
	r := NewCursor(buf)
	r.Strict = true
	if _, err := r.ReadString(); err == nil {
		t.Fatal("expected MalformedString error under Strict")
	} else if _, ok := err.(MalformedString); !ok {
		t.Fatalf("expected MalformedString, got %T: %v", err, err)
	}
}

func TestCursorShortRead(t *testing.T) {
	r := NewCursor([]byte{0x01, 0x02})
	if _, err := r.ReadU32(); err == nil {
		t.Fatal("expected ShortRead error")
	} else if _, ok := err.(ShortRead); !ok {
		t.Fatalf("expected ShortRead, got %T: %v", err, err)
	}
}
