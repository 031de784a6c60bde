package ptp

import (
	"bytes"
	"testing"
)

func TestEncodeCommandRoundTrip(t *testing.T) {
	buf, err := EncodeCommand(OpGetDeviceInfo, 1, []uint32{0x11, 0x22})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	want := parseHex("14000000 0100 0110 01000000 11000000 22000000")
	if err := diffIndex(buf, want); err != nil {
		t.Fatalf("encode mismatch: %v", err)
	}

	c, err := DecodeContainer(buf)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if c.Type != ContainerCommand || c.Code != OpGetDeviceInfo || c.TransactionID != 1 {
		t.Fatalf("unexpected header: %+v", c)
	}
	if !bytes.Equal(paramsToBytes(c.Param), paramsToBytes([]uint32{0x11, 0x22})) {
		t.Fatalf("params = %v, want [0x11 0x22]", c.Param)
	}
}

func paramsToBytes(p []uint32) []byte {
	c := NewWriteCursor()
	for _, v := range p {
		c.WriteU32(v)
	}
	return c.Bytes()
}

func TestEncodeCommandTooManyParams(t *testing.T) {
	if _, err := EncodeCommand(OpGetDeviceInfo, 1, []uint32{1, 2, 3, 4, 5, 6}); err == nil {
		t.Fatal("expected error for 6 parameters, got nil")
	}
}

func TestEncodeDataRoundTrip(t *testing.T) {
	payload := []byte("hello")
	buf := EncodeData(OpGetDeviceInfo, 7, payload)
	c, err := DecodeContainer(buf)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if c.Type != ContainerData || c.TransactionID != 7 {
		t.Fatalf("unexpected header: %+v", c)
	}
	if !bytes.Equal(c.Payload, payload) {
		t.Fatalf("payload = %q, want %q", c.Payload, payload)
	}
}

func TestDecodeContainerEventParams(t *testing.T) {
	buf := encodeHeader(headerLen+4, ContainerEvent, EventObjectAdded, 0)
	c := &Cursor{buf: buf}
	c.off = len(buf)
	c.WriteU32(0x4242)

	container, err := DecodeContainer(c.buf)
	if err != nil {
		t.Fatalf("DecodeContainer: %v", err)
	}
	if container.Type != ContainerEvent {
		t.Fatalf("Type = %v, want ContainerEvent", container.Type)
	}
	if len(container.Param) != 1 || container.Param[0] != 0x4242 {
		t.Fatalf("Param = %v, want [0x4242]", container.Param)
	}
	if container.Payload != nil {
		t.Fatalf("Payload = %v, want nil for an EVENT container", container.Payload)
	}
}

func TestDecodeContainerShortBuffer(t *testing.T) {
	if _, err := DecodeContainer([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error decoding a too-short buffer")
	}
}

func TestDecodeContainerRejectsLengthBelowHeader(t *testing.T) {
	buf := encodeHeader(4, ContainerCommand, OpGetDeviceInfo, 1)
	_, err := DecodeContainer(buf)
	if err == nil {
		t.Fatal("expected an error for a declared length shorter than the 12-byte header")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("err = %T, want *ProtocolError", err)
	}
}

func TestContainerTypeString(t *testing.T) {
	cases := map[ContainerType]string{
		ContainerCommand:  "COMMAND",
		ContainerData:     "DATA",
		ContainerResponse: "RESPONSE",
		ContainerEvent:    "EVENT",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("ContainerType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
