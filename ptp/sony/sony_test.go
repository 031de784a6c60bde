package sony

import (
	"testing"

	"github.com/hanwen/go-ptp/ptp"
)

func TestNewRegistryLayersSonyOverGeneric(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Operation("GetDeviceInfo"); !ok {
		t.Fatal("expected the generic base to still resolve GetDeviceInfo")
	}
	op, ok := r.Operation("SDIOConnect")
	if !ok || op.Code != OpSDIOConnect || len(op.OperationParams) != 3 {
		t.Fatalf("Operation(SDIOConnect) = %+v, %v", op, ok)
	}
	if _, ok := r.Operation("SDIOGetOSDImage"); !ok {
		t.Fatal("expected SDIOGetOSDImage registered")
	}
}

func TestExtPropInfoCodecDecodesFixedWidthRecords(t *testing.T) {
	codec := newExtPropInfoCodec()
	c := ptp.NewWriteCursor()
	c.WriteU32(1) // one record
	c.WriteU32(0xD201)
	c.WriteU16(0x0004) // DataType: 2-byte width
	c.WriteU16(7)      // current
	c.WriteU16(9)      // default

	v, err := codec.Decode(ptp.NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	props := v.([]ExtPropInfo)
	if len(props) != 1 {
		t.Fatalf("len(props) = %d, want 1", len(props))
	}
	p := props[0]
	if p.PropertyCode != 0xD201 || p.Current != 7 || p.Default != 9 {
		t.Fatalf("props[0] = %+v", p)
	}
}

func TestExtPropInfoCodecStopsOnShortTrailingRecord(t *testing.T) {
	codec := newExtPropInfoCodec()
	c := ptp.NewWriteCursor()
	c.WriteU32(2) // declares two records
	c.WriteU32(0xD201)
	c.WriteU16(0x0004)
	c.WriteU16(7)
	c.WriteU16(9)
	// second record is truncated entirely

	v, err := codec.Decode(ptp.NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if props := v.([]ExtPropInfo); len(props) != 1 {
		t.Fatalf("len(props) = %d, want 1 (second record truncated)", len(props))
	}
}

func TestWidthForDataType(t *testing.T) {
	cases := map[uint16]int{
		0x0001: 1, 0x0002: 1,
		0x0003: 2, 0x0004: 2,
		0x0005: 4, 0x0006: 4,
		0x0007: 8, 0x0008: 8,
		0x9999: 4, // unknown defaults to 4
	}
	for dtype, want := range cases {
		if got := widthForDataType(dtype); got != want {
			t.Errorf("widthForDataType(0x%04x) = %d, want %d", dtype, got, want)
		}
	}
}

func TestOSDImageCodecDecodesHeaderAndJPEG(t *testing.T) {
	codec := newOSDImageCodec()
	c := ptp.NewWriteCursor()
	c.WriteU16(640)
	c.WriteU16(480)
	c.WriteBytes([]byte{0xFF, 0xD8, 0xFF, 0xD9})

	v, err := codec.Decode(ptp.NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	img := v.(*OSDImage)
	if img.Width != 640 || img.Height != 480 {
		t.Fatalf("dimensions = %dx%d, want 640x480", img.Width, img.Height)
	}
	if len(img.JPEG) != 4 {
		t.Fatalf("JPEG length = %d, want 4", len(img.JPEG))
	}
}

func TestOSDImageCodecRejectsShortPayload(t *testing.T) {
	codec := newOSDImageCodec()
	if _, err := codec.Decode(ptp.NewCursor([]byte{0x01})); err == nil {
		t.Fatal("expected an error decoding a payload shorter than the header")
	}
}

func TestOSDImageCodecEncodeUnsupported(t *testing.T) {
	codec := newOSDImageCodec()
	if err := codec.Encode(ptp.NewWriteCursor(), &OSDImage{}); err == nil {
		t.Fatal("expected encoding the device-to-host-only image to fail")
	}
}
