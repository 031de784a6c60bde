package nikon

import (
	"encoding/binary"
	"testing"

	"github.com/hanwen/go-ptp/ptp"
)

func TestNewRegistryLayersNikonOverGeneric(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Operation("GetDeviceInfo"); !ok {
		t.Fatal("expected the generic base to still resolve GetDeviceInfo")
	}
	op, ok := r.Operation("StartLiveView")
	if !ok || op.Code != OpStartLiveView {
		t.Fatalf("Operation(StartLiveView) = %+v, %v", op, ok)
	}
	if _, ok := r.OperationByCode(OpGetLiveViewImg); !ok {
		t.Fatal("expected GetLiveViewImg indexed by code")
	}
	prop, ok := r.Property("LiveViewStatus")
	if !ok || prop.Access != ptp.AccessGet {
		t.Fatalf("Property(LiveViewStatus) = %+v, %v", prop, ok)
	}
	if _, ok := r.Response(RespNotLiveView); !ok {
		t.Fatal("expected NIKON_NotLiveView response registered")
	}
}

func TestLiveViewCodecDecodesHeaderAndJPEG(t *testing.T) {
	codec := newLiveViewCodec()

	raw := make([]byte, liveViewHeaderSize+4)
	binary.BigEndian.PutUint32(raw[8:12], uint32(90)) // rotation
	binary.BigEndian.PutUint32(raw[12:16], uint32(2)) // AF success
	binary.BigEndian.PutUint32(raw[16:20], uint32(3)) // movie seconds
	binary.BigEndian.PutUint32(raw[20:24], uint32(5)) // movie fraction
	copy(raw[liveViewHeaderSize:], []byte{0xFF, 0xD8, 0xFF, 0xD9}) // JPEG SOI/EOI

	v, err := codec.Decode(ptp.NewCursor(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	frame, ok := v.(*LiveViewFrame)
	if !ok {
		t.Fatalf("Decode = %T, want *LiveViewFrame", v)
	}
	if frame.Rotation != Rotation90 {
		t.Fatalf("Rotation = %v, want Rotation90", frame.Rotation)
	}
	if frame.AF != AFSuccess {
		t.Fatalf("AF = %v, want AFSuccess", frame.AF)
	}
	if len(frame.JPEG) != 4 || frame.JPEG[0] != 0xFF {
		t.Fatalf("JPEG = %x, want the 4 trailing bytes", frame.JPEG)
	}
}

func TestLiveViewCodecRejectsShortPayload(t *testing.T) {
	codec := newLiveViewCodec()
	if _, err := codec.Decode(ptp.NewCursor(make([]byte, 10))); err == nil {
		t.Fatal("expected an error decoding a payload shorter than the fixed header")
	}
}

func TestLiveViewCodecEncodeUnsupported(t *testing.T) {
	codec := newLiveViewCodec()
	if err := codec.Encode(ptp.NewWriteCursor(), &LiveViewFrame{}); err == nil {
		t.Fatal("expected encoding a device-to-host-only frame to fail")
	}
}

func TestParseMovieTime(t *testing.T) {
	cases := []struct {
		sec, frac int32
		want      float64
	}{
		{3, 5, 3.5},
		{0, 25, 0.25},
		{-2, 5, -2.5},
	}
	for _, c := range cases {
		if got := parseMovieTime(c.sec, c.frac); got != c.want {
			t.Errorf("parseMovieTime(%d, %d) = %v, want %v", c.sec, c.frac, got, c.want)
		}
	}
}
