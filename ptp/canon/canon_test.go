package canon

import (
	"context"
	"testing"

	"github.com/hanwen/go-ptp/ptp"
)

func TestNewRegistryLayersCanonOverGeneric(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Operation("GetDeviceInfo"); !ok {
		t.Fatal("expected the generic base to still resolve GetDeviceInfo")
	}
	op, ok := r.Operation("SetRemoteMode")
	if !ok || op.Code != OpSetRemoteMode {
		t.Fatalf("Operation(SetRemoteMode) = %+v, %v", op, ok)
	}
	if _, ok := r.Operation("CanonGetEventData"); !ok {
		t.Fatal("expected CanonGetEventData registered under its symbolic name")
	}
}

func buildEventStream(records []canonEventRecord) []byte {
	c := ptp.NewWriteCursor()
	for _, r := range records {
		c.WriteU32(16) // size: 8-byte record header + 8-byte property payload
		c.WriteU32(r.Kind)
		c.WriteU32(r.PropertyCode)
		c.WriteU32(r.Value)
	}
	return c.Bytes()
}

func TestEventStreamCodecDecodesPropValueChanged(t *testing.T) {
	codec := newEventStreamCodec()
	buf := buildEventStream([]canonEventRecord{
		{Kind: 0xC189, PropertyCode: 0xD17, Value: 42},
	})
	v, err := codec.Decode(ptp.NewCursor(buf))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	records := v.([]canonEventRecord)
	if len(records) != 1 || records[0].PropertyCode != 0xD17 || records[0].Value != 42 {
		t.Fatalf("records = %+v", records)
	}
}

func TestEventStreamCodecSkipsUnknownRecordKinds(t *testing.T) {
	codec := newEventStreamCodec()
	c := ptp.NewWriteCursor()
	c.WriteU32(12) // 8-byte header + 4 bytes of opaque payload
	c.WriteU32(0x1234)
	c.WriteU32(0xDEAD)
	v, err := codec.Decode(ptp.NewCursor(c.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if records := v.([]canonEventRecord); len(records) != 0 {
		t.Fatalf("expected an unknown-kind record to be skipped, got %+v", records)
	}
}

func TestEventStreamCodecEncodeUnsupported(t *testing.T) {
	codec := newEventStreamCodec()
	if err := codec.Encode(ptp.NewWriteCursor(), nil); err == nil {
		t.Fatal("expected encoding the device-to-host-only stream to fail")
	}
}

// poll() always goes through cam.Send, so this test does not call it: it
// repeats poll's record-to-Event translation on a hand-built record and
// checks the resulting Event and the property cache.
func TestStrategyCacheHoldsTranslatedRecordValue(t *testing.T) {
	s := NewStrategy(nil)
	records := []canonEventRecord{{Kind: 0xC189, PropertyCode: 0xD17, Value: 7}}

	events := make([]ptp.Event, 0, len(records))
	for _, rec := range records {
		s.cache.set(uint16(rec.PropertyCode), rec.Value)
		events = append(events, ptp.Event{
			Code: uint16(rec.Kind),
			Name: "DevicePropChanged",
			Params: map[string]interface{}{
				"property_code": rec.PropertyCode,
				"value":         rec.Value,
			},
		})
	}

	if len(events) != 1 || events[0].Params["value"].(uint32) != 7 {
		t.Fatalf("events = %+v", events)
	}
	v, ok := s.cache.get(0xD17)
	if !ok || v.(uint32) != 7 {
		t.Fatalf("cache.get(0xD17) = %v, %v", v, ok)
	}
}

func TestStrategyPollRequiresAttachedCamera(t *testing.T) {
	s := NewStrategy(nil)
	if _, err := s.poll(context.Background()); err == nil {
		t.Fatal("expected poll to fail before AttachCamera")
	}
}

func TestStrategyGetOverrideCacheOnlyFallsBackWhenEmpty(t *testing.T) {
	s := NewStrategy(nil)
	prop := &ptp.PropertyDefinition{Code: 0xD17}
	v, handled, err := s.GetOverride(context.Background(), nil, prop)
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if handled {
		t.Fatalf("expected handled=false with an empty cache, got v=%v", v)
	}
}

func TestStrategyGetOverrideServesFromCache(t *testing.T) {
	s := NewStrategy(nil)
	prop := &ptp.PropertyDefinition{Code: 0xD17}
	s.cache.set(0xD17, uint32(99))

	v, handled, err := s.GetOverride(context.Background(), nil, prop)
	if err != nil || !handled {
		t.Fatalf("GetOverride = %v, %v, %v", v, handled, err)
	}
	if v.(uint32) != 99 {
		t.Fatalf("GetOverride value = %v, want 99", v)
	}
}
