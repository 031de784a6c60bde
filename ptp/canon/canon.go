// Package canon provides the Canon EOS vendor registry and camera
// façade strategy: remote-release mode handshake, a property cache fed
// by polled events (Canon EOS cameras have no interrupt-endpoint event
// stream), and the RequestAndWait/CacheOnly property-access policy that
// distinguishes Canon's event-cache model from the generic
// GetDevicePropValue round trip.
//
// Grounded on mtp/const.go's OC_CANON_EOS_* operation block (remote
// mode/event mode/GetEvent) and the teacher's RCError type-switch style
// (mtp/server.go's startLiveView) for property-cache error handling;
// Canon's interrupt-less event model generalizes the teacher's
// MutableTicker-driven polling loops (mtp/time.go) into
// ptp.NewPollingEventPump.
package canon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hanwen/go-ptp/ptp"
)

// Operation codes specific to Canon EOS remote-control mode, matching
// mtp/const.go's OC_CANON_EOS_* block.
const (
	OpGetObjectInfoEx     = 0x9109
	OpRemoteRelease        = 0x910F
	OpSetDevicePropValueEx = 0x9110
	OpGetRemoteMode        = 0x9113
	OpSetRemoteMode        = 0x9114
	OpSetEventMode         = 0x9115
	OpGetEvent             = 0x9116
	OpRequestDevicePropValue = 0x9127
	OpRemoteReleaseOn       = 0x9128
	OpRemoteReleaseOff      = 0x9129
)

// EventPollInterval is the default interval for CanonGetEventData-style
// polling, matching spec §4.H "default 200ms".
const EventPollInterval = 200 * time.Millisecond

// propertyCache holds property values learned from polled EOS events,
// serving reads without a round trip per spec §4.I's note that Canon
// may serve get() from "Canon event-cache read" rather than
// GetDevicePropValue.
type propertyCache struct {
	mu     sync.RWMutex
	values map[uint16]interface{}
}

func newPropertyCache() *propertyCache {
	return &propertyCache{values: map[uint16]interface{}{}}
}

func (c *propertyCache) set(code uint16, v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[code] = v
}

func (c *propertyCache) get(code uint16) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[code]
	return v, ok
}

// AccessPolicy distinguishes how Strategy.GetOverride serves a property
// read: RequestAndWait issues RequestDevicePropValue and then reads the
// cache at once; it does not wait for the resulting PropValueChanged
// event, and when nothing is cached yet the read falls back to
// GetDevicePropValue. CacheOnly serves directly from whatever the cache
// already holds (set by prior polled events), never issuing a request of
// its own.
type AccessPolicy int

const (
	CacheOnly AccessPolicy = iota
	RequestAndWait
)

// NewRegistry builds the Canon EOS vendor registry: the generic base
// plus Canon's remote-control operations, per spec §4.E.
func NewRegistry() *ptp.Registry {
	generic := ptp.NewGenericRegistry()
	overrides := ptp.NewRegistry("canon-overrides")

	u32 := mustCodec(generic, ptp.CodecU32)

	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSetRemoteMode, Name: "SetRemoteMode", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{{Name: "mode", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSetEventMode, Name: "SetEventMode", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{{Name: "mode", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpGetEvent, Name: "CanonGetEventData", DataDirection: ptp.DirOut,
		DataCodec: newEventStreamCodec(),
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpRequestDevicePropValue, Name: "RequestDevicePropValue", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{{Name: "property_code", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpRemoteReleaseOn, Name: "RemoteReleaseOn", DataDirection: ptp.DirNone,
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpRemoteReleaseOff, Name: "RemoteReleaseOff", DataDirection: ptp.DirNone,
	})

	return ptp.NewVendorRegistry("canon", generic, overrides)
}

func mustCodec(r *ptp.Registry, name string) ptp.Codec {
	c, ok := r.Codec(name)
	if !ok {
		panic("ptp/canon: missing base codec " + name)
	}
	return c
}

// canonEventRecord is one parsed entry in a CanonGetEventData response:
// Canon packs a stream of (kind, property_code, value) tuples rather
// than the fixed 5-param EVENT container layout the generic engine
// decodes, per spec §4.I "Canon packs (property_code, value) tuples in
// the event payload".
type canonEventRecord struct {
	Kind         uint32
	PropertyCode uint32
	Value        uint32
}

// newEventStreamCodec decodes the Canon GetEventData payload: a
// sequence of variable-length records, each beginning with a u32 record
// size and u32 event type, such that property-change records carry a
// property code and value. Unknown record kinds are skipped using their
// declared size, matching the Custom codec policy for vendor formats
// not reducible to the generic Enum/Dataset/Array variants (spec §3,
// CodecDefinition "Custom" variant).
func newEventStreamCodec() ptp.Codec {
	const propValueChanged = 0xC189
	return ptp.NewCustomCodec("CanonEventStream",
		func(c *ptp.Cursor, value interface{}) error {
			return fmt.Errorf("ptp/canon: event stream is device-to-host only, encoding is not supported")
		},
		func(c *ptp.Cursor) (interface{}, error) {
			var records []canonEventRecord
			for c.Remaining() >= 8 {
				size, err := c.ReadU32()
				if err != nil {
					break
				}
				kind, err := c.ReadU32()
				if err != nil {
					break
				}
				remaining := int(size) - 8
				if remaining < 0 || remaining > c.Remaining() {
					break
				}
				if kind == propValueChanged && remaining >= 8 {
					code, _ := c.ReadU32()
					val, _ := c.ReadU32()
					records = append(records, canonEventRecord{Kind: kind, PropertyCode: code, Value: val})
					remaining -= 8
				}
				if remaining > 0 {
					if _, err := c.ReadBytes(remaining); err != nil {
						break
					}
				}
			}
			return records, nil
		},
	)
}

// Strategy implements ptp.VendorStrategy for Canon EOS cameras: the
// connect hook performs SetRemoteMode/SetEventMode, the event pump
// substitutes CanonGetEventData polling for the interrupt endpoint, and
// GetOverride reads through a property cache fed by polled
// PropValueChanged records, per the AccessPolicy assigned to each
// property code. Writes are not overridden and use the generic
// SetDevicePropValue path.
type Strategy struct {
	ptp.DefaultStrategy

	cache    *propertyCache
	policies map[uint16]AccessPolicy
	cam      *ptp.Camera
}

// NewStrategy builds a Canon strategy. policies maps property codes to
// their access policy; properties absent from the map default to
// CacheOnly.
func NewStrategy(policies map[uint16]AccessPolicy) *Strategy {
	return &Strategy{cache: newPropertyCache(), policies: policies}
}

func (s *Strategy) ConnectHook(ctx context.Context, cam *ptp.Camera) error {
	if _, err := cam.Send(ctx, "SetRemoteMode", map[string]interface{}{"mode": uint32(1)}, nil); err != nil {
		return fmt.Errorf("SetRemoteMode: %w", err)
	}
	if _, err := cam.Send(ctx, "SetEventMode", map[string]interface{}{"mode": uint32(1)}, nil); err != nil {
		return fmt.Errorf("SetEventMode: %w", err)
	}
	return nil
}

func (s *Strategy) GetOverride(ctx context.Context, cam *ptp.Camera, prop *ptp.PropertyDefinition) (interface{}, bool, error) {
	policy := s.policies[prop.Code]
	if policy == RequestAndWait {
		if _, err := cam.Send(ctx, "RequestDevicePropValue", map[string]interface{}{"property_code": uint32(prop.Code)}, nil); err != nil {
			return nil, true, err
		}
	}
	if v, ok := s.cache.get(prop.Code); ok {
		return v, true, nil
	}
	return nil, false, nil // fall back to GetDevicePropValue if nothing cached yet
}

// NewEventPump substitutes CanonGetEventData polling for the interrupt
// endpoint, per spec §4.H's Canon-EOS polling substitution, and feeds
// PropValueChanged records into the property cache as a side effect of
// draining each poll. The poll closure reaches the camera through s.cam,
// since NewEventPump receives no camera; callers must call
// AttachCamera(cam) immediately after ptp.NewCamera and before Connect.
func (s *Strategy) NewEventPump(transport ptp.Transport, registry *ptp.Registry, log ptp.Logger) *ptp.EventPump {
	return ptp.NewPollingEventPump(registry, log, s.poll, EventPollInterval)
}

// AttachCamera supplies the camera the poll loop issues
// CanonGetEventData through. Call this once, right after ptp.NewCamera
// and before Camera.Connect.
func (s *Strategy) AttachCamera(cam *ptp.Camera) { s.cam = cam }

func (s *Strategy) poll(ctx context.Context) ([]ptp.Event, error) {
	if s.cam == nil {
		return nil, fmt.Errorf("ptp/canon: strategy not attached to a camera")
	}
	res, err := s.cam.Send(ctx, "CanonGetEventData", nil, nil)
	if err != nil {
		return nil, err
	}
	records, _ := res.Decoded.([]canonEventRecord)
	var events []ptp.Event
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
	return events, nil
}
