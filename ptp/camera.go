package ptp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// VendorStrategy is the composition seam vendor façades (ptp/sony,
// ptp/canon, ptp/nikon) implement instead of subclassing Camera, spec §9
// Design Note "Vendor strategy composition" / §4.I "Vendor façades...
// subclass by composition". Grounded on the teacher's Nikon-specific
// LVServer methods (startLiveView, autoFocus, getLiveViewImgInner in
// mtp/server.go) generalized into a narrow capability interface.
type VendorStrategy interface {
	// ConnectHook runs after OpenSession succeeds (Sony SDIO connect
	// phases 1/2/3, Canon SetRemoteMode/SetEventMode).
	ConnectHook(ctx context.Context, cam *Camera) error
	// DisconnectHook runs before CloseSession.
	DisconnectHook(ctx context.Context, cam *Camera) error
	// GetOverride lets a vendor serve a property read through a
	// non-standard path (Canon's event-cache). handled=false means use the
	// generic GetDevicePropValue path.
	GetOverride(ctx context.Context, cam *Camera, prop *PropertyDefinition) (value interface{}, handled bool, err error)
	// SetOverride is GetOverride's write-side counterpart.
	SetOverride(ctx context.Context, cam *Camera, prop *PropertyDefinition, value interface{}) (handled bool, err error)
	// NewEventPump lets a vendor substitute a polling pump (Canon EOS)
	// in place of the default interrupt-endpoint pump.
	NewEventPump(transport Transport, registry *Registry, log Logger) *EventPump
}

// DefaultStrategy implements VendorStrategy with no overrides; vendor
// packages embed it and override only the methods they need.
type DefaultStrategy struct{}

func (DefaultStrategy) ConnectHook(ctx context.Context, cam *Camera) error    { return nil }
func (DefaultStrategy) DisconnectHook(ctx context.Context, cam *Camera) error { return nil }
func (DefaultStrategy) GetOverride(ctx context.Context, cam *Camera, prop *PropertyDefinition) (interface{}, bool, error) {
	return nil, false, nil
}
func (DefaultStrategy) SetOverride(ctx context.Context, cam *Camera, prop *PropertyDefinition, value interface{}) (bool, error) {
	return false, nil
}
func (DefaultStrategy) NewEventPump(transport Transport, registry *Registry, log Logger) *EventPump {
	return NewEventPump(transport, registry, log)
}

// Camera is the per-vendor-class façade wiring registry + transaction
// engine + event pump, spec §4.I. Grounded on the teacher's LVServer
// (mtp/server.go), which holds a Device, a logger, and a
// context.Context and runs a worker set via errgroup; Camera plays that
// role generically, with vendor-specific behavior supplied by a
// VendorStrategy rather than a hard-coded Nikon implementation.
type Camera struct {
	transport Transport
	registry  *Registry
	strategy  VendorStrategy
	log       Logger

	Engine *TransactionEngine
	pump   *EventPump

	eg     *errgroup.Group
	cancel context.CancelFunc

	sessionID uint32
	connected bool
}

// NewCamera wires transport, registry, and strategy into an unconnected
// façade. strategy may be nil, in which case DefaultStrategy is used.
func NewCamera(transport Transport, registry *Registry, strategy VendorStrategy, log Logger) *Camera {
	if log == nil {
		log = NullLogger()
	}
	if strategy == nil {
		strategy = DefaultStrategy{}
	}
	return &Camera{
		transport: transport,
		registry:  registry,
		strategy:  strategy,
		log:       log,
		Engine:    NewTransactionEngine(transport, registry, log),
	}
}

// Connect opens the transport, issues OpenSession, runs the vendor
// handshake, and starts the event pump, spec §4.I "connect".
func (cam *Camera) Connect(ctx context.Context, sessionID uint32) error {
	if err := cam.transport.Connect(ctx); err != nil {
		return &TransportError{Op: "connect", Err: err}
	}

	op, ok := cam.registry.Operation("OpenSession")
	if !ok {
		return &UnknownCodeError{Kind: "operation", Key: "OpenSession"}
	}
	if _, err := cam.Engine.Execute(ctx, Call{Operation: op, Params: map[string]interface{}{"session_id": sessionID}}); err != nil {
		return err
	}
	cam.sessionID = sessionID
	cam.connected = true

	if err := cam.strategy.ConnectHook(ctx, cam); err != nil {
		return fmt.Errorf("ptp: vendor connect handshake failed: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	cam.cancel = cancel
	cam.pump = cam.strategy.NewEventPump(cam.transport, cam.registry, cam.log)
	eg, _ := errgroup.WithContext(pumpCtx)
	cam.eg = eg
	eg.Go(func() error {
		if err := cam.pump.Run(pumpCtx); err != nil && pumpCtx.Err() == nil {
			cam.log.Errorf("ptp: event pump exited: %v", err)
			return err
		}
		return nil
	})
	return nil
}

// Disconnect stops the event pump, closes the session, and closes the
// transport, spec §4.I "disconnect".
func (cam *Camera) Disconnect(ctx context.Context) error {
	if !cam.connected {
		return nil
	}
	if err := cam.strategy.DisconnectHook(ctx, cam); err != nil {
		cam.log.Warnf("ptp: vendor disconnect hook failed: %v", err)
	}

	if cam.pump != nil {
		cam.pump.Stop()
	}
	if cam.cancel != nil {
		cam.cancel()
	}
	if cam.eg != nil {
		_ = cam.eg.Wait()
	}

	if op, ok := cam.registry.Operation("CloseSession"); ok {
		if _, err := cam.Engine.Execute(ctx, Call{Operation: op}); err != nil {
			cam.log.Warnf("ptp: CloseSession failed: %v", err)
		}
	}
	cam.connected = false
	return cam.transport.Disconnect(ctx)
}

// Send resolves opName in the active registry and runs it through the
// engine, spec §4.I "send".
func (cam *Camera) Send(ctx context.Context, opName string, params map[string]interface{}, payload interface{}) (*Result, error) {
	if !cam.connected {
		return nil, &ProtocolError{Reason: "camera not connected"}
	}
	op, ok := cam.registry.Operation(opName)
	if !ok {
		return nil, &UnknownCodeError{Kind: "operation", Key: opName}
	}
	return cam.Engine.Execute(ctx, Call{Operation: op, Params: params, Payload: payload})
}

// Get reads a property, preferring the vendor strategy's override path,
// spec §4.I "get".
func (cam *Camera) Get(ctx context.Context, propName string) (interface{}, error) {
	prop, ok := cam.registry.Property(propName)
	if !ok {
		return nil, &UnknownCodeError{Kind: "property", Key: propName}
	}
	if v, handled, err := cam.strategy.GetOverride(ctx, cam, prop); handled || err != nil {
		return v, err
	}

	getOp, ok := cam.registry.Operation("GetDevicePropValue")
	if !ok {
		return nil, &UnknownCodeError{Kind: "operation", Key: "GetDevicePropValue"}
	}
	res, err := cam.Engine.Execute(ctx, Call{Operation: getOp, Params: map[string]interface{}{"property_code": prop.Code}})
	if err != nil {
		return nil, err
	}
	if prop.Codec == nil {
		return res.Data, nil
	}
	return prop.Codec.Decode(NewCursor(res.Data))
}

// GetDescriptor fetches a property's runtime PropertyDescriptor (form,
// default/current value, range or enumerated bounds) via
// GetDevicePropDesc, spec §3 "Runtime PropertyDescriptor".
func (cam *Camera) GetDescriptor(ctx context.Context, propName string) (*PropertyDescriptor, error) {
	prop, ok := cam.registry.Property(propName)
	if !ok {
		return nil, &UnknownCodeError{Kind: "property", Key: propName}
	}
	descOp, ok := cam.registry.Operation("GetDevicePropDesc")
	if !ok {
		return nil, &UnknownCodeError{Kind: "operation", Key: "GetDevicePropDesc"}
	}
	res, err := cam.Engine.Execute(ctx, Call{Operation: descOp, Params: map[string]interface{}{"property_code": prop.Code}})
	if err != nil {
		return nil, err
	}
	desc, ok := res.Decoded.(*PropertyDescriptor)
	if !ok {
		return nil, fmt.Errorf("ptp: GetDevicePropDesc returned %T, want *PropertyDescriptor", res.Decoded)
	}
	return desc, nil
}

// Set writes a property, preferring the vendor strategy's override
// path, spec §4.I "set". Fails with a *ValidationError carrying reason
// "NotWritable" when the property's access is Get-only.
func (cam *Camera) Set(ctx context.Context, propName string, value interface{}) error {
	prop, ok := cam.registry.Property(propName)
	if !ok {
		return &UnknownCodeError{Kind: "property", Key: propName}
	}
	if prop.Access == AccessGet {
		return &ValidationError{Field: propName, Reason: "NotWritable"}
	}
	if handled, err := cam.strategy.SetOverride(ctx, cam, prop, value); handled || err != nil {
		return err
	}

	setOp, ok := cam.registry.Operation("SetDevicePropValue")
	if !ok {
		return &UnknownCodeError{Kind: "operation", Key: "SetDevicePropValue"}
	}
	var payloadBytes []byte
	if prop.Codec != nil {
		c := NewWriteCursor()
		if err := prop.Codec.Encode(c, value); err != nil {
			return &ValidationError{Field: propName, Reason: err.Error()}
		}
		payloadBytes = c.Bytes()
	}
	_, err := cam.Engine.Execute(ctx, Call{Operation: setOp, Params: map[string]interface{}{"property_code": prop.Code}, PayloadBytes: payloadBytes})
	return err
}

// On registers an event handler keyed by symbolic event name.
func (cam *Camera) On(eventName string, handler EventHandler) {
	if cam.pump != nil {
		cam.pump.On(eventName, handler)
	}
}

// Off removes all handlers registered for eventName.
func (cam *Camera) Off(eventName string) {
	if cam.pump != nil {
		cam.pump.Off(eventName)
	}
}

// Registry exposes the active (possibly vendor-merged) registry, so
// callers can introspect definitions before calling Send/Get/Set.
func (cam *Camera) Registry() *Registry { return cam.registry }

// TransferRate returns the current bulk-IN/OUT throughput in
// bytes/second, for callers that want to display progress during a
// large GetObject/SendObject data phase.
func (cam *Camera) TransferRate() int64 { return cam.Engine.TransferRate() }
