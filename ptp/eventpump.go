package ptp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Event is a decoded EVENT container delivered to handlers, spec §3
// EventDefinition and §4.H.
type Event struct {
	Code          uint16
	Name          string
	TransactionID uint32
	Params        map[string]interface{}
	Raw           []byte
}

// EventHandler receives decoded events. Handlers run synchronously from
// the pump and must not block, spec §4.H.
type EventHandler func(Event)

// PollFunc is substituted for interrupt-endpoint reads by vendors whose
// cameras deliver events only through a polling operation (Canon EOS'
// CanonGetEventData), spec §4.H "Vendors... MAY substitute a polling
// loop". Grounded on the teacher's MutableTicker-driven workerAF/workerLV
// loops (mtp/server.go, mtp/time.go).
type PollFunc func(ctx context.Context) ([]Event, error)

// EventPump is the long-running interrupt-endpoint reader described in
// spec §4.H. It has no equivalent in the teacher (hanwen-go-mtpfs's MTP
// devices are polled via LVServer's tickers, not interrupt events); its
// persistent-read/cancel lifecycle is grounded on LVServer.Run's
// errgroup-of-workers shape and MutableTicker's is_listening-style atomic
// flag.
type EventPump struct {
	transport Transport
	registry  *Registry
	log       Logger

	listening atomic.Bool
	done      chan struct{}

	handlersMu sync.Mutex
	handlers   map[string][]EventHandler

	poll         PollFunc
	pollInterval time.Duration
}

// NewEventPump builds a pump that reads interrupt containers directly
// from transport. Use NewPollingEventPump for vendors that substitute a
// polling operation instead.
func NewEventPump(transport Transport, registry *Registry, log Logger) *EventPump {
	if log == nil {
		log = NullLogger()
	}
	return &EventPump{
		transport: transport,
		registry:  registry,
		log:       log,
		done:      make(chan struct{}),
		handlers:  map[string][]EventHandler{},
	}
}

// NewPollingEventPump builds a pump that calls poll at interval instead
// of reading the interrupt endpoint, spec §4.H polling substitution.
func NewPollingEventPump(registry *Registry, log Logger, poll PollFunc, interval time.Duration) *EventPump {
	p := NewEventPump(nil, registry, log)
	p.poll = poll
	p.pollInterval = interval
	return p
}

// On registers handler for eventName. It may be called before or after
// Run starts.
func (p *EventPump) On(eventName string, handler EventHandler) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers[eventName] = append(p.handlers[eventName], handler)
}

// Off removes all handlers registered for eventName.
func (p *EventPump) Off(eventName string) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	delete(p.handlers, eventName)
}

// Run drives the pump until ctx is cancelled or Stop is called. It
// never returns an error for a single malformed EVENT container — those
// are logged and skipped, spec §4.H "never propagates decode errors to
// handlers" — but does return ctx.Err() on cancellation.
func (p *EventPump) Run(ctx context.Context) error {
	p.listening.Store(true)
	defer p.listening.Store(false)

	if p.poll != nil {
		return p.runPolling(ctx)
	}
	return p.runInterrupt(ctx)
}

func (p *EventPump) runInterrupt(ctx context.Context) error {
	for p.listening.Load() {
		buf, err := p.transport.ReceiveEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !p.listening.Load() {
				return nil
			}
			p.log.Warnf("ptp: event pump read failed: %v", err)
			continue
		}
		evt, err := p.decodeEvent(buf)
		if err != nil {
			p.log.Warnf("ptp: failed to decode EVENT container: %v", err)
			continue
		}
		p.dispatch(*evt)
	}
	return nil
}

func (p *EventPump) runPolling(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for p.listening.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events, err := p.poll(ctx)
			if err != nil {
				p.log.Warnf("ptp: event poll failed: %v", err)
				continue
			}
			for _, evt := range events {
				p.dispatch(evt)
			}
		}
	}
	return nil
}

// Stop clears the listening flag; callers must additionally issue
// ClearHalt(EndpointInterrupt) on the transport (or cancel ctx) to force
// a pending interrupt read to return, spec §4.H "Cancellation".
func (p *EventPump) Stop() {
	p.listening.Store(false)
}

func (p *EventPump) decodeEvent(buf []byte) (*Event, error) {
	container, err := DecodeContainer(buf)
	if err != nil {
		return nil, err
	}
	if container.Type != ContainerEvent {
		return nil, &ProtocolError{Reason: fmt.Sprintf("expected EVENT container, got %s", container.Type)}
	}
	evt := &Event{Code: container.Code, TransactionID: container.TransactionID, Raw: buf, Params: map[string]interface{}{}}
	def, known := p.registry.EventByCode(container.Code)
	if known {
		evt.Name = def.Name
	} else {
		evt.Name = fmt.Sprintf("Unknown(0x%04x)", container.Code)
	}
	// Every slot the device actually sent is surfaced, named where the
	// definition declares it and positionally otherwise, since a device
	// may fill more of the up-to-5 param slots than the definition names
	// (spec §3 EventDefinition.Params documents the common case, not a
	// hard limit on what a device sends).
	for i, v := range container.Param {
		if known && i < len(def.Params) {
			evt.Params[def.Params[i].Name] = v
			continue
		}
		evt.Params[fmt.Sprintf("param%d", i)] = v
	}
	return evt, nil
}

func (p *EventPump) dispatch(evt Event) {
	p.handlersMu.Lock()
	handlers := append([]EventHandler{}, p.handlers[evt.Name]...)
	p.handlersMu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}
