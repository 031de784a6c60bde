// Package usbtransport implements ptp.Transport over USB bulk and
// interrupt endpoints using github.com/google/gousb.
//
// Grounded on mtp/device_gousb.go's DeviceGoUSB: endpoint discovery and
// claiming in Open(), the MTP/PTP interface-class validation (including
// the Microsoft MTP extension string fallback for interface-less
// win8phones), and bulkTransferIn/Out as thin gousb.*Endpoint wrappers.
// dataPrint's debug-trace role is carried over as Logger.Debugf calls
// rather than a direct stderr hex dump.
package usbtransport

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/gousb"

	"github.com/hanwen/go-ptp/ptp"
)

// Transport implements ptp.Transport for one claimed PTP/MTP USB
// interface. Construct with Open, which performs the interface claim
// and endpoint discovery the teacher's DeviceGoUSB.Open does.
type Transport struct {
	ctx *gousb.Context
	dev *gousb.Device

	config gousb.Config
	iface  gousb.Interface

	sendEP  *gousb.OutEndpoint
	fetchEP *gousb.InEndpoint
	eventEP *gousb.InEndpoint

	iConfiguration, iInterface, iAltSetting int

	log ptp.Logger
}

// Option configures a Transport at construction time.
type Option func(*Transport)

// WithLogger attaches a Logger for USB-level trace output, grounded on
// DeviceGoUSB.Debug.{USB,Data} and dataPrint.
func WithLogger(log ptp.Logger) Option {
	return func(t *Transport) { t.log = log }
}

// Open claims configuration/interface/altSetting on dev and discovers
// its bulk-IN, bulk-OUT, and interrupt-IN endpoints, validating the PTP
// still-image interface class the way DeviceGoUSB.Open does.
func Open(usbCtx *gousb.Context, dev *gousb.Device, configuration, interfaceNum, altSetting int, opts ...Option) (*Transport, error) {
	t := &Transport{
		ctx: usbCtx, dev: dev,
		iConfiguration: configuration, iInterface: interfaceNum, iAltSetting: altSetting,
		log: ptp.NullLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	cfg, err := dev.Config(configuration)
	if err != nil {
		return nil, fmt.Errorf("usbtransport: failed to open configuration: %w", err)
	}
	t.config = *cfg

	iface, err := cfg.Interface(interfaceNum, altSetting)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("usbtransport: failed to open interface: %w", err)
	}
	t.iface = *iface

	ifaceDesc := iface.Setting

	var sendAddr, fetchAddr, eventAddr gousb.EndpointAddress
	for _, ep := range ifaceDesc.Endpoints {
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk:
			sendAddr = ep.Address
		case ep.Direction == gousb.EndpointDirectionIn && ep.TransferType == gousb.TransferTypeBulk:
			fetchAddr = ep.Address
		case ep.Direction == gousb.EndpointDirectionIn && ep.TransferType == gousb.TransferTypeInterrupt:
			eventAddr = ep.Address
		}
	}

	t.sendEP, err = iface.OutEndpoint(endpointNumber(sendAddr))
	if err != nil {
		t.closeLocked()
		return nil, fmt.Errorf("usbtransport: failed to open send endpoint: %w", err)
	}
	t.fetchEP, err = iface.InEndpoint(endpointNumber(fetchAddr))
	if err != nil {
		t.closeLocked()
		return nil, fmt.Errorf("usbtransport: failed to open fetch endpoint: %w", err)
	}
	if eventAddr != 0 {
		t.eventEP, err = iface.InEndpoint(endpointNumber(eventAddr))
		if err != nil {
			t.closeLocked()
			return nil, fmt.Errorf("usbtransport: failed to open event endpoint: %w", err)
		}
	}

	if ifaceDesc.Class != gousb.ClassPTP {
		// Some win8phones have no interface field; fall back to probing
		// the Microsoft MTP extension device-info string, exactly as
		// DeviceGoUSB.Open does for "len(d.ifaceDesc.AltSettings) == 0".
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		if !strings.Contains(strings.ToLower(manufacturer+product), "microsoft") {
			t.closeLocked()
			return nil, fmt.Errorf("usbtransport: interface has no MTP/PTP/Image class")
		}
	}

	return t, nil
}

// endpointNumber strips the direction bit (0x80) from a descriptor
// address: Interface.InEndpoint/OutEndpoint index by endpoint number,
// not by the full address byte.
func endpointNumber(addr gousb.EndpointAddress) int {
	return int(addr & 0x0f)
}

func (t *Transport) closeLocked() {
	if t.iface.Setting.Number != 0 || t.iface.Setting.Alternate != 0 {
		t.iface.Close()
	}
	t.config.Close()
}

func (t *Transport) Connect(ctx context.Context) error {
	return nil // claiming happens in Open; Connect is a no-op seam for symmetry with Disconnect.
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.iface.Close()
	if err := t.config.Close(); err != nil {
		return fmt.Errorf("usbtransport: failed to close configuration: %w", err)
	}
	return t.dev.Close()
}

func (t *Transport) Send(ctx context.Context, data []byte) error {
	t.log.Debugf("usbtransport: send %d bytes", len(data))
	n, err := t.sendEP.Write(data)
	if err != nil {
		if isStall(err) {
			return &ptp.StallError{Endpoint: ptp.EndpointBulkOut}
		}
		return err
	}
	if n != len(data) {
		return fmt.Errorf("usbtransport: short write, wrote %d of %d bytes", n, len(data))
	}
	return nil
}

func (t *Transport) Receive(ctx context.Context, maxLen int) ([]byte, error) {
	buf := make([]byte, maxLen)
	n, err := t.fetchEP.Read(buf)
	if err != nil {
		if isStall(err) {
			return nil, &ptp.StallError{Endpoint: ptp.EndpointBulkIn}
		}
		return nil, err
	}
	t.log.Debugf("usbtransport: receive %d bytes", n)
	return buf[:n], nil
}

func (t *Transport) ReceiveEvent(ctx context.Context) ([]byte, error) {
	if t.eventEP == nil {
		return nil, fmt.Errorf("usbtransport: device has no interrupt endpoint")
	}
	buf := make([]byte, t.eventEP.Desc.MaxPacketSize)
	n, err := t.eventEP.Read(buf)
	if err != nil {
		if isStall(err) {
			return nil, &ptp.StallError{Endpoint: ptp.EndpointInterrupt}
		}
		return nil, err
	}
	return buf[:n], nil
}

// ClassRequest issues a PIMA 15740 class-specific control transfer.
// The request codes and bmRequestType values follow Annex D; the
// underlying mechanism is the same one the teacher's cgo libusb binding
// exposes as DeviceHandle.ControlTransfer (usb/usb.go), here issued
// through gousb.Device.Control instead.
func (t *Transport) ClassRequest(ctx context.Context, kind ptp.ClassRequestKind, txnID uint32) (*ptp.DeviceStatus, error) {
	const (
		reqGetDeviceStatus = 0x67
		reqCancelRequest   = 0x64
		reqDeviceReset     = 0x66
	)
	switch kind {
	case ptp.ClassRequestGetStatus:
		buf := make([]byte, 32)
		n, err := t.dev.Control(0xA1 /* IN | class | interface */, reqGetDeviceStatus, 0, uint16(t.iface.Setting.Number), buf)
		if err != nil {
			return nil, err
		}
		if n < 4 {
			return nil, fmt.Errorf("usbtransport: Get_Device_Status response too short (%d bytes)", n)
		}
		code := uint16(buf[2]) | uint16(buf[3])<<8
		return &ptp.DeviceStatus{Code: code}, nil
	case ptp.ClassRequestCancelTxn:
		payload := make([]byte, 6)
		payload[0] = 0x64
		payload[2] = byte(txnID)
		payload[3] = byte(txnID >> 8)
		payload[4] = byte(txnID >> 16)
		payload[5] = byte(txnID >> 24)
		_, err := t.dev.Control(0x21 /* OUT | class | interface */, reqCancelRequest, 0, uint16(t.iface.Setting.Number), payload)
		return nil, err
	case ptp.ClassRequestGetExtendedEventData:
		return nil, fmt.Errorf("usbtransport: get_extended_event_data not implemented")
	default:
		_, err := t.dev.Control(0x21, reqDeviceReset, 0, uint16(t.iface.Setting.Number), nil)
		return nil, err
	}
}

// ClearHalt issues the standard CLEAR_FEATURE(ENDPOINT_HALT) control
// request on the endpoint matching ep, the USB 2.0 spec §9.4.1
// mechanism the teacher's own cgo libusb binding exposes as
// DeviceHandle.ClearHalt (usb/usb.go) — reimplemented here directly over
// gousb.Device.Control since gousb has no higher-level equivalent.
func (t *Transport) ClearHalt(ctx context.Context, ep ptp.Endpoint) error {
	const (
		reqTypeEndpointOut = 0x02 // host-to-device | standard | endpoint
		reqClearFeature    = 0x01
		featureEndpointHalt = 0x00
	)
	clear := func(addr gousb.EndpointAddress) error {
		_, err := t.dev.Control(reqTypeEndpointOut, reqClearFeature, featureEndpointHalt, uint16(addr), nil)
		return err
	}
	switch ep {
	case ptp.EndpointBulkIn:
		return clear(t.fetchEP.Desc.Address)
	case ptp.EndpointBulkOut:
		return clear(t.sendEP.Desc.Address)
	case ptp.EndpointInterrupt:
		if t.eventEP == nil {
			return nil
		}
		return clear(t.eventEP.Desc.Address)
	default:
		return fmt.Errorf("usbtransport: unknown endpoint %v", ep)
	}
}

func (t *Transport) IsLittleEndian() bool { return true }

// isStall reports whether err indicates the transfer completed with a
// STALL condition, as gousb reports it through the underlying libusb
// error string.
func isStall(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "stall")
}
