package ptp

import (
	"context"
	"time"
)

// Endpoint identifies one of the three endpoints a PTP-over-USB
// interface exposes, for ClearHalt/class-request targeting.
type Endpoint int

const (
	EndpointBulkIn Endpoint = iota
	EndpointBulkOut
	EndpointInterrupt
)

// ClassRequestKind enumerates the PIMA 15740 class-specific control
// requests the engine issues, spec §6 "class_request contract".
type ClassRequestKind int

const (
	ClassRequestReset ClassRequestKind = iota
	ClassRequestCancelTxn
	ClassRequestGetStatus
	ClassRequestGetExtendedEventData
)

// DeviceStatus is the decoded result of a Get_Device_Status class
// request, used by STALL recovery (spec §4.G).
type DeviceStatus struct {
	Code           uint16
	StalledEndpoints []Endpoint
}

// Transport is the boundary the core consumes from the USB collaborator,
// spec §4.F/§6. Grounded on the teacher's Device interface
// (mtp/device.go), which already separates the USB backend behind an
// interface; this generalizes that seam to the spec's named contract.
// Implementations must be safe for one concurrent Send/Receive pair (the
// engine) plus one concurrent interrupt read (the event pump).
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Send performs one bulk-OUT transfer of the full buffer.
	Send(ctx context.Context, data []byte) error
	// Receive performs one bulk-IN transfer, returning up to maxLen
	// bytes; may return fewer on a short packet.
	Receive(ctx context.Context, maxLen int) ([]byte, error)

	// ReceiveEvent performs one interrupt-IN transfer, blocking until a
	// container arrives, ctx is cancelled, or ClearHalt(EndpointInterrupt)
	// forces the pending read to complete.
	ReceiveEvent(ctx context.Context) ([]byte, error)

	ClassRequest(ctx context.Context, kind ClassRequestKind, txnID uint32) (*DeviceStatus, error)
	ClearHalt(ctx context.Context, ep Endpoint) error

	IsLittleEndian() bool
}

// defaultReadTimeout and stallPollInterval ground the engine's
// timing policy, spec §4.G "Timeout policy" and "STALL recovery" step 3.
const (
	defaultReadTimeout     = 5 * time.Second
	stallPollInterval      = 50 * time.Millisecond
	stallPollMaxAttempts   = 10
	bulkChunkSize          = 64 * 1024
)
