package ptp

import (
	"context"
	"fmt"
	"time"

	"github.com/paulbellamy/ratecounter"
	"go.uber.org/atomic"
)

// TransactionEngine drives the PTP request-data-response cycle over a
// Transport: assigns transaction IDs, handles STALL recovery, chunks
// large transfers, and enforces timeouts. Grounded on the teacher's
// runTransaction/RunTransaction (mtp/mtp.go, mtp/device_gousb.go) and its
// Catastrophic/SyncError failure types (mtp/device.go), generalized to
// spec §4.G including the STALL-recovery dance the teacher never
// implements explicitly (it resets the whole device on any USB error).
//
// The engine serializes every call through sem, a single-slot channel:
// this is the "single-producer/single-consumer per camera" queue of
// spec §5, without pulling in a separate worker goroutine — callers
// block in Execute until their turn, matching the teacher's style of one
// blocking call per operation.
type TransactionEngine struct {
	transport Transport
	registry  *Registry
	log       Logger

	sessionID atomic.Uint32
	nextTxnID atomic.Uint32
	sem       chan struct{}

	readTimeout time.Duration

	// rate tracks bulk-IN/OUT throughput over a trailing window, surfaced
	// through Camera.TransferRate for progress reporting during large
	// object transfers.
	rate *ratecounter.RateCounter
}

// NewTransactionEngine constructs an engine bound to transport and
// registry. The engine owns no session state until OpenSession succeeds.
func NewTransactionEngine(transport Transport, registry *Registry, log Logger) *TransactionEngine {
	if log == nil {
		log = NullLogger()
	}
	e := &TransactionEngine{
		transport:   transport,
		registry:    registry,
		log:         log,
		sem:         make(chan struct{}, 1),
		readTimeout: defaultReadTimeout,
		rate:        ratecounter.NewRateCounter(time.Second),
	}
	e.sem <- struct{}{}
	return e
}

// SetReadTimeout overrides the default 5s bulk-read timeout, spec §4.G
// "Timeout policy" ("GetObject commonly uses 30-50s").
func (e *TransactionEngine) SetReadTimeout(d time.Duration) { e.readTimeout = d }

// TransferRate returns the bulk-IN/OUT throughput, in bytes/second,
// averaged over the trailing second. Intended for progress reporting
// during large object transfers (GetObject/SendObject data phases).
func (e *TransactionEngine) TransferRate() int64 { return e.rate.Rate() }

// nextTransactionID returns the next transaction ID, skipping the
// reserved value 0 on wraparound, spec §3 "Transaction ID".
func (e *TransactionEngine) nextTransactionID() uint32 {
	for {
		v := e.nextTxnID.Inc()
		if v != 0 {
			return v
		}
	}
}

// Call is one Execute invocation's input: the resolved operation
// definition, its named parameter values, and (for data_direction=in)
// the payload to send.
type Call struct {
	Operation *OperationDefinition
	Params    map[string]interface{}
	// Payload is encoded via Operation.DataCodec when set, else sent as
	// raw bytes from PayloadBytes.
	Payload      interface{}
	PayloadBytes []byte
	Timeout      time.Duration
}

// Result is Execute's structured output, spec §2 data-flow step 6.
type Result struct {
	ResponseCode   uint16
	ResponseName   string
	Data           []byte
	Decoded        interface{}
	ResponseParams map[string]interface{}
	TransactionID  uint32
}

// Execute runs one full COMMAND/[DATA]/RESPONSE cycle for call,
// serialized against every other call on this engine.
func (e *TransactionEngine) Execute(ctx context.Context, call Call) (*Result, error) {
	select {
	case <-e.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { e.sem <- struct{}{} }()

	timeout := e.readTimeout
	if call.Timeout > 0 {
		timeout = call.Timeout
	}

	op := call.Operation
	var tid uint32
	if op.Name == "OpenSession" {
		tid = 0
	} else {
		tid = e.nextTransactionID()
	}

	params, err := encodeOperationParams(op, call.Params)
	if err != nil {
		return nil, err
	}

	cmd, err := EncodeCommand(op.Code, tid, params)
	if err != nil {
		return nil, err
	}

	e.log.Debugf("ptp: -> COMMAND %s (0x%04x) txn=%d params=%v", op.Name, op.Code, tid, params)
	if err := e.sendWithStallRetry(ctx, EndpointBulkOut, cmd); err != nil {
		return nil, err
	}

	result := &Result{TransactionID: tid, ResponseParams: map[string]interface{}{}}

	switch op.DataDirection {
	case DirIn:
		payload := call.PayloadBytes
		if op.DataCodec != nil && call.Payload != nil {
			c := NewWriteCursor()
			if err := op.DataCodec.Encode(c, call.Payload); err != nil {
				return nil, fmt.Errorf("ptp: encoding data phase for %s: %w", op.Name, err)
			}
			payload = c.Bytes()
		}
		data := EncodeData(op.Code, tid, payload)
		e.log.Debugf("ptp: -> DATA %s txn=%d len=%d", op.Name, tid, len(payload))
		if err := e.sendDataChunked(ctx, data); err != nil {
			return nil, err
		}
	case DirOut:
		dataContainer, err := e.readFullContainer(ctx, timeout)
		if err != nil {
			return nil, err
		}
		if dataContainer.Type != ContainerData {
			return nil, &ProtocolError{Reason: fmt.Sprintf("expected DATA container for %s, got %s", op.Name, dataContainer.Type)}
		}
		if dataContainer.TransactionID != tid {
			return nil, &ProtocolError{Reason: fmt.Sprintf("DATA transaction ID %d does not match COMMAND %d", dataContainer.TransactionID, tid)}
		}
		result.Data = dataContainer.Payload
		if op.DataCodec != nil {
			v, err := op.DataCodec.Decode(NewCursor(dataContainer.Payload))
			if err != nil {
				return nil, fmt.Errorf("ptp: decoding data phase for %s: %w", op.Name, err)
			}
			result.Decoded = v
		}
	}

	respContainer, err := e.readFullContainer(ctx, timeout)
	if err != nil {
		return nil, err
	}
	if respContainer.Type != ContainerResponse {
		return nil, &ProtocolError{Reason: fmt.Sprintf("expected RESPONSE container for %s, got %s", op.Name, respContainer.Type)}
	}
	if respContainer.TransactionID != tid {
		return nil, &ProtocolError{Reason: fmt.Sprintf("RESPONSE transaction ID %d does not match COMMAND %d", respContainer.TransactionID, tid)}
	}

	result.ResponseCode = respContainer.Code
	if rd, ok := e.registry.Response(respContainer.Code); ok {
		result.ResponseName = rd.Name
	}
	for i, pd := range op.ResponseParams {
		if i < len(respContainer.Param) {
			result.ResponseParams[pd.Name] = respContainer.Param[i]
		}
	}

	if op.Name == "OpenSession" && respContainer.Code == RespOK {
		if sid, ok := call.Params["session_id"]; ok {
			e.sessionID.Store(toU32(sid))
		}
	}

	if respContainer.Code != RespOK {
		return result, &DeviceError{ResponseCode: respContainer.Code, Name: result.ResponseName}
	}
	return result, nil
}

// encodeOperationParams resolves named call.Params into the fixed
// 5-slot uint32 parameter array a COMMAND container carries, spec §4.C
// "COMMAND payload = N x u32 parameters (N <= 5)".
func encodeOperationParams(op *OperationDefinition, values map[string]interface{}) ([]uint32, error) {
	if len(op.OperationParams) > maxParams {
		return nil, &ValidationError{Field: op.Name, Reason: fmt.Sprintf("operation declares %d parameters, max is %d", len(op.OperationParams), maxParams)}
	}
	out := make([]uint32, 0, len(op.OperationParams))
	for _, pd := range op.OperationParams {
		v, present := values[pd.Name]
		if !present {
			if pd.Required {
				return nil, &ValidationError{Field: pd.Name, Reason: "required parameter missing"}
			}
			if pd.DefaultValue != nil {
				v = pd.DefaultValue
			} else {
				v = uint32(0)
			}
		}
		if pd.Validate != nil {
			if err := pd.Validate(v); err != nil {
				return nil, &ValidationError{Field: pd.Name, Reason: err.Error()}
			}
		}
		slot, err := encodeParamSlot(pd.Codec, v)
		if err != nil {
			return nil, fmt.Errorf("ptp: encoding parameter %q: %w", pd.Name, err)
		}
		out = append(out, slot)
	}
	return out, nil
}

// encodeParamSlot encodes value through codec and zero-extends the
// result (little-endian) into a 32-bit slot, since every operation
// parameter occupies one full slot regardless of its declared width.
func encodeParamSlot(codec Codec, value interface{}) (uint32, error) {
	c := NewWriteCursor()
	if err := codec.Encode(c, value); err != nil {
		return 0, err
	}
	b := c.Bytes()
	if len(b) > 4 {
		return 0, fmt.Errorf("ptp: parameter codec produced %d bytes, exceeds one 32-bit slot", len(b))
	}
	var padded [4]byte
	copy(padded[:], b)
	return byteOrder.Uint32(padded[:]), nil
}

// sendWithStallRetry sends data on the bulk-OUT endpoint, recovering
// from a single STALL and retrying once, spec §4.G "Any step may
// transition to STALL_RECOVERY... retry the step at most once".
func (e *TransactionEngine) sendWithStallRetry(ctx context.Context, ep Endpoint, data []byte) error {
	err := e.transport.Send(ctx, data)
	if err == nil {
		e.rate.Incr(int64(len(data)))
		return nil
	}
	if se, ok := err.(*StallError); ok {
		if rerr := e.recoverStall(ctx, se.Endpoint); rerr != nil {
			return &TransportError{Op: "send", Err: rerr}
		}
		if err := e.transport.Send(ctx, data); err != nil {
			return &TransportError{Op: "send (retry after stall)", Err: err}
		}
		e.rate.Incr(int64(len(data)))
		return nil
	}
	return &TransportError{Op: "send", Err: err}
}

// sendDataChunked writes data in bulkChunkSize pieces for transfers over
// 1MiB, spec §4.G "Chunked large transfers".
func (e *TransactionEngine) sendDataChunked(ctx context.Context, data []byte) error {
	if len(data) <= 1<<20 {
		return e.sendWithStallRetry(ctx, EndpointBulkOut, data)
	}
	for off := 0; off < len(data); off += bulkChunkSize {
		end := off + bulkChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := e.sendWithStallRetry(ctx, EndpointBulkOut, data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// receiveChunk performs one bulk-IN read with STALL recovery, applying
// timeout via ctx.
func (e *TransactionEngine) receiveChunk(ctx context.Context, timeout time.Duration, maxLen int) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	buf, err := e.transport.Receive(cctx, maxLen)
	if err == nil {
		e.rate.Incr(int64(len(buf)))
		return buf, nil
	}
	if cctx.Err() != nil {
		if cerr := e.cancelTransaction(ctx); cerr != nil {
			e.log.Warnf("ptp: cancel request after timeout failed: %v", cerr)
		}
		return nil, &TransportError{Op: "receive (timeout)", Err: cctx.Err()}
	}
	if se, ok := err.(*StallError); ok {
		if rerr := e.recoverStall(ctx, se.Endpoint); rerr != nil {
			return nil, &TransportError{Op: "receive", Err: rerr}
		}
		buf, err = e.transport.Receive(ctx, maxLen)
		if err != nil {
			return nil, &TransportError{Op: "receive (retry after stall)", Err: err}
		}
		e.rate.Incr(int64(len(buf)))
		return buf, nil
	}
	return nil, &TransportError{Op: "receive", Err: err}
}

// readFullContainer reads one container, issuing further bulk-IN reads
// until container.length bytes have arrived or a short packet
// terminates the transfer, spec §4.C "Large data containers may span
// many bulk reads".
func (e *TransactionEngine) readFullContainer(ctx context.Context, timeout time.Duration) (*Container, error) {
	first, err := e.receiveChunk(ctx, timeout, bulkChunkSize)
	if err != nil {
		return nil, err
	}
	if len(first) < headerLen {
		return nil, &ProtocolError{Reason: "short initial read, fewer than 12 header bytes"}
	}
	totalLen, _, _, _, err := DecodeContainerHeader(first)
	if err != nil {
		return nil, err
	}
	buf := append([]byte{}, first...)
	lastChunkLen := len(first)
	for uint32(len(buf)) < totalLen && lastChunkLen == bulkChunkSize {
		chunk, err := e.receiveChunk(ctx, timeout, bulkChunkSize)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
		lastChunkLen = len(chunk)
	}
	if uint32(len(buf)) < totalLen {
		return nil, &ProtocolError{Reason: fmt.Sprintf("container declared %d bytes, only received %d before short packet", totalLen, len(buf))}
	}
	return DecodeContainer(buf)
}

// cancelTransaction issues Cancel_Request (class control 0x64), spec §5
// "Cancellation issues Cancel_Request... then aborts the local read".
func (e *TransactionEngine) cancelTransaction(ctx context.Context) error {
	_, err := e.transport.ClassRequest(ctx, ClassRequestCancelTxn, e.nextTxnID.Load())
	return err
}

// recoverStall implements the PIMA 15740 §D.7.2.1 STALL recovery dance,
// spec §4.G "STALL recovery".
func (e *TransactionEngine) recoverStall(ctx context.Context, ep Endpoint) error {
	e.log.Warnf("ptp: recovering from STALL on endpoint %v", ep)

	if _, err := e.transport.ClassRequest(ctx, ClassRequestGetStatus, 0); err != nil {
		return fmt.Errorf("get_device_status: %w", err)
	}

	if ep == EndpointInterrupt {
		if err := e.transport.ClearHalt(ctx, EndpointInterrupt); err != nil {
			return fmt.Errorf("clear_halt(interrupt): %w", err)
		}
	} else {
		if err := e.transport.ClearHalt(ctx, EndpointBulkIn); err != nil {
			return fmt.Errorf("clear_halt(bulk-in): %w", err)
		}
		if err := e.transport.ClearHalt(ctx, EndpointBulkOut); err != nil {
			return fmt.Errorf("clear_halt(bulk-out): %w", err)
		}
	}

	for attempt := 0; attempt < stallPollMaxAttempts; attempt++ {
		status, err := e.transport.ClassRequest(ctx, ClassRequestGetStatus, 0)
		if err == nil && status != nil && status.Code == RespOK {
			return nil
		}
		select {
		case <-time.After(stallPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("StallRecoveryFailed: device status did not reach OK after %d polls", stallPollMaxAttempts)
}
