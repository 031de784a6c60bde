package ptp

import "fmt"

// ContainerType identifies the four PTP container kinds, matching the
// teacher's USB_CONTAINER_* constants (mtp/types.go) bit-for-bit.
type ContainerType uint16

const (
	ContainerCommand  ContainerType = 1
	ContainerData     ContainerType = 2
	ContainerResponse ContainerType = 3
	ContainerEvent    ContainerType = 4
)

func (t ContainerType) String() string {
	switch t {
	case ContainerCommand:
		return "COMMAND"
	case ContainerData:
		return "DATA"
	case ContainerResponse:
		return "RESPONSE"
	case ContainerEvent:
		return "EVENT"
	default:
		return fmt.Sprintf("ContainerType(%d)", uint16(t))
	}
}

// headerLen is the fixed 12-byte PTP container header: length(4) +
// type(2) + code(2) + transaction ID(4).
const headerLen = 12

// maxParams bounds the fixed parameter array carried in COMMAND/RESPONSE
// containers, matching the teacher's usbBulkContainer.Param[5].
const maxParams = 5

// Container is the logical (decoded) form of a single PTP container. The
// teacher's Container (mtp/types.go) carries no explicit Type field since
// its wire type lives only in usbBulkHeader; this module exposes Type
// because DATA/RESPONSE disambiguation is caller-visible.
type Container struct {
	Type          ContainerType
	Code          uint16
	TransactionID uint32
	Param         []uint32
	Payload       []byte
}

// encodeHeader writes just the 12-byte fixed header for a container whose
// total length (header + params/payload) is totalLen.
func encodeHeader(totalLen uint32, typ ContainerType, code uint16, tid uint32) []byte {
	c := NewWriteCursor()
	c.WriteU32(totalLen)
	c.WriteU16(uint16(typ))
	c.WriteU16(code)
	c.WriteU32(tid)
	return c.Bytes()
}

// EncodeCommand encodes a COMMAND container: header + up to 5 uint32
// parameters, no payload.
func EncodeCommand(code uint16, tid uint32, params []uint32) ([]byte, error) {
	if len(params) > maxParams {
		return nil, &ValidationError{Field: "params", Reason: fmt.Sprintf("at most %d parameters, got %d", maxParams, len(params))}
	}
	total := uint32(headerLen + 4*len(params))
	buf := encodeHeader(total, ContainerCommand, code, tid)
	c := &Cursor{buf: buf}
	c.off = len(buf)
	for _, p := range params {
		c.WriteU32(p)
	}
	return c.buf, nil
}

// EncodeData encodes a DATA container carrying payload.
func EncodeData(code uint16, tid uint32, payload []byte) []byte {
	total := uint32(headerLen + len(payload))
	buf := encodeHeader(total, ContainerData, code, tid)
	return append(buf, payload...)
}

// DecodeContainerHeader parses the fixed 12-byte header from buf, which
// must be at least headerLen bytes.
func DecodeContainerHeader(buf []byte) (totalLen uint32, typ ContainerType, code uint16, tid uint32, err error) {
	if len(buf) < headerLen {
		return 0, 0, 0, 0, ShortRead(fmt.Sprintf("container header needs %d bytes, got %d", headerLen, len(buf)))
	}
	c := NewCursor(buf)
	totalLen, _ = c.ReadU32()
	t, _ := c.ReadU16()
	code, _ = c.ReadU16()
	tid, _ = c.ReadU32()
	return totalLen, ContainerType(t), code, tid, nil
}

// DecodeContainer parses a full container (header + body) from buf,
// classifying the body as either fixed uint32 parameters (COMMAND/
// RESPONSE/EVENT all carry a short parameter array, not a payload) or an
// opaque payload (DATA only), matching the teacher's decodeRep/fetchPacket
// split (mtp/mtp.go).
func DecodeContainer(buf []byte) (*Container, error) {
	totalLen, typ, code, tid, err := DecodeContainerHeader(buf)
	if err != nil {
		return nil, err
	}
	if totalLen < headerLen {
		return nil, &ProtocolError{Reason: fmt.Sprintf("container declares length %d, shorter than the %d-byte header", totalLen, headerLen)}
	}
	if int(totalLen) > len(buf) {
		return nil, ShortRead(fmt.Sprintf("container declares length %d, buffer has %d", totalLen, len(buf)))
	}
	body := buf[headerLen:totalLen]
	out := &Container{Type: typ, Code: code, TransactionID: tid}
	switch typ {
	case ContainerCommand, ContainerResponse, ContainerEvent:
		if len(body)%4 != 0 {
			return nil, &ProtocolError{Reason: fmt.Sprintf("parameter body length %d is not a multiple of 4", len(body))}
		}
		c := NewCursor(body)
		for c.Remaining() > 0 {
			p, _ := c.ReadU32()
			out.Param = append(out.Param, p)
		}
	default:
		out.Payload = body
	}
	return out, nil
}
