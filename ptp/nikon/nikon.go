// Package nikon provides the Nikon DSLR vendor registry and camera
// façade strategy: live-view start/stop/frame capture and autofocus
// drive, layered over the generic PTP registry.
//
// Grounded on mtp/nikon.go (OC_NIKON_AfDrive, LVHeaderSize, Rotation/AF
// enums) and mtp/server.go's LVServer Nikon-specific methods
// (startLiveView, endLiveView, getLiveViewStatus, autoFocus,
// getLiveViewImgInner), generalized from LVServer's hard-coded Nikon
// support into the ptp.VendorStrategy composition seam.
package nikon

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hanwen/go-ptp/ptp"
)

// Operation codes specific to Nikon's MTP extension, matching
// mtp/const.go's OC_NIKON_* block.
const (
	OpAfDrive       = 0x90C1
	OpGetPreviewImg = 0x9200
	OpStartLiveView = 0x9201
	OpEndLiveView   = 0x9202
	OpGetLiveViewImg = 0x9203
	OpMfDrive       = 0x9204
	OpChangeAfArea  = 0x9205
	OpAfDriveCancel = 0x9206
)

// Response codes specific to Nikon cameras.
const (
	RespNotLiveView = 0xA00B
)

// Property codes specific to Nikon cameras, matching mtp/const.go's
// DPC_NIKON_LiveView* block.
const (
	PropLiveViewStatus = 0xD1A2
)

// liveViewHeaderSize is the fixed binary header preceding the JPEG
// payload in a GetLiveViewImg response, matching the teacher's
// LVHeaderSize (mtp/nikon.go).
const liveViewHeaderSize = 384

// Rotation mirrors the teacher's Rotation type (mtp/nikon.go):
// orientation hint carried in the live-view header.
type Rotation int

const (
	Rotation0       Rotation = 0
	Rotation90      Rotation = 90
	RotationMinus90 Rotation = -90
	Rotation180     Rotation = 180
)

// AFResult mirrors the teacher's AF type (mtp/nikon.go): autofocus drive
// outcome carried in the live-view header.
type AFResult int

const (
	AFNotActive AFResult = 0
	AFFail      AFResult = 1
	AFSuccess   AFResult = 2
)

// LiveViewFrame is the decoded form of a GetLiveViewImg response:
// header fields plus the raw JPEG bytes, grounded on the teacher's
// liveViewRaw/LiveView structs and getLiveViewImgInner (mtp/server.go).
type LiveViewFrame struct {
	Rotation        Rotation
	AF              AFResult
	MovieTimeRemain float64
	JPEG            []byte
}

// NewRegistry builds the Nikon vendor registry: the generic base plus
// Nikon's AfDrive/live-view operations and properties, per spec §4.E.
func NewRegistry() *ptp.Registry {
	generic := ptp.NewGenericRegistry()
	overrides := ptp.NewRegistry("nikon-overrides")

	u32 := mustCodec(generic, ptp.CodecU32)
	u16 := mustCodec(generic, ptp.CodecU16)

	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpAfDrive, Name: "AfDrive", DataDirection: ptp.DirNone,
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpStartLiveView, Name: "StartLiveView", DataDirection: ptp.DirNone,
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpEndLiveView, Name: "EndLiveView", DataDirection: ptp.DirNone,
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpGetLiveViewImg, Name: "GetLiveViewImg", DataDirection: ptp.DirOut,
		DataCodec: newLiveViewCodec(),
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpMfDrive, Name: "MfDrive", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{{Name: "direction", Codec: u32, Required: true}, {Name: "amount", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpAfDriveCancel, Name: "AfDriveCancel", DataDirection: ptp.DirNone,
	})

	overrides.AddProperty(&ptp.PropertyDefinition{
		Code: PropLiveViewStatus, Name: "LiveViewStatus", DataType: 0x0002, Codec: u16, Access: ptp.AccessGet,
	})

	overrides.AddResponse(&ptp.ResponseDefinition{Code: RespNotLiveView, Name: "NIKON_NotLiveView"})

	return ptp.NewVendorRegistry("nikon", generic, overrides)
}

func mustCodec(r *ptp.Registry, name string) ptp.Codec {
	c, ok := r.Codec(name)
	if !ok {
		panic("ptp/nikon: missing base codec " + name)
	}
	return c
}

// newLiveViewCodec builds the Custom codec for GetLiveViewImg's data
// phase: a fixed binary header (rotation, AF result, movie time
// remaining) followed by a raw JPEG payload. Grounded on
// getLiveViewImgInner (mtp/server.go), which binary.Reads a big-endian
// header at raw[8:LVHeaderSize] and treats raw[LVHeaderSize:] as JPEG.
func newLiveViewCodec() ptp.Codec {
	return ptp.NewCustomCodec("NikonLiveViewFrame",
		func(c *ptp.Cursor, value interface{}) error {
			return fmt.Errorf("ptp/nikon: live-view frames are device-to-host only, encoding is not supported")
		},
		func(c *ptp.Cursor) (interface{}, error) {
			raw := c.Bytes()[c.Offset():]
			if len(raw) < liveViewHeaderSize {
				return nil, fmt.Errorf("ptp/nikon: live-view payload %d bytes, shorter than header %d", len(raw), liveViewHeaderSize)
			}
			// Unlike every other PTP wire structure, this particular
			// header is big-endian on the device, matching the
			// teacher's binary.Read(..., binary.BigEndian, &lvr).
			header := raw[8:liveViewHeaderSize]
			rot := int32(binary.BigEndian.Uint32(header[0:4]))
			af := int32(binary.BigEndian.Uint32(header[4:8]))
			movieSec := int32(binary.BigEndian.Uint32(header[8:12]))
			movieFrac := int32(binary.BigEndian.Uint32(header[12:16]))
			frame := &LiveViewFrame{
				Rotation:        Rotation(rot),
				AF:              AFResult(af),
				MovieTimeRemain: parseMovieTime(movieSec, movieFrac),
				JPEG:            append([]byte{}, raw[liveViewHeaderSize:]...),
			}
			return frame, nil
		},
	)
}

// parseMovieTime mirrors the teacher's odd strconv.ParseFloat(fmt.
// Sprintf("%d.%d", sec, frac)) construction in getLiveViewImgInner,
// which treats the two header fields as the integer and fractional
// parts of a single decimal seconds count rather than as a fixed-point
// pair.
func parseMovieTime(sec, frac int32) float64 {
	whole := float64(sec)
	fraction := float64(frac)
	for fraction >= 1 {
		fraction /= 10
	}
	if sec < 0 {
		return whole - fraction
	}
	return whole + fraction
}

// Strategy implements ptp.VendorStrategy for Nikon cameras: autofocus
// and live-view are exposed as package-level functions taking a
// *ptp.Camera (StartLiveView, CaptureLiveViewFrame, AfDrive) rather than through the generic
// get/set property surface, since they are operations, not properties.
type Strategy struct {
	ptp.DefaultStrategy
}

// NewStrategy returns a Nikon VendorStrategy with no overrides beyond
// the defaults; live-view/AF are reached via the helper functions below,
// not via GetOverride/SetOverride.
func NewStrategy() *Strategy { return &Strategy{} }

// StartLiveView issues OC_NIKON_StartLiveView.
func StartLiveView(ctx context.Context, cam *ptp.Camera) error {
	_, err := cam.Send(ctx, "StartLiveView", nil, nil)
	return err
}

// EndLiveView issues OC_NIKON_EndLiveView.
func EndLiveView(ctx context.Context, cam *ptp.Camera) error {
	_, err := cam.Send(ctx, "EndLiveView", nil, nil)
	return err
}

// CaptureLiveViewFrame issues OC_NIKON_GetLiveViewImg and decodes the
// result into a LiveViewFrame. Handles RespNotLiveView the way the
// teacher's startLiveView handles RC_NIKON_InvalidStatus/NotLiveView: by
// returning a typed error the caller can retry after StartLiveView.
func CaptureLiveViewFrame(ctx context.Context, cam *ptp.Camera) (*LiveViewFrame, error) {
	res, err := cam.Send(ctx, "GetLiveViewImg", nil, nil)
	if err != nil {
		return nil, err
	}
	frame, ok := res.Decoded.(*LiveViewFrame)
	if !ok {
		return nil, fmt.Errorf("ptp/nikon: GetLiveViewImg did not decode to a live-view frame")
	}
	return frame, nil
}

// AfDrive issues OC_NIKON_AfDrive, triggering an autofocus cycle.
func AfDrive(ctx context.Context, cam *ptp.Camera) error {
	_, err := cam.Send(ctx, "AfDrive", nil, nil)
	return err
}
