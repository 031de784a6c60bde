// Package sony provides the Sony Alpha/NEX vendor registry and camera
// façade strategy: the three-phase SDIO connect handshake, the
// GetAllExtDevicePropInfo slice used for bulk property reads, and a
// Custom codec for Sony's on-screen-display (OSD) live-view image
// format.
//
// The teacher (hanwen-go-mtpfs) ships no Sony support at all — these
// operation codes and the three-phase handshake are grounded on spec.md
// §9's own Design Note ("Sony SDIO connect phases 1/2/3",
// "GetAllExtDevicePropInfo slice", "Sony SDIO OSD image parser"), with
// the package's structure (registry composition, VendorStrategy,
// Custom codec) grounded on the same ptp/nikon and ptp/canon style,
// which in turn follow the teacher's composition idiom.
package sony

import (
	"context"
	"fmt"

	"github.com/hanwen/go-ptp/ptp"
)

// Operation codes for Sony's SDIO (Sony Digital I/O) MTP extension.
const (
	OpSDIOConnect               = 0x9201
	OpSDIOGetExtDeviceInfo      = 0x9202
	OpSDIOSetExtDevicePropValue = 0x9205
	OpSDIOControlDevice         = 0x9207
	OpSDIOGetAllExtDevicePropInfo = 0x9209
	OpSDIOGetOSDImage           = 0x9213
)

// SDIO connect handshake phase parameters, spec §9 "Sony SDIO connect
// phases 1/2/3".
const (
	connectPhase1 = 1
	connectPhase2 = 2
	connectPhase3 = 3
	connectKeyCode = 0x0000DA01
)

// NewRegistry builds the Sony vendor registry: the generic base plus
// Sony's SDIO operations, per spec §4.E.
func NewRegistry() *ptp.Registry {
	generic := ptp.NewGenericRegistry()
	overrides := ptp.NewRegistry("sony-overrides")

	u32 := mustCodec(generic, ptp.CodecU32)

	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOConnect, Name: "SDIOConnect", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{
			{Name: "phase", Codec: u32, Required: true},
			{Name: "key_code1", Codec: u32, Required: true},
			{Name: "key_code2", Codec: u32, Required: true},
		},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOGetExtDeviceInfo, Name: "SDIOGetExtDeviceInfo", DataDirection: ptp.DirOut,
		OperationParams: []ptp.ParameterDefinition{{Name: "version", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOGetAllExtDevicePropInfo, Name: "SDIOGetAllExtDevicePropInfo", DataDirection: ptp.DirOut,
		DataCodec: newExtPropInfoCodec(),
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOSetExtDevicePropValue, Name: "SDIOSetExtDevicePropValue", DataDirection: ptp.DirIn,
		OperationParams: []ptp.ParameterDefinition{{Name: "property_code", Codec: u32, Required: true}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOControlDevice, Name: "SDIOControlDevice", DataDirection: ptp.DirNone,
		OperationParams: []ptp.ParameterDefinition{{Name: "control_code", Codec: u32, Required: true}, {Name: "value", Codec: u32}},
	})
	overrides.AddOperation(&ptp.OperationDefinition{
		Code: OpSDIOGetOSDImage, Name: "SDIOGetOSDImage", DataDirection: ptp.DirOut,
		DataCodec: newOSDImageCodec(),
	})

	return ptp.NewVendorRegistry("sony", generic, overrides)
}

func mustCodec(r *ptp.Registry, name string) ptp.Codec {
	c, ok := r.Codec(name)
	if !ok {
		panic("ptp/sony: missing base codec " + name)
	}
	return c
}

// ExtPropInfo is one entry decoded from SDIOGetAllExtDevicePropInfo's
// payload, spec §4.I "Sony GetAllExtDevicePropInfo slice".
type ExtPropInfo struct {
	PropertyCode uint32
	DataType     uint16
	Current      uint64
	Default      uint64
}

// newExtPropInfoCodec decodes the SDIOGetAllExtDevicePropInfo payload as
// a u32 count followed by property records, each a u32 code, a u16
// DataType, and current/default values at the width DataType selects.
// Decoding stops without error at the first record with fewer than 8
// bytes left, instead of failing the way the array codec does when the
// count exceeds the data.
func newExtPropInfoCodec() ptp.Codec {
	return ptp.NewCustomCodec("SonyExtPropInfoList",
		func(c *ptp.Cursor, value interface{}) error {
			return fmt.Errorf("ptp/sony: ext prop info is device-to-host only, encoding is not supported")
		},
		func(c *ptp.Cursor) (interface{}, error) {
			count, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			out := make([]ExtPropInfo, 0, count)
			for i := uint32(0); i < count; i++ {
				if c.Remaining() < 8 {
					break
				}
				code, _ := c.ReadU32()
				dtype, _ := c.ReadU16()
				width := widthForDataType(dtype)
				cur, err := readWidth(c, width)
				if err != nil {
					return nil, err
				}
				def, err := readWidth(c, width)
				if err != nil {
					return nil, err
				}
				out = append(out, ExtPropInfo{PropertyCode: code, DataType: dtype, Current: cur, Default: def})
			}
			return out, nil
		},
	)
}

func widthForDataType(dtype uint16) int {
	switch dtype {
	case 0x0001, 0x0002:
		return 1
	case 0x0003, 0x0004:
		return 2
	case 0x0005, 0x0006:
		return 4
	case 0x0007, 0x0008:
		return 8
	default:
		return 4
	}
}

func readWidth(c *ptp.Cursor, width int) (uint64, error) {
	b, err := c.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// OSDImage is the decoded Sony on-screen-display live-view frame: a
// small header plus a JPEG payload, analogous in shape to Nikon's
// live-view frame but with Sony's own header fields (spec §9 "Sony SDIO
// OSD image parser").
type OSDImage struct {
	Width  uint16
	Height uint16
	JPEG   []byte
}

func newOSDImageCodec() ptp.Codec {
	return ptp.NewCustomCodec("SonyOSDImage",
		func(c *ptp.Cursor, value interface{}) error {
			return fmt.Errorf("ptp/sony: OSD image is device-to-host only, encoding is not supported")
		},
		func(c *ptp.Cursor) (interface{}, error) {
			if c.Remaining() < 4 {
				return nil, fmt.Errorf("ptp/sony: OSD image payload shorter than its 4-byte header")
			}
			w, _ := c.ReadU16()
			h, _ := c.ReadU16()
			jpeg, err := c.ReadBytes(c.Remaining())
			if err != nil {
				return nil, err
			}
			return &OSDImage{Width: w, Height: h, JPEG: append([]byte{}, jpeg...)}, nil
		},
	)
}

// Strategy implements ptp.VendorStrategy for Sony cameras: the connect
// hook runs the three-phase SDIO handshake right after OpenSession, once
// the generic façade has marked the camera connected and before its
// event pump starts.
type Strategy struct {
	ptp.DefaultStrategy
}

func NewStrategy() *Strategy { return &Strategy{} }

// ConnectHook runs the SDIO connect handshake, spec §4.I "Sony SDIO
// connect phases 1/2/3": each phase is a separate SDIOConnect call using
// the same key code, with the device expected to accept the interface
// claim progressively across the three calls.
func (s *Strategy) ConnectHook(ctx context.Context, cam *ptp.Camera) error {
	for _, phase := range []uint32{connectPhase1, connectPhase2, connectPhase3} {
		_, err := cam.Send(ctx, "SDIOConnect", map[string]interface{}{
			"phase":     phase,
			"key_code1": uint32(connectKeyCode),
			"key_code2": uint32(0),
		}, nil)
		if err != nil {
			return fmt.Errorf("SDIOConnect phase %d: %w", phase, err)
		}
	}
	return nil
}

// GetAllExtDeviceProps issues SDIOGetAllExtDevicePropInfo and returns
// the decoded property slice, spec §4.I "Sony GetAllExtDevicePropInfo
// slice".
func GetAllExtDeviceProps(ctx context.Context, cam *ptp.Camera) ([]ExtPropInfo, error) {
	res, err := cam.Send(ctx, "SDIOGetAllExtDevicePropInfo", nil, nil)
	if err != nil {
		return nil, err
	}
	props, _ := res.Decoded.([]ExtPropInfo)
	return props, nil
}

// CaptureOSDImage issues SDIOGetOSDImage and decodes the result.
func CaptureOSDImage(ctx context.Context, cam *ptp.Camera) (*OSDImage, error) {
	res, err := cam.Send(ctx, "SDIOGetOSDImage", nil, nil)
	if err != nil {
		return nil, err
	}
	img, ok := res.Decoded.(*OSDImage)
	if !ok {
		return nil, fmt.Errorf("ptp/sony: SDIOGetOSDImage did not decode to an OSD image")
	}
	return img, nil
}
