package ptp

import "fmt"

// Standard operation, property, event, and response codes. Curated
// subset of the non-vendor entries in the teacher's mtp/const.go
// (0x1xxx operations, 0x2xxx responses, 0x4xxx events, 0x5xxx
// properties), per spec §6's minimum set plus the generic properties the
// teacher ships (ImageSize, WhiteBalance, ExposureIndex, FNumber, etc).
// Vendor code dumps belong to ptp/sony, ptp/canon, ptp/nikon, not here.
const (
	OpGetDeviceInfo        = 0x1001
	OpOpenSession          = 0x1002
	OpCloseSession         = 0x1003
	OpGetStorageIDs        = 0x1004
	OpGetStorageInfo       = 0x1005
	OpGetNumObjects        = 0x1006
	OpGetObjectHandles     = 0x1007
	OpGetObjectInfo        = 0x1008
	OpGetObject            = 0x1009
	OpGetThumb             = 0x100A
	OpDeleteObject         = 0x100B
	OpSendObjectInfo       = 0x100C
	OpSendObject           = 0x100D
	OpInitiateCapture      = 0x100E
	OpFormatStore          = 0x100F
	OpResetDevice          = 0x1010
	OpSelfTest             = 0x1011
	OpSetObjectProtection  = 0x1012
	OpPowerDown            = 0x1013
	OpGetDevicePropDesc    = 0x1014
	OpGetDevicePropValue   = 0x1015
	OpSetDevicePropValue   = 0x1016
	OpResetDevicePropValue = 0x1017
	OpTerminateOpenCapture = 0x1018
	OpMoveObject           = 0x1019
	OpCopyObject           = 0x101A
	OpGetPartialObject     = 0x101B
)

const (
	RespOK                           = 0x2001
	RespGeneralError                 = 0x2002
	RespSessionNotOpen               = 0x2003
	RespInvalidTransactionID         = 0x2004
	RespOperationNotSupported        = 0x2005
	RespParameterNotSupported        = 0x2006
	RespIncompleteTransfer           = 0x2007
	RespInvalidStorageID             = 0x2008
	RespInvalidObjectHandle          = 0x2009
	RespDevicePropNotSupported       = 0x200A
	RespInvalidObjectFormatCode      = 0x200B
	RespStoreFull                    = 0x200C
	RespObjectWriteProtected         = 0x200D
	RespStoreReadOnly                = 0x200E
	RespAccessDenied                 = 0x200F
	RespNoThumbnailPresent           = 0x2010
	RespSelfTestFailed               = 0x2011
	RespPartialDeletion              = 0x2012
	RespStoreNotAvailable            = 0x2013
	RespSpecByFormatUnsupported      = 0x2014
	RespNoValidObjectInfo            = 0x2015
	RespInvalidCodeFormat            = 0x2016
	RespDeviceBusy                   = 0x2019
	RespOperationCanceled            = 0x201F
)

const (
	EventCancelTransaction   = 0x4001
	EventObjectAdded         = 0x4002
	EventObjectRemoved       = 0x4003
	EventStoreAdded          = 0x4004
	EventStoreRemoved        = 0x4005
	EventDevicePropChanged   = 0x4006
	EventObjectInfoChanged   = 0x4007
	EventDeviceInfoChanged   = 0x4008
	EventRequestObjTransfer  = 0x4009
	EventStoreFull           = 0x400A
	EventDeviceReset         = 0x400B
	EventStorageInfoChanged  = 0x400C
	EventCaptureComplete     = 0x400D
	EventUnreportedStatus    = 0x400E
)

const (
	PropBatteryLevel            = 0x5001
	PropFunctionalMode          = 0x5002
	PropImageSize               = 0x5003
	PropCompressionSetting      = 0x5004
	PropWhiteBalance            = 0x5005
	PropRGBGain                 = 0x5006
	PropFNumber                 = 0x5007
	PropFocalLength              = 0x5008
	PropFocusDistance           = 0x5009
	PropFocusMode                = 0x500A
	PropExposureMeteringMode    = 0x500B
	PropFlashMode                = 0x500C
	PropExposureTime            = 0x500D
	PropExposureProgramMode     = 0x500E
	PropExposureIndex           = 0x500F // ISO
	PropExposureBiasCompensation = 0x5010
	PropDateTime                = 0x5011
	PropStillCaptureMode        = 0x5013
)

// The ClassRequest* constants below are the PIMA 15740 USB class-specific
// control request codes. The engine names class requests by
// ClassRequestKind, and usbtransport issues these codes through its own
// local constants.
const (
	ClassRequestCancel     = 0x64
	ClassRequestGetExtEvt  = 0x65 // get_extended_event_data
	ClassRequestDeviceReset = 0x66
	ClassRequestGetDeviceStatus = 0x67
)

// base codec names, shared by every registry built from NewGenericRegistry.
const (
	CodecU8     = "uint8"
	CodecI8     = "int8"
	CodecU16    = "uint16"
	CodecI16    = "int16"
	CodecU32    = "uint32"
	CodecI32    = "int32"
	CodecU64    = "uint64"
	CodecI64    = "int64"
	CodecU128   = "uint128"
	CodecString = "string"
	CodecDate   = "datetime"

	CodecU16Array = "array<uint16>"
	CodecU32Array = "array<uint32>"
)

// NewGenericRegistry builds the base (vendor-free) registry: the base
// scalar codecs, the curated standard operation/response/event/property
// tables, and the composite array codecs built on top of them. Vendor
// packages call NewVendorRegistry(name, NewGenericRegistry(), overrides).
func NewGenericRegistry() *Registry {
	r := NewRegistry("generic")

	u8 := NewPrimitiveCodec(KindU8, CodecU8)
	i8 := NewPrimitiveCodec(KindI8, CodecI8)
	u16 := NewPrimitiveCodec(KindU16, CodecU16)
	i16 := NewPrimitiveCodec(KindI16, CodecI16)
	u32 := NewPrimitiveCodec(KindU32, CodecU32)
	i32 := NewPrimitiveCodec(KindI32, CodecI32)
	u64 := NewPrimitiveCodec(KindU64, CodecU64)
	i64 := NewPrimitiveCodec(KindI64, CodecI64)
	u128 := NewPrimitiveCodec(KindU128, CodecU128)
	str := NewPrimitiveCodec(KindString, CodecString)
	date := NewDateTimeCodec(CodecDate)

	r.AddCodec(CodecU8, u8)
	r.AddCodec(CodecI8, i8)
	r.AddCodec(CodecU16, u16)
	r.AddCodec(CodecI16, i16)
	r.AddCodec(CodecU32, u32)
	r.AddCodec(CodecI32, i32)
	r.AddCodec(CodecU64, u64)
	r.AddCodec(CodecI64, i64)
	r.AddCodec(CodecU128, u128)
	r.AddCodec(CodecString, str)
	r.AddCodec(CodecDate, date)
	r.AddCodec(CodecU16Array, NewArrayCodec(u16, CodecU16Array))
	r.AddCodec(CodecU32Array, NewArrayCodec(u32, CodecU32Array))

	r.AddOperation(&OperationDefinition{Code: OpGetDeviceInfo, Name: "GetDeviceInfo", DataDirection: DirOut, DataCodec: deviceInfoCodec(r)})
	r.AddOperation(&OperationDefinition{Code: OpOpenSession, Name: "OpenSession", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "session_id", Codec: u32, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpCloseSession, Name: "CloseSession", DataDirection: DirNone})
	r.AddOperation(&OperationDefinition{Code: OpGetStorageIDs, Name: "GetStorageIDs", DataDirection: DirOut, DataCodec: r.codecs[CodecU32Array]})
	r.AddOperation(&OperationDefinition{Code: OpGetStorageInfo, Name: "GetStorageInfo", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "storage_id", Codec: u32, Required: true}}, DataCodec: storageInfoCodec(r)})
	r.AddOperation(&OperationDefinition{Code: OpGetNumObjects, Name: "GetNumObjects", DataDirection: DirNone,
		OperationParams:    []ParameterDefinition{{Name: "storage_id", Codec: u32, Required: true}, {Name: "format_code", Codec: u32}, {Name: "association", Codec: u32}},
		ResponseParams:     []ParameterDefinition{{Name: "count", Codec: u32}}})
	r.AddOperation(&OperationDefinition{Code: OpGetObjectHandles, Name: "GetObjectHandles", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "storage_id", Codec: u32, Required: true}, {Name: "format_code", Codec: u32}, {Name: "association", Codec: u32}},
		DataCodec:       r.codecs[CodecU32Array]})
	r.AddOperation(&OperationDefinition{Code: OpGetObjectInfo, Name: "GetObjectInfo", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "object_handle", Codec: u32, Required: true}}, DataCodec: objectInfoCodec(r)})
	r.AddOperation(&OperationDefinition{Code: OpGetObject, Name: "GetObject", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "object_handle", Codec: u32, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpGetThumb, Name: "GetThumb", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "object_handle", Codec: u32, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpDeleteObject, Name: "DeleteObject", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "object_handle", Codec: u32, Required: true}, {Name: "format_code", Codec: u32}}})
	r.AddOperation(&OperationDefinition{Code: OpSendObjectInfo, Name: "SendObjectInfo", DataDirection: DirIn,
		OperationParams: []ParameterDefinition{{Name: "storage_id", Codec: u32}, {Name: "parent_handle", Codec: u32}}, DataCodec: objectInfoCodec(r)})
	r.AddOperation(&OperationDefinition{Code: OpSendObject, Name: "SendObject", DataDirection: DirIn})
	r.AddOperation(&OperationDefinition{Code: OpInitiateCapture, Name: "InitiateCapture", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "storage_id", Codec: u32}, {Name: "format_code", Codec: u32}}})
	r.AddOperation(&OperationDefinition{Code: OpFormatStore, Name: "FormatStore", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "storage_id", Codec: u32, Required: true}, {Name: "format_code", Codec: u32}}})
	r.AddOperation(&OperationDefinition{Code: OpResetDevice, Name: "ResetDevice", DataDirection: DirNone})
	r.AddOperation(&OperationDefinition{Code: OpSelfTest, Name: "SelfTest", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "test_type", Codec: u32}}})
	r.AddOperation(&OperationDefinition{Code: OpPowerDown, Name: "PowerDown", DataDirection: DirNone})
	r.AddOperation(&OperationDefinition{Code: OpGetDevicePropDesc, Name: "GetDevicePropDesc", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "property_code", Codec: u16, Required: true}},
		DataCodec:       NewPropertyDescriptorCodec()})
	r.AddOperation(&OperationDefinition{Code: OpGetDevicePropValue, Name: "GetDevicePropValue", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{{Name: "property_code", Codec: u16, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpSetDevicePropValue, Name: "SetDevicePropValue", DataDirection: DirIn,
		OperationParams: []ParameterDefinition{{Name: "property_code", Codec: u16, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpResetDevicePropValue, Name: "ResetDevicePropValue", DataDirection: DirNone,
		OperationParams: []ParameterDefinition{{Name: "property_code", Codec: u16, Required: true}}})
	r.AddOperation(&OperationDefinition{Code: OpGetPartialObject, Name: "GetPartialObject", DataDirection: DirOut,
		OperationParams: []ParameterDefinition{
			{Name: "object_handle", Codec: u32, Required: true},
			{Name: "offset", Codec: u32, Required: true, Validate: validateOffsetBelowU32Max},
			{Name: "max_bytes", Codec: u32, Required: true},
		},
		ResponseParams: []ParameterDefinition{{Name: "bytes_read", Codec: u32}}})

	responses := []ResponseDefinition{
		{Code: RespOK, Name: "OK", Recoverable: true},
		{Code: RespGeneralError, Name: "GeneralError"},
		{Code: RespSessionNotOpen, Name: "SessionNotOpen"},
		{Code: RespInvalidTransactionID, Name: "InvalidTransactionID"},
		{Code: RespOperationNotSupported, Name: "OperationNotSupported"},
		{Code: RespParameterNotSupported, Name: "ParameterNotSupported"},
		{Code: RespIncompleteTransfer, Name: "IncompleteTransfer"},
		{Code: RespInvalidStorageID, Name: "InvalidStorageID"},
		{Code: RespInvalidObjectHandle, Name: "InvalidObjectHandle"},
		{Code: RespDevicePropNotSupported, Name: "DevicePropNotSupported"},
		{Code: RespInvalidObjectFormatCode, Name: "InvalidObjectFormatCode"},
		{Code: RespStoreFull, Name: "StoreFull"},
		{Code: RespObjectWriteProtected, Name: "ObjectWriteProtected"},
		{Code: RespStoreReadOnly, Name: "StoreReadOnly"},
		{Code: RespAccessDenied, Name: "AccessDenied"},
		{Code: RespNoThumbnailPresent, Name: "NoThumbnailPresent"},
		{Code: RespSelfTestFailed, Name: "SelfTestFailed"},
		{Code: RespPartialDeletion, Name: "PartialDeletion"},
		{Code: RespStoreNotAvailable, Name: "StoreNotAvailable"},
		{Code: RespSpecByFormatUnsupported, Name: "SpecificationByFormatUnsupported"},
		{Code: RespNoValidObjectInfo, Name: "NoValidObjectInfo"},
		{Code: RespInvalidCodeFormat, Name: "InvalidCodeFormat"},
		{Code: RespDeviceBusy, Name: "DeviceBusy", Recoverable: true},
		{Code: RespOperationCanceled, Name: "OperationCanceled", Recoverable: true},
	}
	for i := range responses {
		r.AddResponse(&responses[i])
	}

	r.AddEvent(&EventDefinition{Code: EventCancelTransaction, Name: "CancelTransaction"})
	r.AddEvent(&EventDefinition{Code: EventObjectAdded, Name: "ObjectAdded", Params: []ParameterDefinition{{Name: "object_handle", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventObjectRemoved, Name: "ObjectRemoved", Params: []ParameterDefinition{{Name: "object_handle", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventStoreAdded, Name: "StoreAdded", Params: []ParameterDefinition{{Name: "storage_id", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventStoreRemoved, Name: "StoreRemoved", Params: []ParameterDefinition{{Name: "storage_id", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventDevicePropChanged, Name: "DevicePropChanged", Params: []ParameterDefinition{{Name: "property_code", Codec: u16}}})
	r.AddEvent(&EventDefinition{Code: EventObjectInfoChanged, Name: "ObjectInfoChanged", Params: []ParameterDefinition{{Name: "object_handle", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventDeviceInfoChanged, Name: "DeviceInfoChanged"})
	r.AddEvent(&EventDefinition{Code: EventRequestObjTransfer, Name: "RequestObjectTransfer", Params: []ParameterDefinition{{Name: "object_handle", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventStoreFull, Name: "StoreFull", Params: []ParameterDefinition{{Name: "storage_id", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventDeviceReset, Name: "DeviceReset"})
	r.AddEvent(&EventDefinition{Code: EventStorageInfoChanged, Name: "StorageInfoChanged", Params: []ParameterDefinition{{Name: "storage_id", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventCaptureComplete, Name: "CaptureComplete", Params: []ParameterDefinition{{Name: "transaction_id", Codec: u32}}})
	r.AddEvent(&EventDefinition{Code: EventUnreportedStatus, Name: "UnreportedStatus"})

	props := []PropertyDefinition{
		{Code: PropBatteryLevel, Name: "BatteryLevel", DataType: 0x0002, Codec: u8, Access: AccessGet},
		{Code: PropFunctionalMode, Name: "FunctionalMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropImageSize, Name: "ImageSize", DataType: 0xFFFF, Codec: str, Access: AccessGetSet},
		{Code: PropCompressionSetting, Name: "CompressionSetting", DataType: 0x0002, Codec: u8, Access: AccessGetSet},
		{Code: PropWhiteBalance, Name: "WhiteBalance", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropRGBGain, Name: "RGBGain", DataType: 0xFFFF, Codec: str, Access: AccessGetSet},
		{Code: PropFNumber, Name: "FNumber", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropFocalLength, Name: "FocalLength", DataType: 0x0006, Codec: u32, Access: AccessGet},
		{Code: PropFocusDistance, Name: "FocusDistance", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropFocusMode, Name: "FocusMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropExposureMeteringMode, Name: "ExposureMeteringMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropFlashMode, Name: "FlashMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropExposureTime, Name: "ExposureTime", DataType: 0x0006, Codec: u32, Access: AccessGetSet},
		{Code: PropExposureProgramMode, Name: "ExposureProgramMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropExposureIndex, Name: "ExposureIndex", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
		{Code: PropExposureBiasCompensation, Name: "ExposureBiasCompensation", DataType: 0x0003, Codec: i16, Access: AccessGetSet},
		{Code: PropDateTime, Name: "DateTime", DataType: 0xFFFF, Codec: date, Access: AccessGetSet},
		{Code: PropStillCaptureMode, Name: "StillCaptureMode", DataType: 0x0004, Codec: u16, Access: AccessGetSet},
	}
	for i := range props {
		r.AddProperty(&props[i])
	}

	return r
}

// validateOffsetBelowU32Max rejects GetPartialObject's offset parameter
// at or above 2^32-1, spec §8 boundary behavior. toU64 preserves the
// caller's full numeric magnitude even when the value would otherwise
// be handed to a u32 codec that silently truncates it.
func validateOffsetBelowU32Max(v interface{}) error {
	if toU64(v) >= 0xFFFFFFFF {
		return fmt.Errorf("offset %d is at or above 2^32-1", toU64(v))
	}
	return nil
}

// deviceInfoCodec, storageInfoCodec, objectInfoCodec construct the
// Dataset codecs for the three complex records every PTP device
// exchanges during discovery, grounded on mtp/types.go's DeviceInfo,
// StorageInfo, ObjectInfo structs.
func deviceInfoCodec(r *Registry) Codec {
	u16 := r.codecs[CodecU16]
	u32 := r.codecs[CodecU32]
	str := r.codecs[CodecString]
	u16arr := r.codecs[CodecU16Array]
	return NewDatasetCodec([]DatasetField{
		{Name: "standard_version", Codec: u16},
		{Name: "vendor_extension_id", Codec: u32},
		{Name: "vendor_extension_version", Codec: u16},
		{Name: "vendor_extension_desc", Codec: str},
		{Name: "functional_mode", Codec: u16},
		{Name: "operations_supported", Codec: u16arr},
		{Name: "events_supported", Codec: u16arr},
		{Name: "device_properties_supported", Codec: u16arr},
		{Name: "capture_formats", Codec: u16arr},
		{Name: "image_formats", Codec: u16arr},
		{Name: "manufacturer", Codec: str},
		{Name: "model", Codec: str},
		{Name: "device_version", Codec: str},
		{Name: "serial_number", Codec: str},
	}, "DeviceInfo")
}

func storageInfoCodec(r *Registry) Codec {
	u16 := r.codecs[CodecU16]
	u64 := r.codecs[CodecU64]
	str := r.codecs[CodecString]
	return NewDatasetCodec([]DatasetField{
		{Name: "storage_type", Codec: u16},
		{Name: "filesystem_type", Codec: u16},
		{Name: "access_capability", Codec: u16},
		{Name: "max_capacity", Codec: u64},
		{Name: "free_space_in_bytes", Codec: u64},
		{Name: "free_space_in_objects", Codec: r.codecs[CodecU32]},
		{Name: "storage_description", Codec: str},
		{Name: "volume_label", Codec: str},
	}, "StorageInfo")
}

func objectInfoCodec(r *Registry) Codec {
	u16 := r.codecs[CodecU16]
	u32 := r.codecs[CodecU32]
	str := r.codecs[CodecString]
	date := r.codecs[CodecDate]
	return NewDatasetCodec([]DatasetField{
		{Name: "storage_id", Codec: u32},
		{Name: "object_format", Codec: u16},
		{Name: "protection_status", Codec: u16},
		{Name: "object_compressed_size", Codec: u32},
		{Name: "thumb_format", Codec: u16},
		{Name: "thumb_compressed_size", Codec: u32},
		{Name: "thumb_pix_width", Codec: u32},
		{Name: "thumb_pix_height", Codec: u32},
		{Name: "image_pix_width", Codec: u32},
		{Name: "image_pix_height", Codec: u32},
		{Name: "image_bit_depth", Codec: u32},
		{Name: "parent_object", Codec: u32},
		{Name: "association_type", Codec: u16},
		{Name: "association_desc", Codec: u32},
		{Name: "sequence_number", Codec: u32},
		{Name: "filename", Codec: str},
		{Name: "capture_date", Codec: date, Optional: true},
		{Name: "modification_date", Codec: date, Optional: true},
		{Name: "keywords", Codec: str, Optional: true},
	}, "ObjectInfo")
}
