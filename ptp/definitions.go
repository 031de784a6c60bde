package ptp

// DataDirection classifies an operation's data phase, spec §3
// OperationDefinition.data_direction.
type DataDirection int

const (
	DirNone DataDirection = iota
	DirIn                 // host -> device data phase
	DirOut                // device -> host data phase
)

// Access classifies whether a property may be read, written, or both.
type Access int

const (
	AccessGet Access = iota
	AccessSet
	AccessGetSet
)

// ParameterDefinition describes one operation/event parameter slot.
type ParameterDefinition struct {
	Name         string
	Codec        Codec
	Required     bool
	DefaultValue interface{}
	// Validate, when set, runs against the caller-supplied value before
	// it is encoded into its parameter slot, e.g. GetPartialObject's
	// offset boundary (spec §8).
	Validate func(value interface{}) error
}

// OperationDefinition describes one PTP operation, spec §3.
type OperationDefinition struct {
	Code               uint16
	Name               string
	Description        string
	DataDirection      DataDirection
	OperationParams    []ParameterDefinition
	ResponseParams     []ParameterDefinition
	DataCodec          Codec // set only when the data phase has structure beyond raw bytes
}

// PropertyDefinition describes one device property, spec §3.
type PropertyDefinition struct {
	Code        uint16
	Name        string
	Description string
	DataType    uint16
	Codec       Codec
	Access      Access
}

// EventDefinition describes one PTP event, spec §3.
type EventDefinition struct {
	Code   uint16
	Name   string
	Params []ParameterDefinition
}

// ResponseDefinition describes one PTP response code, spec §3.
type ResponseDefinition struct {
	Code        uint16
	Name        string
	Description string
	Recoverable bool
}

// PropertyForm classifies a PropertyDescriptor's range/enum shape.
type PropertyForm int

const (
	FormNone PropertyForm = iota
	FormRange
	FormEnum
)

// PropertyDescriptor is the runtime shape returned by GetDevicePropDesc
// and its vendor equivalents, spec §3 "Runtime PropertyDescriptor".
type PropertyDescriptor struct {
	Current       interface{}
	Default       interface{}
	Form          PropertyForm
	Min           interface{}
	Max           interface{}
	Step          interface{}
	AllowedValues []interface{}
}
