package ptp

// Registry is an immutable bundle of operation/property/event/response/
// codec definitions keyed by symbolic name, plus code-keyed indexes for
// the reverse lookups the engine and façade need. Grounded on the
// teacher's flat OC_names/DPC_names-style symbol tables (mtp/const.go),
// generalized into an explicit two-layer generic/vendor structure per
// spec §4.D/4.E.
type Registry struct {
	name string

	operations map[string]*OperationDefinition
	properties map[string]*PropertyDefinition
	events     map[string]*EventDefinition
	responses  map[string]*ResponseDefinition
	codecs     map[string]Codec

	opsByCode   map[uint16]*OperationDefinition
	propsByCode map[uint16]*PropertyDefinition
	eventsByCode map[uint16]*EventDefinition
	respByCode  map[uint16]*ResponseDefinition
}

// NewRegistry builds an empty, named registry ready to be populated via
// AddOperation/AddProperty/AddEvent/AddResponse/AddCodec.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:         name,
		operations:   map[string]*OperationDefinition{},
		properties:   map[string]*PropertyDefinition{},
		events:       map[string]*EventDefinition{},
		responses:    map[string]*ResponseDefinition{},
		codecs:       map[string]Codec{},
		opsByCode:    map[uint16]*OperationDefinition{},
		propsByCode:  map[uint16]*PropertyDefinition{},
		eventsByCode: map[uint16]*EventDefinition{},
		respByCode:   map[uint16]*ResponseDefinition{},
	}
}

func (r *Registry) Name() string { return r.name }

func (r *Registry) AddOperation(def *OperationDefinition) {
	r.operations[def.Name] = def
	r.opsByCode[def.Code] = def
}

func (r *Registry) AddProperty(def *PropertyDefinition) {
	r.properties[def.Name] = def
	r.propsByCode[def.Code] = def
}

func (r *Registry) AddEvent(def *EventDefinition) {
	r.events[def.Name] = def
	r.eventsByCode[def.Code] = def
}

func (r *Registry) AddResponse(def *ResponseDefinition) {
	r.responses[def.Name] = def
	r.respByCode[def.Code] = def
}

func (r *Registry) AddCodec(name string, c Codec) {
	r.codecs[name] = c
}

func (r *Registry) Operation(name string) (*OperationDefinition, bool) {
	d, ok := r.operations[name]
	return d, ok
}

func (r *Registry) OperationByCode(code uint16) (*OperationDefinition, bool) {
	d, ok := r.opsByCode[code]
	return d, ok
}

func (r *Registry) Property(name string) (*PropertyDefinition, bool) {
	d, ok := r.properties[name]
	return d, ok
}

func (r *Registry) PropertyByCode(code uint16) (*PropertyDefinition, bool) {
	d, ok := r.propsByCode[code]
	return d, ok
}

func (r *Registry) Event(name string) (*EventDefinition, bool) {
	d, ok := r.events[name]
	return d, ok
}

func (r *Registry) EventByCode(code uint16) (*EventDefinition, bool) {
	d, ok := r.eventsByCode[code]
	return d, ok
}

func (r *Registry) Response(code uint16) (*ResponseDefinition, bool) {
	d, ok := r.respByCode[code]
	return d, ok
}

func (r *Registry) ResponseByName(name string) (*ResponseDefinition, bool) {
	d, ok := r.responses[name]
	return d, ok
}

func (r *Registry) Codec(name string) (Codec, bool) {
	c, ok := r.codecs[name]
	return c, ok
}

// NewVendorRegistry builds a vendor registry that IS-A generic: every
// symbol in generic is visible through the result, and every definition
// in overrides shadows the generic entry sharing its name AND its code
// (spec §4.E: "vendor entries taking precedence by symbolic name and by
// code"). overrides is itself a *Registry so vendor packages can build
// their additions with the same NewRegistry/Add* calls used for the
// generic base.
func NewVendorRegistry(name string, generic *Registry, overrides *Registry) *Registry {
	merged := NewRegistry(name)

	for k, v := range generic.operations {
		merged.operations[k] = v
	}
	for k, v := range generic.opsByCode {
		if _, shadowed := overrides.operations[v.Name]; !shadowed {
			merged.opsByCode[k] = v
		}
	}
	for k, v := range generic.properties {
		merged.properties[k] = v
	}
	for k, v := range generic.propsByCode {
		if _, shadowed := overrides.properties[v.Name]; !shadowed {
			merged.propsByCode[k] = v
		}
	}
	for k, v := range generic.events {
		merged.events[k] = v
	}
	for k, v := range generic.eventsByCode {
		if _, shadowed := overrides.events[v.Name]; !shadowed {
			merged.eventsByCode[k] = v
		}
	}
	for k, v := range generic.responses {
		merged.responses[k] = v
	}
	for k, v := range generic.respByCode {
		if _, shadowed := overrides.responses[v.Name]; !shadowed {
			merged.respByCode[k] = v
		}
	}
	for k, v := range generic.codecs {
		merged.codecs[k] = v
	}

	// Vendor entries win on both name and code collisions; overlay last.
	for k, v := range overrides.operations {
		merged.operations[k] = v
	}
	for k, v := range overrides.opsByCode {
		merged.opsByCode[k] = v
	}
	for k, v := range overrides.properties {
		merged.properties[k] = v
	}
	for k, v := range overrides.propsByCode {
		merged.propsByCode[k] = v
	}
	for k, v := range overrides.events {
		merged.events[k] = v
	}
	for k, v := range overrides.eventsByCode {
		merged.eventsByCode[k] = v
	}
	for k, v := range overrides.responses {
		merged.responses[k] = v
	}
	for k, v := range overrides.respByCode {
		merged.respByCode[k] = v
	}
	for k, v := range overrides.codecs {
		merged.codecs[k] = v
	}

	return merged
}
