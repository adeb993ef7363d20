package schema

// WireType is one of the six low-3-bit codes that classify how a field's
// payload is framed on the wire.
type WireType int32

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // legacy group start
	WireEndGroup   WireType = 4 // legacy group end
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// Field number bounds. The 19000-19999 band is reserved by the protobuf
// implementation itself.
const (
	IDMin          = 1
	IDMax          = 536870911 // 2^29 - 1
	idReservedLow  = 19000
	idReservedHigh = 19999
)

// IsValidID reports whether n is usable as a declared field number.
func IsValidID(n int32) bool {
	if n < IDMin || n > IDMax {
		return false
	}
	return n < idReservedLow || n > idReservedHigh
}

// TypeDescriptor describes one declarable field type: its proto name and the
// wire type its payload is framed with.
type TypeDescriptor struct {
	Name     string
	WireType WireType
}

// Types registers a descriptor for every declarable field type. A Field's
// symbolic type reference is resolved either directly against this table
// (scalars) or to "message"/"group"/"enum" by the name-resolution pass.
var Types = map[string]*TypeDescriptor{
	"int32":    {Name: "int32", WireType: WireVarint},
	"int64":    {Name: "int64", WireType: WireVarint},
	"uint32":   {Name: "uint32", WireType: WireVarint},
	"uint64":   {Name: "uint64", WireType: WireVarint},
	"sint32":   {Name: "sint32", WireType: WireVarint},
	"sint64":   {Name: "sint64", WireType: WireVarint},
	"bool":     {Name: "bool", WireType: WireVarint},
	"fixed32":  {Name: "fixed32", WireType: WireFixed32},
	"sfixed32": {Name: "sfixed32", WireType: WireFixed32},
	"float":    {Name: "float", WireType: WireFixed32},
	"fixed64":  {Name: "fixed64", WireType: WireFixed64},
	"sfixed64": {Name: "sfixed64", WireType: WireFixed64},
	"double":   {Name: "double", WireType: WireFixed64},
	"string":   {Name: "string", WireType: WireBytes},
	"bytes":    {Name: "bytes", WireType: WireBytes},
	"message":  {Name: "message", WireType: WireBytes},
	"enum":     {Name: "enum", WireType: WireVarint},
	"group":    {Name: "group", WireType: WireStartGroup},
}

var packedEligible = map[string]struct{}{
	"double":   {},
	"float":    {},
	"int64":    {},
	"uint64":   {},
	"int32":    {},
	"fixed64":  {},
	"fixed32":  {},
	"bool":     {},
	"uint32":   {},
	"sfixed32": {},
	"sfixed64": {},
	"sint32":   {},
	"sint64":   {},
	"enum":     {},
}

// IsPackedType checks and returns if the type may appear in a packed
// repeated field.
func IsPackedType(t *TypeDescriptor) bool {
	if t == nil {
		return false
	}
	_, ok := packedEligible[t.Name]
	return ok
}
