package schema

// Field is the schema of one message field. Its type reference is
// two-phase: TypeName holds the symbolic reference from the source until
// the resolution pass binds Type (and, for message/group/enum references,
// ResolvedType).
type Field struct {
	base
	Rule FieldLabel
	// TypeName is the symbolic type reference as declared ("int32",
	// "Person", ".pkg.Outer.Inner").
	TypeName string
	// Type is the resolved descriptor, nil until resolution.
	Type *TypeDescriptor
	// ResolvedType points at the Message or Enum node a message-, group- or
	// enum-typed reference was bound to.
	ResolvedType Node
	ID           int32
	Options      map[string]interface{}
	// OriginalName keeps the source name when camelCase conversion rewrote
	// Name at construction time.
	OriginalName string
}

// NewField creates a field node. When Config.ConvertFieldsToCamelCase is
// set the field's name is rewritten from snake_case to lowerCamelCase;
// OriginalName always retains the source spelling.
func NewField(rule FieldLabel, typeName, name string, id int32, options map[string]interface{}) *Field {
	if options == nil {
		options = make(map[string]interface{})
	}
	fieldName := name
	if config.ConvertFieldsToCamelCase {
		fieldName = ToLowerCamel(name)
	}
	return &Field{
		base:         base{name: fieldName, kind: KindField},
		Rule:         rule,
		TypeName:     typeName,
		ID:           id,
		Options:      options,
		OriginalName: name,
	}
}

func (f *Field) container() *Namespace { return nil }

// Resolved reports whether the resolution pass has bound the type
// reference.
func (f *Field) Resolved() bool { return f.Type != nil }

// IsPacked reports whether the field encodes as a packed repeated field.
func (f *Field) IsPacked() bool {
	if f.Rule != LabelRepeated || !IsPackedType(f.Type) {
		return false
	}
	packed, ok := f.Options["packed"].(bool)
	return ok && packed
}

// Message returns the containing message.
func (f *Field) Message() *Message {
	m, _ := f.parent.(*Message)
	return m
}
