package schema

// Enum is a namespace of named integer constants.
type Enum struct {
	Namespace
}

// NewEnum creates an empty enum node.
func NewEnum(name string) *Enum {
	e := &Enum{
		Namespace: Namespace{
			base:    base{name: name, kind: KindEnum},
			Options: make(map[string]interface{}),
		},
	}
	e.self = e
	return e
}

// Values returns the enum's values in declaration order.
func (e *Enum) Values() []*EnumValue {
	var out []*EnumValue
	for _, c := range e.children {
		if v, ok := c.(*EnumValue); ok {
			out = append(out, v)
		}
	}
	return out
}

// ValueByName returns the declared value with the given name, nil when
// absent.
func (e *Enum) ValueByName(name string) *EnumValue {
	v, _ := e.GetChild(name).(*EnumValue)
	return v
}

// ValueByID returns the declared value with the given id, nil when absent.
func (e *Enum) ValueByID(id int32) *EnumValue {
	v, _ := e.GetChildByID(id).(*EnumValue)
	return v
}

// EnumValue is a single named constant inside an enum.
type EnumValue struct {
	base
	ID int32
}

// NewEnumValue creates an enum value node.
func NewEnumValue(name string, id int32) *EnumValue {
	return &EnumValue{
		base: base{name: name, kind: KindEnumValue},
		ID:   id,
	}
}

func (v *EnumValue) container() *Namespace { return nil }
