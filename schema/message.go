package schema

// Message is a namespace of fields, nested messages and nested enums.
type Message struct {
	Namespace
	// Extensions is the [min,max] extension number range; declared field
	// ids must lie outside it. The zero value means no extensions range
	// was declared.
	Extensions [2]int32
	// GroupID is nonzero when this message is the body of a legacy group
	// field, and equals that field's id.
	GroupID int32
}

// NewMessage creates an empty message node.
func NewMessage(name string) *Message {
	m := &Message{
		Namespace: Namespace{
			base:    base{name: name, kind: KindMessage},
			Options: make(map[string]interface{}),
		},
	}
	m.self = m
	return m
}

// IsGroup reports whether the message is a legacy group body.
func (m *Message) IsGroup() bool { return m.GroupID != 0 }

// Fields returns the declared fields in declaration order.
func (m *Message) Fields() []*Field {
	var out []*Field
	for _, c := range m.children {
		if f, ok := c.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// FieldByID returns the declared field with the given id, nil when absent.
func (m *Message) FieldByID(id int32) *Field {
	f, _ := m.GetChildByID(id).(*Field)
	return f
}

// FieldByName looks a field up by its registered name, falling back to the
// source name when camelCase conversion rewrote it.
func (m *Message) FieldByName(name string) *Field {
	if f, ok := m.GetChild(name).(*Field); ok {
		return f
	}
	for _, c := range m.children {
		if f, ok := c.(*Field); ok && f.OriginalName == name {
			return f
		}
	}
	return nil
}
