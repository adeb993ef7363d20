package dynamic

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/protodyn/protodyn/schema"
	"github.com/protodyn/protodyn/wire"
)

// Message is a runtime value of one message type: a dynamic field table
// keyed by the message descriptor. Values are accessed through the generic
// Get/Set/Add trio; every stored value is in verified wire-ready form.
//
// A Message is not safe for concurrent mutation.
type Message struct {
	md     *schema.Message
	fields map[int32]interface{}
}

// Descriptor returns the reflection node this value was built from.
func (m *Message) Descriptor() *schema.Message { return m.md }

// field resolves a field by registered name or source name.
func (m *Message) field(name string) (*schema.Field, error) {
	f := m.md.FieldByName(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, schema.FQN(m.md), name)
	}
	return f, nil
}

// Get returns the value of the named field: nil when absent, a
// []interface{} (possibly empty) for repeated fields.
func (m *Message) Get(name string) (interface{}, error) {
	f, err := m.field(name)
	if err != nil {
		return nil, err
	}
	return m.fields[f.ID], nil
}

// Set verifies v and stores it as the value of the named field. A nil v
// clears a non-required field.
func (m *Message) Set(name string, v interface{}) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	return m.set(f, v, true)
}

// Add verifies v and appends it to the named repeated field.
func (m *Message) Add(name string, v interface{}) error {
	f, err := m.field(name)
	if err != nil {
		return err
	}
	if f.Rule != schema.LabelRepeated {
		return fmt.Errorf("%w: cannot add to non-repeated field %s", ErrIllegalValue, f.NodeName())
	}
	return m.add(f, v, true)
}

// Has reports whether the named field is present (repeated: non-empty).
func (m *Message) Has(name string) (bool, error) {
	f, err := m.field(name)
	if err != nil {
		return false, err
	}
	v := m.fields[f.ID]
	if elems, ok := v.([]interface{}); ok {
		return len(elems) > 0, nil
	}
	return v != nil, nil
}

// set stores a whole-field value. verify is disabled by the decoder, which
// only produces wire-valid values.
func (m *Message) set(f *schema.Field, v interface{}, verify bool) error {
	if verify {
		verified, err := verifyValue(f, v, false)
		if err != nil {
			return err
		}
		v = verified
	}
	if v == nil {
		if f.Rule == schema.LabelRepeated {
			m.fields[f.ID] = []interface{}{}
		} else {
			m.fields[f.ID] = nil
		}
		return nil
	}
	m.fields[f.ID] = v
	return nil
}

// add appends one element to a repeated field.
func (m *Message) add(f *schema.Field, v interface{}, verify bool) error {
	if verify {
		verified, err := verifyValue(f, v, true)
		if err != nil {
			return err
		}
		v = verified
	}
	cur, _ := m.fields[f.ID].([]interface{})
	m.fields[f.ID] = append(cur, v)
	return nil
}

// addAll appends decoded elements (one, or a packed run) without
// verification.
func (m *Message) addAll(f *schema.Field, v interface{}) {
	if elems, ok := v.([]interface{}); ok {
		cur, _ := m.fields[f.ID].([]interface{})
		m.fields[f.ID] = append(cur, elems...)
		return
	}
	_ = m.add(f, v, false)
}

// Encode encodes the message. On a required-field failure the returned
// error is a *MissingFieldsError carrying the best-effort buffer.
func (m *Message) Encode() ([]byte, error) {
	e := wire.NewEncoder()
	if err := m.encodeTo(e); err != nil {
		var mfe *MissingFieldsError
		if errors.As(err, &mfe) {
			mfe.Encoded = e.Bytes()
		}
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeDelimited encodes the message prefixed with a varint of its length.
func (m *Message) EncodeDelimited() ([]byte, error) {
	payload, err := m.Encode()
	if err != nil {
		return nil, err
	}
	e := wire.NewEncoder()
	e.WriteVarint(uint64(len(payload)))
	return append(e.Bytes(), payload...), nil
}

// EncodeBase64 returns the standard-base64 form of the encoding.
func (m *Message) EncodeBase64() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeHex returns the hex form of the encoding.
func (m *Message) EncodeHex() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// encodeTo iterates declared fields in declaration order. A required field
// with a nil slot is recorded but encoding continues, so the caller
// receives a complete best-effort buffer alongside the error.
func (m *Message) encodeTo(e *wire.Encoder) error {
	var missing []string
	for _, f := range m.md.Fields() {
		v := m.fields[f.ID]
		if f.Rule == schema.LabelRequired && v == nil {
			missing = append(missing, f.NodeName())
			continue
		}
		if f.Type == nil {
			return fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
		}
		if v == nil {
			continue
		}
		if err := encodeField(f, v, e); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Missing: missing}
	}
	return nil
}

// decodeFrom decodes from the decoder's current position. length < 0 means
// "until buffer end" (or, for a group body, until the matching end-group
// tag). Unknown fields are skipped by wire type.
func (m *Message) decodeFrom(d *wire.Decoder, length int) error {
	end := d.Len()
	if length >= 0 {
		end = d.Pos() + length
	}
	endGroupID := int32(-1)
	for d.Pos() < end {
		id, wireType, err := d.ReadTag()
		if err != nil {
			return err
		}
		if wireType == schema.WireEndGroup {
			if !m.md.IsGroup() {
				return fmt.Errorf("%w: unexpected end-group tag for id %d", wire.ErrWireFormat, id)
			}
			endGroupID = id
			break
		}
		f := m.md.FieldByID(id)
		if f == nil {
			if err := d.SkipValue(wireType, id); err != nil {
				return err
			}
			continue
		}
		v, err := decodeField(f, wireType, d)
		if err != nil {
			return err
		}
		// decodeField returned a wire-valid value; verification stays off.
		if f.Rule == schema.LabelRepeated {
			m.addAll(f, v)
		} else {
			if err := m.set(f, v, false); err != nil {
				return err
			}
		}
	}
	if m.md.IsGroup() && endGroupID != m.md.GroupID {
		return fmt.Errorf("%w: group end id %d does not match group id %d",
			wire.ErrWireFormat, endGroupID, m.md.GroupID)
	}
	var missing []string
	for _, f := range m.md.Fields() {
		if f.Rule == schema.LabelRequired && m.fields[f.ID] == nil {
			missing = append(missing, f.NodeName())
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Missing: missing, Decoded: m}
	}
	return nil
}

// ToRaw deep-copies the field values into a plain mapping keyed by field
// name. Bytes values are omitted unless includeBytes is set; nested
// messages recurse.
func (m *Message) ToRaw(includeBytes bool) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range m.md.Fields() {
		v := m.fields[f.ID]
		if v == nil {
			continue
		}
		if elems, ok := v.([]interface{}); ok {
			raw := make([]interface{}, 0, len(elems))
			for _, el := range elems {
				if rv, ok := rawValue(el, includeBytes); ok {
					raw = append(raw, rv)
				}
			}
			out[f.NodeName()] = raw
			continue
		}
		if rv, ok := rawValue(v, includeBytes); ok {
			out[f.NodeName()] = rv
		}
	}
	return out
}

func rawValue(v interface{}, includeBytes bool) (interface{}, bool) {
	switch t := v.(type) {
	case *Message:
		return t.ToRaw(includeBytes), true
	case []byte:
		if !includeBytes {
			return nil, false
		}
		cp := make([]byte, len(t))
		copy(cp, t)
		return cp, true
	default:
		return v, true
	}
}
