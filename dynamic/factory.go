package dynamic

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/protodyn/protodyn/schema"
	"github.com/protodyn/protodyn/wire"
)

// Factory materializes runtime values for one message type. Factories are
// cached per Message node; Build is idempotent until Rebuild discards the
// cached artifact. Callers in concurrent hosts must build ahead of time.
type Factory struct {
	md *schema.Message
}

var builtFactories = make(map[*schema.Message]*Factory)

// Build returns the factory for md, building it on first use. Nested
// messages and enums are built recursively before the parent factory is
// returned; a field whose type reference was never resolved fails the
// build.
func Build(md *schema.Message) (*Factory, error) {
	if f, ok := builtFactories[md]; ok {
		return f, nil
	}
	return Rebuild(md)
}

// Rebuild builds md's factory unconditionally, replacing any cached one.
func Rebuild(md *schema.Message) (*Factory, error) {
	for _, f := range md.Fields() {
		if !f.Resolved() {
			return nil, fmt.Errorf("%w: field %s (type %s)", ErrUnresolvedType, schema.FQN(f), f.TypeName)
		}
	}
	factory := &Factory{md: md}
	// Register before recursing so self-referential message types
	// terminate.
	builtFactories[md] = factory
	for _, c := range md.Children() {
		switch t := c.(type) {
		case *schema.Message:
			if _, err := Build(t); err != nil {
				delete(builtFactories, md)
				return nil, err
			}
		case *schema.Enum:
			BuildEnum(t)
		}
	}
	return factory, nil
}

// Descriptor returns the message node the factory was built from.
func (f *Factory) Descriptor() *schema.Message { return f.md }

// New creates an empty message: every non-repeated slot nil, every repeated
// slot an empty sequence, then any declared field defaults applied through
// the verified set path.
func (f *Factory) New() (*Message, error) {
	m := &Message{
		md:     f.md,
		fields: make(map[int32]interface{}),
	}
	for _, fld := range f.md.Fields() {
		if fld.Rule == schema.LabelRepeated {
			m.fields[fld.ID] = []interface{}{}
		} else {
			m.fields[fld.ID] = nil
		}
	}
	for _, fld := range f.md.Fields() {
		dv, ok := fld.Options["default"]
		if !ok {
			continue
		}
		if err := m.set(fld, dv, true); err != nil {
			return nil, wire.WrapField(err, fld.NodeName())
		}
	}
	return m, nil
}

// NewFromMap creates a message and applies the mapping's entries through
// Set. Keys may use either the registered or the source field name; an
// unknown key fails.
func (f *Factory) NewFromMap(values map[string]interface{}) (*Message, error) {
	m, err := f.New()
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		if err := m.Set(k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewFromValues creates a message from positional field values, mapped to
// declared fields in declaration order.
func (f *Factory) NewFromValues(values ...interface{}) (*Message, error) {
	fields := f.md.Fields()
	if len(values) > len(fields) {
		return nil, fmt.Errorf("%w: %d positional values for %d fields of %s",
			ErrIllegalValue, len(values), len(fields), schema.FQN(f.md))
	}
	m, err := f.New()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := m.set(fields[i], v, true); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Decode decodes one message from data. On a required-field failure the
// returned error is a *MissingFieldsError carrying the best-effort decoded
// message.
func (f *Factory) Decode(data []byte) (*Message, error) {
	m, err := f.New()
	if err != nil {
		return nil, err
	}
	d := wire.NewDecoder(data)
	if err := m.decodeFrom(d, -1); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeBase64 decodes a message from its standard-base64 text form.
func (f *Factory) DecodeBase64(s string) (*Message, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return f.Decode(data)
}

// DecodeHex decodes a message from its hex text form.
func (f *Factory) DecodeHex(s string) (*Message, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return f.Decode(data)
}

// DecodeDelimited reads a varint length, decodes that many bytes as one
// message, and returns the total number of bytes consumed so callers can
// advance through a concatenated stream.
func (f *Factory) DecodeDelimited(data []byte) (*Message, int, error) {
	d := wire.NewDecoder(data)
	length, err := d.ReadVarint()
	if err != nil {
		return nil, 0, err
	}
	if uint64(d.Remaining()) < length {
		return nil, 0, fmt.Errorf("%w: delimited message of %d bytes exceeds remaining %d",
			wire.ErrWireFormat, length, d.Remaining())
	}
	m, err := f.New()
	if err != nil {
		return nil, 0, err
	}
	if err := m.decodeFrom(d, int(length)); err != nil {
		return nil, 0, err
	}
	return m, d.Pos(), nil
}
