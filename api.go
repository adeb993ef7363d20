// Package protodyn provides schema-aware proto2 encoding and decoding
// without generated code: load .proto schemas into a reflection tree,
// build per-message runtime factories, and encode/decode wire-format
// bytes through them.
package protodyn

import (
	"fmt"
	"reflect"

	"github.com/protodyn/protodyn/dynamic"
	"github.com/protodyn/protodyn/registry"
	"github.com/protodyn/protodyn/schema"
)

// Protodyn provides schema-aware protobuf operations without generated code.
type Protodyn struct {
	registry *registry.Registry
}

// New creates a new Protodyn instance.
func New() *Protodyn {
	return &Protodyn{
		registry: registry.NewRegistry(),
	}
}

// LoadSchema loads a .proto file, or every .proto file under a directory.
func (p *Protodyn) LoadSchema(protoPath string) error {
	return p.registry.LoadSchema(protoPath)
}

// LoadSource loads .proto source text under the given name.
func (p *Protodyn) LoadSource(filename, source string) error {
	return p.registry.LoadSource(filename, source)
}

// Message returns the runtime factory for the named message type.
func (p *Protodyn) Message(messageType string) (*dynamic.Factory, error) {
	md, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, err
	}
	return dynamic.Build(md)
}

// Enum returns the name-to-id mapping for the named enum type.
func (p *Protodyn) Enum(enumType string) (map[string]int32, error) {
	ed, err := p.registry.GetEnum(enumType)
	if err != nil {
		return nil, err
	}
	return dynamic.BuildEnum(ed), nil
}

// Service builds a dispatcher for the named service, bound to the given
// transport.
func (p *Protodyn) Service(serviceType string, transport dynamic.Transport) (*dynamic.Dispatcher, error) {
	sd, err := p.registry.GetService(serviceType)
	if err != nil {
		return nil, err
	}
	return dynamic.NewDispatcher(sd, transport)
}

// Parse decodes protobuf bytes into a plain map using the schema.
func (p *Protodyn) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	factory, err := p.Message(messageType)
	if err != nil {
		return nil, err
	}
	msg, err := factory.Decode(data)
	if err != nil {
		return nil, err
	}
	return msg.ToRaw(true), nil
}

// Marshal encodes a map to protobuf bytes using the schema.
func (p *Protodyn) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	factory, err := p.Message(messageType)
	if err != nil {
		return nil, err
	}
	msg, err := factory.NewFromMap(data)
	if err != nil {
		return nil, err
	}
	return msg.Encode()
}

// Unmarshal decodes protobuf bytes into a Go struct using reflection. The
// struct type's name selects the message type; exported field names must
// match schema field names.
func (p *Protodyn) Unmarshal(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}

	messageType := rv.Elem().Type().Name()
	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}

	return p.mapToStruct(result, rv.Elem())
}

// mapToStruct maps parsed result to struct fields.
func (p *Protodyn) mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := data[field.Name]
		if !ok {
			value, ok = data[toSnakeCase(field.Name)]
		}
		if !ok {
			value, ok = data[schema.ToLowerCamel(field.Name)]
		}
		if ok {
			if err := p.setFieldValue(fieldValue, value); err != nil {
				return fmt.Errorf("failed to set field %s: %v", field.Name, err)
			}
		}
	}
	return nil
}

// toSnakeCase converts an exported Go field name to its snake_case schema
// form.
func toSnakeCase(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			c = c - 'A' + 'a'
		}
		out = append(out, c)
	}
	return string(out)
}

// setFieldValue sets a struct field with type conversion.
func (p *Protodyn) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// ===== REGISTRY ACCESS =====

// GetRegistry returns the underlying schema registry.
func (p *Protodyn) GetRegistry() *registry.Registry { return p.registry }

// ListMessages returns all registered message names.
func (p *Protodyn) ListMessages() []string { return p.registry.ListMessages() }

// ListEnums returns all registered enum names.
func (p *Protodyn) ListEnums() []string { return p.registry.ListEnums() }

// ListServices returns all registered service names.
func (p *Protodyn) ListServices() []string { return p.registry.ListServices() }

// SetConfig replaces the active schema configuration (camelCase field
// names, strict enum decode). Must be called before schemas are loaded.
func SetConfig(c schema.Config) { schema.SetConfig(c) }
