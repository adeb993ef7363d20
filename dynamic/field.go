package dynamic

import (
	"fmt"

	"github.com/protodyn/protodyn/schema"
	"github.com/protodyn/protodyn/wire"
)

// encodeField verifies v and emits the field's complete encoding: nothing
// for absent or empty-repeated values, tag+payload per element otherwise.
// Packed repeated fields emit one length-delimited tag with all payloads
// contiguous.
func encodeField(f *schema.Field, v interface{}, e *wire.Encoder) error {
	verified, err := verifyValue(f, v, false)
	if err != nil {
		return wire.WrapField(err, f.NodeName())
	}
	if verified == nil {
		return nil
	}
	if f.Rule == schema.LabelRepeated {
		elems := verified.([]interface{})
		if len(elems) == 0 {
			return nil
		}
		if f.IsPacked() {
			e.WriteTag(f.ID, schema.WireBytes)
			mark := e.BeginLength()
			for _, el := range elems {
				if err := encodeValue(f, el, e); err != nil {
					return wire.WrapField(err, f.NodeName())
				}
			}
			e.EndLength(mark)
			return nil
		}
		for _, el := range elems {
			if err := encodeTagged(f, el, e); err != nil {
				return wire.WrapField(err, f.NodeName())
			}
		}
		return nil
	}
	if err := encodeTagged(f, verified, e); err != nil {
		return wire.WrapField(err, f.NodeName())
	}
	return nil
}

// encodeTagged emits tag then payload for one verified value. A group is
// framed by start/end-group tags around the body instead of a length
// prefix.
func encodeTagged(f *schema.Field, v interface{}, e *wire.Encoder) error {
	if f.Type.Name == "group" {
		e.WriteTag(f.ID, schema.WireStartGroup)
		if err := v.(*Message).encodeTo(e); err != nil {
			return err
		}
		e.WriteTag(f.ID, schema.WireEndGroup)
		return nil
	}
	e.WriteTag(f.ID, f.Type.WireType)
	return encodeValue(f, v, e)
}

// encodeValue emits only the payload for the field's declared type. v must
// already be in verified form.
func encodeValue(f *schema.Field, v interface{}, e *wire.Encoder) error {
	switch f.Type.Name {
	case "int32":
		// A negative int32 is sign-extended to 64 bits and emitted as a
		// full 10-byte varint, per the protobuf wire spec.
		e.WriteVarint(uint64(int64(v.(int32))))
	case "uint32":
		e.WriteVarint(uint64(v.(uint32)))
	case "sint32":
		e.WriteZigZag32(v.(int32))
	case "int64":
		e.WriteVarint(uint64(v.(int64)))
	case "uint64":
		e.WriteVarint(v.(uint64))
	case "sint64":
		e.WriteZigZag64(v.(int64))
	case "bool":
		if v.(bool) {
			e.WriteVarint(1)
		} else {
			e.WriteVarint(0)
		}
	case "enum":
		e.WriteVarint(uint64(int64(v.(int32))))
	case "fixed32":
		e.WriteFixed32(v.(uint32))
	case "sfixed32":
		e.WriteFixed32(uint32(v.(int32)))
	case "float":
		e.WriteFloat32(v.(float32))
	case "fixed64":
		e.WriteFixed64(v.(uint64))
	case "sfixed64":
		e.WriteFixed64(uint64(v.(int64)))
	case "double":
		e.WriteFloat64(v.(float64))
	case "string":
		e.WriteString(v.(string))
	case "bytes":
		e.WriteBytes(v.([]byte))
	case "message":
		mark := e.BeginLength()
		if err := v.(*Message).encodeTo(e); err != nil {
			return err
		}
		e.EndLength(mark)
	default:
		return fmt.Errorf("%w: field %s has no encoder for type %s", ErrUnresolvedType, f.NodeName(), f.Type.Name)
	}
	return nil
}

// decodeField checks the arrived wire type against the declared one and
// decodes one field occurrence. A packed-eligible repeated field may arrive
// length-delimited regardless of its declared wire type; in that case the
// whole packed run is decoded and returned as a []interface{}.
func decodeField(f *schema.Field, wireType schema.WireType, d *wire.Decoder) (interface{}, error) {
	if wireType != f.Type.WireType {
		if f.Rule == schema.LabelRepeated && wireType == schema.WireBytes && schema.IsPackedType(f.Type) {
			return decodePacked(f, d)
		}
		return nil, wire.WrapField(fmt.Errorf("%w: illegal wire type %d for field %s (expected %d)",
			wire.ErrWireFormat, wireType, f.NodeName(), f.Type.WireType), f.NodeName())
	}
	v, err := decodeValue(f, d)
	if err != nil {
		return nil, wire.WrapField(err, f.NodeName())
	}
	return v, nil
}

// decodePacked reads the length prefix and decodes contiguous payloads
// until the bounded window is exhausted.
func decodePacked(f *schema.Field, d *wire.Decoder) (interface{}, error) {
	length, err := d.ReadVarint()
	if err != nil {
		return nil, wire.WrapField(err, f.NodeName())
	}
	if uint64(d.Remaining()) < length {
		return nil, wire.WrapField(fmt.Errorf("%w: packed run of %d bytes exceeds remaining %d",
			wire.ErrWireFormat, length, d.Remaining()), f.NodeName())
	}
	end := d.Pos() + int(length)
	out := make([]interface{}, 0)
	for d.Pos() < end {
		v, err := decodeValue(f, d)
		if err != nil {
			return nil, wire.WrapField(err, f.NodeName())
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeValue reads one payload of the field's declared type. Integer
// results are masked to the declared width; message and group payloads
// recurse through the resolved message's factory.
func decodeValue(f *schema.Field, d *wire.Decoder) (interface{}, error) {
	switch f.Type.Name {
	case "int32":
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case "uint32":
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case "sint32":
		return d.ReadZigZag32()
	case "int64":
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case "uint64":
		return d.ReadVarint()
	case "sint64":
		return d.ReadZigZag64()
	case "bool":
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		return v != 0, nil
	case "enum":
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		id := int32(v)
		if !schema.GetConfig().AllowUnknownEnumNumberDecode {
			enum, ok := f.ResolvedType.(*schema.Enum)
			if !ok {
				return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
			}
			if enum.ValueByID(id) == nil {
				return nil, fmt.Errorf("%w: %d is not a value of %s", ErrIllegalEnumValue, id, schema.FQN(enum))
			}
		}
		return id, nil
	case "fixed32":
		return d.ReadFixed32()
	case "sfixed32":
		v, err := d.ReadFixed32()
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case "float":
		return d.ReadFloat32()
	case "fixed64":
		return d.ReadFixed64()
	case "sfixed64":
		v, err := d.ReadFixed64()
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case "double":
		return d.ReadFloat64()
	case "string":
		return d.ReadString()
	case "bytes":
		return d.ReadBytes()
	case "message":
		md, ok := f.ResolvedType.(*schema.Message)
		if !ok {
			return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
		}
		length, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		if uint64(d.Remaining()) < length {
			return nil, fmt.Errorf("%w: message of %d bytes exceeds remaining %d",
				wire.ErrWireFormat, length, d.Remaining())
		}
		factory, err := Build(md)
		if err != nil {
			return nil, err
		}
		m, err := factory.New()
		if err != nil {
			return nil, err
		}
		if err := m.decodeFrom(d, int(length)); err != nil {
			return nil, err
		}
		return m, nil
	case "group":
		md, ok := f.ResolvedType.(*schema.Message)
		if !ok {
			return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
		}
		factory, err := Build(md)
		if err != nil {
			return nil, err
		}
		m, err := factory.New()
		if err != nil {
			return nil, err
		}
		if err := m.decodeFrom(d, -1); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: field %s has no decoder for type %s", ErrUnresolvedType, f.NodeName(), f.Type.Name)
	}
}
