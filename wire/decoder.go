package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/protodyn/protodyn/schema"
)

// Decoder handles low-level protobuf wire format decoding: a cursor over a
// caller-owned byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new wire format decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data, pos: 0}
}

// Pos returns the current read offset.
func (d *Decoder) Pos() int { return d.pos }

// Len returns the total length of the underlying buffer.
func (d *Decoder) Len() int { return len(d.buf) }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// ReadVarint decodes a varint from the current position.
func (d *Decoder) ReadVarint() (uint64, error) {
	var result uint64
	var shift uint

	for i := 0; i < 10; i++ { // max 10 bytes for a 64-bit varint
		if d.pos >= len(d.buf) {
			return 0, ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++

		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
		result |= uint64(b&0x7F) << shift
		if (b & 0x80) == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, ErrVarintTooLong
}

// ReadZigZag32 decodes a zigzag-encoded signed varint as int32.
func (d *Decoder) ReadZigZag32() (int32, error) {
	v, err := d.ReadVarint()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag32(v), nil
}

// ReadZigZag64 decodes a zigzag-encoded signed varint as int64.
func (d *Decoder) ReadZigZag64() (int64, error) {
	v, err := d.ReadVarint()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag64(v), nil
}

// ReadFixed32 decodes a 32-bit fixed-width value.
func (d *Decoder) ReadFixed32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, fmt.Errorf("%w: need 4 bytes for fixed32, have %d", ErrUnexpectedEOF, d.Remaining())
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// ReadFixed64 decodes a 64-bit fixed-width value.
func (d *Decoder) ReadFixed64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, fmt.Errorf("%w: need 8 bytes for fixed64, have %d", ErrUnexpectedEOF, d.Remaining())
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// ReadFloat32 decodes a 32-bit float from fixed32 data.
func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadFloat64 decodes a 64-bit float from fixed64 data.
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.ReadFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadBytes decodes a length-delimited byte array. The data is copied so
// the result does not alias the decode buffer.
func (d *Decoder) ReadBytes() ([]byte, error) {
	length, err := d.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytes length: %w", err)
	}
	if uint64(d.Remaining()) < length {
		return nil, fmt.Errorf("%w: bytes truncated, need %d bytes, have %d", ErrWireFormat, length, d.Remaining())
	}
	data := make([]byte, length)
	copy(data, d.buf[d.pos:d.pos+int(length)])
	d.pos += int(length)
	return data, nil
}

// ReadString decodes a length-delimited UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	data, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadTag reads a field tag and splits it into field number and wire type.
func (d *Decoder) ReadTag() (int32, schema.WireType, error) {
	tag, err := d.ReadVarint()
	if err != nil {
		return 0, 0, err
	}
	id, wt := ParseTag(Tag(tag))
	return id, wt, nil
}

// SkipValue skips one value of the given wire type. id is the field number
// the tag carried; it is only consulted for group skipping, where nested
// groups recurse and the terminating end-group id must match.
func (d *Decoder) SkipValue(wireType schema.WireType, id int32) error {
	switch wireType {
	case schema.WireVarint:
		for {
			if d.pos >= len(d.buf) {
				return ErrUnexpectedEOF
			}
			b := d.buf[d.pos]
			d.pos++
			if (b & 0x80) == 0 {
				return nil
			}
		}
	case schema.WireFixed64:
		if d.pos+8 > len(d.buf) {
			return fmt.Errorf("%w: not enough data to skip fixed64", ErrUnexpectedEOF)
		}
		d.pos += 8
		return nil
	case schema.WireBytes:
		length, err := d.ReadVarint()
		if err != nil {
			return err
		}
		if uint64(d.Remaining()) < length {
			return fmt.Errorf("%w: cannot skip %d bytes, only %d available", ErrWireFormat, length, d.Remaining())
		}
		d.pos += int(length)
		return nil
	case schema.WireStartGroup:
		return d.SkipGroup(id)
	case schema.WireFixed32:
		if d.pos+4 > len(d.buf) {
			return fmt.Errorf("%w: not enough data to skip fixed32", ErrUnexpectedEOF)
		}
		d.pos += 4
		return nil
	default:
		return fmt.Errorf("%w: unknown wire type %d", ErrWireFormat, wireType)
	}
}

// SkipGroup consumes tagged values until the end-group tag matching id.
// Nested groups recurse; an end-group tag with a different id is a fatal
// wire error.
func (d *Decoder) SkipGroup(id int32) error {
	for {
		nextID, wt, err := d.ReadTag()
		if err != nil {
			return err
		}
		if wt == schema.WireEndGroup {
			if nextID != id {
				return fmt.Errorf("%w: group end id %d does not match group start id %d", ErrWireFormat, nextID, id)
			}
			return nil
		}
		if err := d.SkipValue(wt, nextID); err != nil {
			return err
		}
	}
}
