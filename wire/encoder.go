package wire

import (
	"encoding/binary"
	"math"

	"github.com/protodyn/protodyn/schema"
)

// Encoder handles low-level protobuf wire format encoding. It appends to an
// internal buffer; fixed-width payloads are always little-endian.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0)}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset clears the encoder buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// WriteVarint encodes a uint64 as varint.
func (e *Encoder) WriteVarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteZigZag32 encodes a signed int32 with zigzag encoding.
func (e *Encoder) WriteZigZag32(v int32) { e.WriteVarint(EncodeZigZag32(v)) }

// WriteZigZag64 encodes a signed int64 with zigzag encoding.
func (e *Encoder) WriteZigZag64(v int64) { e.WriteVarint(EncodeZigZag64(v)) }

// WriteFixed32 encodes a 32-bit fixed-width value.
func (e *Encoder) WriteFixed32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteFixed64 encodes a 64-bit fixed-width value.
func (e *Encoder) WriteFixed64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteFloat32 encodes a 32-bit float as fixed32.
func (e *Encoder) WriteFloat32(v float32) { e.WriteFixed32(math.Float32bits(v)) }

// WriteFloat64 encodes a 64-bit float as fixed64.
func (e *Encoder) WriteFloat64(v float64) { e.WriteFixed64(math.Float64bits(v)) }

// WriteBytes encodes a byte array as length-delimited.
func (e *Encoder) WriteBytes(data []byte) {
	e.WriteVarint(uint64(len(data)))
	e.buf = append(e.buf, data...)
}

// WriteString encodes a string as length-delimited UTF-8 bytes.
func (e *Encoder) WriteString(s string) {
	e.WriteVarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteTag encodes a field tag.
func (e *Encoder) WriteTag(id int32, wireType schema.WireType) {
	e.WriteVarint(uint64(MakeTag(id, wireType)))
}

// BeginLength reserves a single byte for a forthcoming varint length prefix
// and returns a mark to pass to EndLength once the payload is written.
// Packed repeated fields and nested messages write their payload in place
// between the two calls instead of going through a scratch buffer.
func (e *Encoder) BeginLength() int {
	e.buf = append(e.buf, 0)
	return len(e.buf)
}

// EndLength backpatches the length prefix reserved by BeginLength. When the
// payload length needs a varint wider than the reserved byte, the payload
// is shifted right to make room.
func (e *Encoder) EndLength(mark int) {
	length := uint64(len(e.buf) - mark)
	n := VarintSize(length)
	if n > 1 {
		e.buf = append(e.buf, make([]byte, n-1)...)
		copy(e.buf[mark+n-1:], e.buf[mark:])
	}
	v := length
	for i := 0; i < n; i++ {
		b := byte(v)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf[mark-1+i] = b
	}
}

// UTILITY FUNCTIONS

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding.
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding.
func EncodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer.
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer.
func DecodeZigZag64(encoded uint64) int64 {
	return int64((encoded >> 1) ^ uint64(-int64(encoded&1)))
}

// VarintSize returns the number of bytes needed to encode the given varint.
func VarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}
