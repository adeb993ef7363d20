package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/protodyn/protodyn/schema"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 21, 1<<35 - 1, math.MaxUint64}
	for _, v := range values {
		e := NewEncoder()
		e.WriteVarint(v)

		// Cross-check against the reference implementation.
		want := protowire.AppendVarint(nil, v)
		if !bytes.Equal(e.Bytes(), want) {
			t.Errorf("WriteVarint(%d) = % X, want % X", v, e.Bytes(), want)
		}

		d := NewDecoder(e.Bytes())
		got, err := d.ReadVarint()
		if err != nil {
			t.Fatalf("ReadVarint(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
		if d.Remaining() != 0 {
			t.Errorf("residue after reading varint %d", v)
		}
	}
}

func TestVarintNegativeIsTenBytes(t *testing.T) {
	e := NewEncoder()
	neg := int64(-1)
	e.WriteVarint(uint64(neg))
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	if !bytes.Equal(e.Bytes(), want) {
		t.Errorf("varint(-1) = % X, want % X", e.Bytes(), want)
	}
}

func TestVarintErrors(t *testing.T) {
	if _, err := NewDecoder(nil).ReadVarint(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("empty buffer: %v", err)
	}
	if _, err := NewDecoder([]byte{0x80, 0x80}).ReadVarint(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("truncated varint: %v", err)
	}
	tooLong := bytes.Repeat([]byte{0x80}, 10)
	if _, err := NewDecoder(append(tooLong, 0x01)).ReadVarint(); !errors.Is(err, ErrVarintTooLong) {
		t.Errorf("11-byte varint: %v", err)
	}
}

func TestZigZag(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2, math.MinInt32, math.MaxInt32} {
		if got := DecodeZigZag32(EncodeZigZag32(v)); got != v {
			t.Errorf("zigzag32 round trip %d -> %d", v, got)
		}
		// The reference 64-bit mapping, truncated to 32 bits, agrees for
		// every int32 including the extremes.
		if got := EncodeZigZag32(v); got != protowire.EncodeZigZag(int64(v))&0xFFFFFFFF {
			t.Errorf("zigzag32(%d) = %d", v, got)
		}
	}
	for _, v := range []int64{0, -1, 1, math.MinInt64, math.MaxInt64} {
		if got := DecodeZigZag64(EncodeZigZag64(v)); got != v {
			t.Errorf("zigzag64 round trip %d -> %d", v, got)
		}
		if got := EncodeZigZag64(v); got != protowire.EncodeZigZag(v) {
			t.Errorf("zigzag64(%d) = %d, want %d", v, got, protowire.EncodeZigZag(v))
		}
	}
}

func TestFixedRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteFixed32(0xDEADBEEF)
	e.WriteFixed64(0x0123456789ABCDEF)
	e.WriteFloat32(float32(1.5))
	e.WriteFloat64(-2.25)

	d := NewDecoder(e.Bytes())
	if v, err := d.ReadFixed32(); err != nil || v != 0xDEADBEEF {
		t.Errorf("fixed32 = %x, %v", v, err)
	}
	if v, err := d.ReadFixed64(); err != nil || v != 0x0123456789ABCDEF {
		t.Errorf("fixed64 = %x, %v", v, err)
	}
	if v, err := d.ReadFloat32(); err != nil || v != 1.5 {
		t.Errorf("float32 = %v, %v", v, err)
	}
	if v, err := d.ReadFloat64(); err != nil || v != -2.25 {
		t.Errorf("float64 = %v, %v", v, err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteBytes([]byte{1, 2, 3})
	e.WriteString("héllo")

	d := NewDecoder(e.Bytes())
	b, err := d.ReadBytes()
	if err != nil || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("bytes = % X, %v", b, err)
	}
	s, err := d.ReadString()
	if err != nil || s != "héllo" {
		t.Errorf("string = %q, %v", s, err)
	}

	if _, err := NewDecoder([]byte{0x05, 0x01}).ReadBytes(); !errors.Is(err, ErrWireFormat) {
		t.Errorf("over-long length: %v", err)
	}
}

func TestTag(t *testing.T) {
	e := NewEncoder()
	e.WriteTag(1, schema.WireBytes)
	want := protowire.AppendTag(nil, 1, protowire.BytesType)
	if !bytes.Equal(e.Bytes(), want) {
		t.Errorf("tag = % X, want % X", e.Bytes(), want)
	}

	d := NewDecoder(e.Bytes())
	id, wt, err := d.ReadTag()
	if err != nil || id != 1 || wt != schema.WireBytes {
		t.Errorf("ReadTag = %d, %d, %v", id, wt, err)
	}
}

func TestEndLengthBackpatch(t *testing.T) {
	// Payload below 128 bytes keeps the reserved single byte.
	e := NewEncoder()
	mark := e.BeginLength()
	e.WriteString("ab")
	e.EndLength(mark)
	if !bytes.Equal(e.Bytes(), []byte{0x03, 0x02, 'a', 'b'}) {
		t.Errorf("short payload = % X", e.Bytes())
	}

	// Payload above 127 bytes forces the contents to shift right.
	e = NewEncoder()
	e.WriteTag(1, schema.WireBytes)
	mark = e.BeginLength()
	payload := bytes.Repeat([]byte{0xAA}, 200)
	for _, b := range payload {
		e.WriteVarint(uint64(b & 0x7F))
	}
	e.EndLength(mark)

	d := NewDecoder(e.Bytes())
	if _, _, err := d.ReadTag(); err != nil {
		t.Fatal(err)
	}
	length, err := d.ReadVarint()
	if err != nil {
		t.Fatal(err)
	}
	if int(length) != 200 || d.Remaining() != 200 {
		t.Errorf("backpatched length = %d, remaining %d", length, d.Remaining())
	}
}

func TestSkipValue(t *testing.T) {
	e := NewEncoder()
	e.WriteVarint(300)
	e.WriteFixed32(7)
	e.WriteFixed64(8)
	e.WriteBytes([]byte("xyz"))

	d := NewDecoder(e.Bytes())
	for _, wt := range []schema.WireType{schema.WireVarint, schema.WireFixed32, schema.WireFixed64, schema.WireBytes} {
		if err := d.SkipValue(wt, 1); err != nil {
			t.Fatalf("SkipValue(%d): %v", wt, err)
		}
	}
	if d.Remaining() != 0 {
		t.Errorf("residue after skipping: %d bytes", d.Remaining())
	}
}

func TestSkipGroup(t *testing.T) {
	// Group id 2 containing a varint field and a nested group id 3.
	e := NewEncoder()
	e.WriteTag(1, schema.WireVarint)
	e.WriteVarint(5)
	e.WriteTag(3, schema.WireStartGroup)
	e.WriteTag(4, schema.WireVarint)
	e.WriteVarint(6)
	e.WriteTag(3, schema.WireEndGroup)
	e.WriteTag(2, schema.WireEndGroup)

	d := NewDecoder(e.Bytes())
	if err := d.SkipGroup(2); err != nil {
		t.Fatalf("SkipGroup: %v", err)
	}
	if d.Remaining() != 0 {
		t.Errorf("residue after group skip: %d bytes", d.Remaining())
	}

	// Mismatched end-group id is fatal.
	e = NewEncoder()
	e.WriteTag(9, schema.WireEndGroup)
	if err := NewDecoder(e.Bytes()).SkipGroup(2); !errors.Is(err, ErrWireFormat) {
		t.Errorf("mismatched end group: %v", err)
	}
}

func TestWrapField(t *testing.T) {
	err := WrapField(ErrUnexpectedEOF, "inner")
	err = WrapField(err, "outer")
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("not a FieldError: %v", err)
	}
	if len(fe.FieldPath) != 2 || fe.FieldPath[0] != "outer" || fe.FieldPath[1] != "inner" {
		t.Errorf("path = %v", fe.FieldPath)
	}
	if !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("lost the underlying error: %v", err)
	}
}
