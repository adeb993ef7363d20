package wire

import "github.com/protodyn/protodyn/schema"

// Tag represents a protobuf field tag (field number + wire type).
type Tag uint64

// MakeTag creates a tag from field number and wire type.
func MakeTag(id int32, wireType schema.WireType) Tag {
	return Tag(uint64(id)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type.
func ParseTag(tag Tag) (int32, schema.WireType) {
	return int32(tag >> 3), schema.WireType(tag & 0x7)
}
