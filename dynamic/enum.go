package dynamic

import "github.com/protodyn/protodyn/schema"

var builtEnums = make(map[*schema.Enum]map[string]int32)

// BuildEnum returns the runtime mapping from value name to id for e,
// building and caching it on first use. Declaration order is preserved by
// the underlying node. The returned map is the cached one, shared by every
// caller; it is not a copy.
func BuildEnum(e *schema.Enum) map[string]int32 {
	if m, ok := builtEnums[e]; ok {
		return m
	}
	return RebuildEnum(e)
}

// RebuildEnum builds e's mapping unconditionally, replacing any cached one.
func RebuildEnum(e *schema.Enum) map[string]int32 {
	m := make(map[string]int32, len(e.Values()))
	for _, v := range e.Values() {
		m[v.NodeName()] = v.ID
	}
	builtEnums[e] = m
	return m
}
