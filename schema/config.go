package schema

import "os"

// Config controls optional behaviors of the reflection model and codec.
// Defaults preserve plain proto2 semantics.
type Config struct {
	// ConvertFieldsToCamelCase: when true, field names are rewritten from
	// snake_case to lowerCamelCase at construction time. The source name is
	// kept as the field's OriginalName and stays usable for lookups.
	ConvertFieldsToCamelCase bool

	// AllowUnknownEnumNumberDecode: when true (default), decoding an enum
	// field accepts numeric values not present in the enum definition and
	// surfaces them as their numeric value. When false, unknown enum
	// numbers fail the decode.
	AllowUnknownEnumNumberDecode bool
}

var config = Config{
	AllowUnknownEnumNumberDecode: true,
}

// SetConfig replaces the active configuration. Must be called before
// schemas are loaded; the camelCase toggle applies at field construction.
func SetConfig(c Config) { config = c }

// GetConfig returns the active configuration.
func GetConfig() Config { return config }

func init() {
	if v := os.Getenv("PROTODYN_CAMEL_CASE_FIELDS"); v == "1" || v == "true" {
		config.ConvertFieldsToCamelCase = true
	}
	if v := os.Getenv("PROTODYN_STRICT_ENUM_DECODE"); v == "1" || v == "true" {
		config.AllowUnknownEnumNumberDecode = false
	}
}
