package dynamic

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/protodyn/protodyn/schema"
)

// verifyValue validates and coerces v to the in-memory form of the field's
// wire representation: int32/uint32/int64/uint64/float32/float64/bool/
// string/[]byte, int32 for enums, *Message for message and group fields.
// Repeated fields yield a []interface{} of verified elements; a single
// value is wrapped. skipRepeated is set when verifying one element of a
// repeated field.
func verifyValue(f *schema.Field, v interface{}, skipRepeated bool) (interface{}, error) {
	if v == nil {
		if f.Rule == schema.LabelRequired {
			return nil, fmt.Errorf("%w: required field %s cannot be null", ErrIllegalValue, f.NodeName())
		}
		return nil, nil
	}
	if f.Type == nil {
		return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
	}

	if f.Rule == schema.LabelRepeated && !skipRepeated {
		out := make([]interface{}, 0)
		if elems, ok := sequenceOf(f, v); ok {
			for i, el := range elems {
				ev, err := verifyValue(f, el, true)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out = append(out, ev)
			}
			return out, nil
		}
		ev, err := verifyValue(f, v, true)
		if err != nil {
			return nil, err
		}
		return append(out, ev), nil
	}
	if _, isSeq := sequenceOf(f, v); isSeq && f.Rule != schema.LabelRepeated {
		return nil, fmt.Errorf("%w: field %s is not repeated, got a sequence", ErrIllegalValue, f.NodeName())
	}

	switch f.Type.Name {
	case "int32", "sint32", "sfixed32":
		n, err := coerceToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return int32(n), nil
	case "uint32", "fixed32":
		n, err := coerceToUint64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return uint32(n), nil
	case "int64", "sint64", "sfixed64":
		n, err := coerceToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return n, nil
	case "uint64", "fixed64":
		n, err := coerceToUint64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return n, nil
	case "bool":
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if strings.EqualFold(t, "true") {
				return true, nil
			}
			if strings.EqualFold(t, "false") {
				return false, nil
			}
			return nil, fmt.Errorf("%w: field %s: not a boolean: %q", ErrIllegalValue, f.NodeName(), t)
		default:
			return nil, fmt.Errorf("%w: field %s: not a boolean: %T", ErrIllegalValue, f.NodeName(), v)
		}
	case "float":
		n, err := coerceToFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return float32(n), nil
	case "double":
		n, err := coerceToFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalValue, f.NodeName(), err)
		}
		return n, nil
	case "string":
		switch t := v.(type) {
		case string:
			return t, nil
		case []byte:
			return string(t), nil
		default:
			return nil, fmt.Errorf("%w: field %s: not a string: %T", ErrIllegalValue, f.NodeName(), v)
		}
	case "bytes":
		switch t := v.(type) {
		case []byte:
			return t, nil
		case string:
			return []byte(t), nil
		default:
			return nil, fmt.Errorf("%w: field %s: not bytes: %T", ErrIllegalValue, f.NodeName(), v)
		}
	case "enum":
		return verifyEnumValue(f, v)
	case "message", "group":
		return verifyMessageValue(f, v)
	default:
		return nil, fmt.Errorf("%w: field %s: unsupported type %s", ErrIllegalValue, f.NodeName(), f.Type.Name)
	}
}

// verifyEnumValue accepts a declared value name or a declared value id and
// returns the numeric id.
func verifyEnumValue(f *schema.Field, v interface{}) (interface{}, error) {
	enum, ok := f.ResolvedType.(*schema.Enum)
	if !ok {
		return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
	}
	if name, ok := v.(string); ok {
		if ev := enum.ValueByName(name); ev != nil {
			return ev.ID, nil
		}
		return nil, fmt.Errorf("%w: %q is not a value of %s", ErrIllegalEnumValue, name, schema.FQN(enum))
	}
	n, err := coerceToInt64(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %v", ErrIllegalEnumValue, f.NodeName(), err)
	}
	if ev := enum.ValueByID(int32(n)); ev != nil {
		return ev.ID, nil
	}
	return nil, fmt.Errorf("%w: %d is not a value of %s", ErrIllegalEnumValue, n, schema.FQN(enum))
}

// verifyMessageValue accepts an instance of the resolved message's factory
// or a plain key/value mapping constructed through that factory.
func verifyMessageValue(f *schema.Field, v interface{}) (interface{}, error) {
	md, ok := f.ResolvedType.(*schema.Message)
	if !ok {
		return nil, fmt.Errorf("%w: field %s", ErrUnresolvedType, schema.FQN(f))
	}
	switch t := v.(type) {
	case *Message:
		if t.md != md {
			return nil, fmt.Errorf("%w: field %s: message of type %s, want %s",
				ErrIllegalValue, f.NodeName(), schema.FQN(t.md), schema.FQN(md))
		}
		return t, nil
	case map[string]interface{}:
		factory, err := Build(md)
		if err != nil {
			return nil, err
		}
		return factory.NewFromMap(t)
	default:
		return nil, fmt.Errorf("%w: field %s: not a message: %T", ErrIllegalValue, f.NodeName(), v)
	}
}

// sequenceOf reports whether v is a sequence of elements for field f,
// returning the normalized element slice. A []byte is the scalar payload of
// a bytes field, never a sequence.
func sequenceOf(f *schema.Field, v interface{}) ([]interface{}, bool) {
	if _, isBytes := v.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Helpers to coerce liberal inputs to integers (accept exponent/float forms
// if integral).

func coerceToInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("unsigned value %d overflows signed field", t)
		}
		return int64(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, err
		}
		return integralFloatToInt64(f)
	case float32:
		return integralFloatToInt64(float64(t))
	case float64:
		return integralFloatToInt64(t)
	case string:
		if strings.ContainsAny(t, ".eE") {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, err
			}
			return integralFloatToInt64(f)
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected integer-like, got %T", v)
	}
}

func coerceToUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", t)
		}
		return uint64(t), nil
	case int32:
		if t < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", t)
		}
		return uint64(t), nil
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", t)
		}
		return uint64(t), nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, err
		}
		return integralFloatToUint64(f)
	case float32:
		return integralFloatToUint64(float64(t))
	case float64:
		return integralFloatToUint64(t)
	case string:
		if strings.ContainsAny(t, ".eE") {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return 0, err
			}
			return integralFloatToUint64(f)
		}
		return strconv.ParseUint(t, 10, 64)
	default:
		return 0, fmt.Errorf("expected unsigned-integer-like, got %T", v)
	}
}

func coerceToFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		return strconv.ParseFloat(t.String(), 64)
	case string:
		// ParseFloat recognizes "Inf", "-Inf" and "NaN"; all three are
		// legal float field values.
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("expected float-like, got %T", v)
	}
}

// integralFloatToInt64 rejects NaN and fractional inputs for integer
// fields.
func integralFloatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for integer field")
	}
	return int64(f), nil
}

func integralFloatToUint64(f float64) (uint64, error) {
	if math.IsNaN(f) || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integer numeric for unsigned field")
	}
	return uint64(f), nil
}
