package dynamic

import (
	"errors"
	"fmt"
	"strings"
)

// Value and build errors.
var (
	ErrIllegalValue     = errors.New("illegal value")
	ErrIllegalEnumValue = errors.New("illegal enum value")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnresolvedType   = errors.New("unresolved type reference")
	ErrRequiredField    = errors.New("required field missing")
)

// MissingFieldsError reports required fields that were absent during encode
// or decode. Encoded carries the best-effort partially encoded buffer;
// Decoded the best-effort partially decoded message, so the caller may
// still inspect progress.
type MissingFieldsError struct {
	Missing []string
	Encoded []byte
	Decoded *Message
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return ErrRequiredField }
