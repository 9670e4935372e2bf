package schema

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrSchema is matched by every schema construction or resolution failure.
var ErrSchema = errors.New("avro: schema error")

// SchemaError reports a type or schema text that cannot be turned into a schema.
type SchemaError struct {
	Type   reflect.Type // offending runtime type, nil for schema text
	Reason string
	Err    error // underlying cause, if any
}

// Errorf builds a SchemaError for t.
func Errorf(t reflect.Type, format string, args ...any) *SchemaError {
	return &SchemaError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

func (e *SchemaError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Type != nil {
		return fmt.Sprintf("avro: schema error: %s: %s", e.Type, msg)
	}
	return "avro: schema error: " + msg
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func (e *SchemaError) Unwrap() error { return e.Err }
