// Package resolver maps Go types onto Avro schemas.
package resolver

import (
	"fmt"
	"reflect"

	"github.com/oy3o/avro/schema"
)

// Options carries the settings a Resolver needs besides the type itself.
type Options struct {
	// KnownTypes lists concrete types that may appear in interface-typed slots.
	KnownTypes []reflect.Type
	// Surrogate substitutes types that cannot be represented directly.
	Surrogate Surrogate
}

// Resolver produces the schema of a runtime type.
//
// Implementations must be pure: the same type and options always yield an
// equivalent schema. Failures are reported as *schema.SchemaError.
type Resolver interface {
	Resolve(t reflect.Type, opts Options) (schema.Schema, error)
}

// Surrogate replaces a type with a stand-in that can be represented, and
// converts values between the two.
type Surrogate interface {
	// SurrogateType returns the stand-in for t, or false to keep t.
	SurrogateType(t reflect.Type) (reflect.Type, bool)
	// ToSurrogate converts a value of the original type before encoding.
	ToSurrogate(v any) (any, error)
	// FromSurrogate converts a decoded stand-in back to the original type.
	FromSurrogate(v any, original reflect.Type) (any, error)
}

// Enumerator is implemented by integer types encoded as Avro enums. The
// integer value is the index into the returned symbols.
type Enumerator interface {
	AvroSymbols() []string
}

// Namer is implemented by types that choose their own Avro full name.
type Namer interface {
	AvroName() string
}

// NewSurrogate returns a Surrogate standing in S for T.
func NewSurrogate[T, S any](to func(T) (S, error), from func(S) (T, error)) Surrogate {
	return &funcSurrogate[T, S]{to: to, from: from}
}

type funcSurrogate[T, S any] struct {
	to   func(T) (S, error)
	from func(S) (T, error)
}

func (s *funcSurrogate[T, S]) SurrogateType(t reflect.Type) (reflect.Type, bool) {
	if t == reflect.TypeFor[T]() {
		return reflect.TypeFor[S](), true
	}
	return nil, false
}

func (s *funcSurrogate[T, S]) ToSurrogate(v any) (any, error) {
	original, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("surrogate: got %T, want %s", v, reflect.TypeFor[T]())
	}
	return s.to(original)
}

func (s *funcSurrogate[T, S]) FromSurrogate(v any, _ reflect.Type) (any, error) {
	stand, ok := v.(S)
	if !ok {
		return nil, fmt.Errorf("surrogate: got %T, want %s", v, reflect.TypeFor[S]())
	}
	return s.from(stand)
}
