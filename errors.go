package avro

import (
	"errors"
	"fmt"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/schema"
)

var (
	// ErrSchema matches failures to resolve, parse or bind a schema. They are
	// reported by Create and CreateDeserializerOnly, never later.
	ErrSchema = schema.ErrSchema

	// ErrCorrupt matches malformed input: an overlong varint, an out-of-range
	// union or enum index, truncated data.
	ErrCorrupt = codec.ErrCorrupt

	// ErrValueMismatch indicates a value that its schema cannot carry: no union
	// branch accepts it, a fixed value has the wrong length, a number does not
	// fit its target.
	ErrValueMismatch = errors.New("avro: value does not match schema")

	// ErrFormat indicates that a string could not be parsed back into the type
	// it represents.
	ErrFormat = errors.New("avro: malformed string value")

	// ErrConfiguration indicates use of a direction disabled in the settings.
	ErrConfiguration = errors.New("avro: operation disabled by settings")
)

// SchemaError carries the offending type and the reason.
type SchemaError = schema.SchemaError

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValueMismatch, fmt.Sprintf(format, args...))
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

func malformed(s string, target any, err error) error {
	return fmt.Errorf("%w: cannot parse %q as %v: %w", ErrFormat, s, target, err)
}
