// Package codec implements the Avro binary encoding: zigzag varints,
// little-endian floating point, length-prefixed bytes and strings, and
// block-chunked collections, over streams and in-memory spans.
package codec

import (
	"encoding"
	"io"
)

// Marshaler defines the ways a value encodes itself.
type Marshaler interface {
	// encoding.BinaryMarshaler allocates and returns a new byte slice.
	encoding.BinaryMarshaler
	// io.WriterTo streams the encoding without holding it in memory.
	io.WriterTo

	// MarshalTo encodes into a pre-allocated buffer, returning
	// io.ErrShortWrite if the buffer is too small.
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler defines the ways a value decodes itself.
type Unmarshaler interface {
	// encoding.BinaryUnmarshaler decodes exactly one value from data.
	encoding.BinaryUnmarshaler
	// io.ReaderFrom decodes one value from a stream and reports the bytes it
	// consumed.
	io.ReaderFrom
}

// Codec aggregates both directions.
type Codec interface {
	Marshaler
	Unmarshaler
}
