package avro

import (
	"reflect"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/resolver"
	"github.com/oy3o/avro/schema"
)

type (
	encodeFunc func(e *codec.Encoder, v reflect.Value) error
	decodeFunc func(d codec.Decoder, v reflect.Value) error
	skipFunc   func(d codec.Decoder) error
)

// encoder, decoder and skipper are the nodes of the three compiled trees.
// Closures hold the node, not its function, so a node registered for a named
// schema can be called before its body has been compiled. That is how
// recursive schemas terminate.
type (
	encoder struct{ fn encodeFunc }
	decoder struct{ fn decodeFunc }
	skipper struct{ fn skipFunc }
)

func (n *encoder) encode(e *codec.Encoder, v reflect.Value) error { return n.fn(e, v) }
func (n *decoder) decode(d codec.Decoder, v reflect.Value) error  { return n.fn(d, v) }
func (n *skipper) skip(d codec.Decoder) error                    { return n.fn(d) }

// bundle is the compiled form of one schema bound to one runtime type.
// A nil direction is unavailable.
type bundle struct {
	encode *encoder
	decode *decoder
	skip   *skipper
}

type namedKey struct {
	name string
	t    reflect.Type
}

type resolveKey struct {
	writer, reader string
	t              reflect.Type
}

// compiler turns schema trees into closures. It is used by one goroutine for
// one compilation and then discarded.
type compiler struct {
	posix     bool
	surrogate resolver.Surrogate

	encoders map[namedKey]*encoder
	decoders map[resolveKey]*decoder
	failed   map[resolveKey]error
	skippers map[string]*skipper
}

func newCompiler(s *Settings) *compiler {
	return &compiler{
		posix:     s.UsePosixTime,
		surrogate: s.Surrogate,
		encoders:  make(map[namedKey]*encoder),
		decoders:  make(map[resolveKey]*decoder),
		failed:    make(map[resolveKey]error),
		skippers:  make(map[string]*skipper),
	}
}

// build compiles the directions requested for s bound to t. Decoding reads
// data written with s itself.
func (c *compiler) build(s schema.Schema, t reflect.Type, encode, decode bool) (*bundle, error) {
	b := &bundle{}
	var err error
	if encode {
		if b.encode, err = c.encoder(s, t); err != nil {
			return nil, err
		}
	}
	if decode {
		if b.decode, err = c.decoder(s, s, t); err != nil {
			return nil, err
		}
	}
	if b.skip, err = c.skipper(s); err != nil {
		return nil, err
	}
	return b, nil
}

// buildResolving compiles a decoder reading data written with writer into
// values of t, whose own schema is reader.
func (c *compiler) buildResolving(writer, reader schema.Schema, t reflect.Type) (*bundle, error) {
	dec, err := c.decoder(writer, reader, t)
	if err != nil {
		return nil, err
	}
	sk, err := c.skipper(writer)
	if err != nil {
		return nil, err
	}
	return &bundle{decode: dec, skip: sk}, nil
}

func fullName(s schema.Schema) string {
	if n, ok := schema.Unwrap(s).(schema.NamedSchema); ok {
		return n.Name().String()
	}
	return ""
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isByteArray(t reflect.Type) bool {
	return t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8
}
