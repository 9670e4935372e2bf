package avro

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/resolver"
	"github.com/oy3o/avro/schema"
)

var (
	errNoSerializer   = fmt.Errorf("%w: serialization is not supported, change the serializer settings", ErrConfiguration)
	errNoDeserializer = fmt.Errorf("%w: deserialization is not supported, change the serializer settings", ErrConfiguration)
)

// Serializer converts values of T to and from Avro binary data. It is
// immutable and safe for concurrent use.
type Serializer[T any] struct {
	writer schema.Schema
	reader schema.Schema
	bundle *bundle
}

// Create builds a Serializer whose schema is resolved from T. Nil settings
// mean DefaultSettings().
func Create[T any](settings *Settings) (*Serializer[T], error) {
	s := settings.normalize()
	t := reflect.TypeFor[T]()
	key, ok := s.key()

	c, result, err := lookup(cacheKey{t: t, settings: key}, ok && s.UseCache, func() (*compiled, error) {
		defer observe(modeCreate, time.Now())
		sch, err := resolve(s, t)
		if err != nil {
			return nil, err
		}
		b, err := newCompiler(s).build(sch, t, s.GenerateSerializer, s.GenerateDeserializer)
		if err != nil {
			return nil, err
		}
		return &compiled{writer: sch, reader: sch, bundle: b}, nil
	})
	return finish[T](s, t, result, c, err)
}

// CreateDeserializerOnly builds a Serializer that reads data written with
// writerSchema, given as Avro JSON, into values of T. Record fields are
// matched by name and numeric types are promoted following the Avro schema
// resolution rules. The result cannot serialize.
func CreateDeserializerOnly[T any](writerSchema string, settings *Settings) (*Serializer[T], error) {
	s := settings.normalize()
	t := reflect.TypeFor[T]()

	w, err := schema.Parse(writerSchema)
	if err != nil {
		return finish[T](s, t, lookupBypass, nil, err)
	}
	key, ok := s.key()

	c, result, err := lookup(cacheKey{writer: w.String(), t: t, settings: key}, ok && s.UseCache, func() (*compiled, error) {
		defer observe(modeDeserializerOnly, time.Now())
		reader, err := resolve(s, t)
		if err != nil {
			return nil, err
		}
		b, err := newCompiler(s).buildResolving(w, reader, t)
		if err != nil {
			return nil, err
		}
		return &compiled{writer: w, reader: reader, bundle: b}, nil
	})
	return finish[T](s, t, result, c, err)
}

func resolve(s *Settings, t reflect.Type) (schema.Schema, error) {
	sch, err := s.Resolver.Resolve(t, resolver.Options{KnownTypes: s.KnownTypes, Surrogate: s.Surrogate})
	if err != nil && !errors.Is(err, ErrSchema) {
		err = &SchemaError{Type: t, Reason: "resolver failed", Err: err}
	}
	return sch, err
}

func observe(mode string, start time.Time) {
	CompileDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func finish[T any](s *Settings, t reflect.Type, result string, c *compiled, err error) (*Serializer[T], error) {
	log := s.Logger.With(zap.Stringer("type", t))
	if err != nil {
		CompileErrors.Inc()
		log.Warn("serializer construction failed", zap.Error(err))
		return nil, err
	}
	CacheLookups.WithLabelValues(result).Inc()
	if ce := log.Check(zap.DebugLevel, "serializer ready"); ce != nil {
		ce.Write(
			zap.String("result", result),
			zap.String("fingerprint", fmt.Sprintf("%016x", schema.Fingerprint(c.writer))),
			zap.Bool("serialize", c.bundle.encode != nil),
			zap.Bool("deserialize", c.bundle.decode != nil),
		)
	}
	return &Serializer[T]{writer: c.writer, reader: c.reader, bundle: c.bundle}, nil
}

// WriterSchema returns the schema of the data: resolved from T for Create,
// parsed from the given text for CreateDeserializerOnly.
func (s *Serializer[T]) WriterSchema() schema.Schema { return s.writer }

// ReaderSchema returns the schema resolved from T.
func (s *Serializer[T]) ReaderSchema() schema.Schema { return s.reader }

// Serialize writes the encoding of v to w and flushes any buffer it created.
// When w is a *codec.Encoder its buffer is shared and left for the owner to
// flush.
func (s *Serializer[T]) Serialize(w io.Writer, v T) error {
	_, err := s.writeTo(w, v)
	return err
}

func (s *Serializer[T]) writeTo(w io.Writer, v T) (int64, error) {
	if s.bundle.encode == nil {
		return 0, errNoSerializer
	}
	e, err := codec.NewEncoder(w)
	if err != nil {
		return 0, err
	}
	if err := s.bundle.encode.encode(e, reflect.ValueOf(&v).Elem()); err != nil {
		return e.Count(), err
	}
	return e.Result()
}

// Marshal returns the encoding of v.
func (s *Serializer[T]) Marshal(v T) ([]byte, error) {
	if s.bundle.encode == nil {
		return nil, errNoSerializer
	}
	buf := codec.GetBuffer()
	defer codec.PutBuffer(buf)
	if err := s.Serialize(buf, v); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// MarshalTo encodes v into p and returns the number of bytes written. A p too
// small for the value yields io.ErrShortWrite.
func (s *Serializer[T]) MarshalTo(p []byte, v T) (int, error) {
	w := codec.NewBytesWriter(p)
	if err := s.Serialize(w, v); err != nil {
		return w.Len(), err
	}
	return w.Len(), nil
}

// Deserialize reads one value from r. Readers that are already buffered
// (*bufio.Reader, *bytes.Reader, *bytes.Buffer, codec decoders) are read
// in place, so consecutive values can be read from them; other readers are
// wrapped in a buffer that may read ahead.
func (s *Serializer[T]) Deserialize(r io.Reader) (T, error) {
	v, _, err := s.readFrom(r)
	return v, err
}

func (s *Serializer[T]) readFrom(r io.Reader) (T, int64, error) {
	var zero T
	if s.bundle.decode == nil {
		return zero, 0, errNoDeserializer
	}
	d, err := decoderFor(r)
	if err != nil {
		return zero, 0, err
	}
	start := d.Count()
	v, err := s.decode(d)
	return v, d.Count() - start, err
}

// DeserializeSpan reads one value from the start of b and reports how many
// bytes it occupied.
func (s *Serializer[T]) DeserializeSpan(b []byte) (T, int, error) {
	if s.bundle.decode == nil {
		var zero T
		return zero, 0, errNoDeserializer
	}
	d := codec.NewSpanDecoder(b)
	v, err := s.decode(d)
	return v, d.Offset(), err
}

// Unmarshal reads the value encoded in b, which must hold nothing else.
func (s *Serializer[T]) Unmarshal(b []byte) (T, error) {
	v, n, err := s.DeserializeSpan(b)
	if err == nil && n != len(b) {
		var zero T
		return zero, corrupt("%d trailing bytes", len(b)-n)
	}
	return v, err
}

// Skip advances r past one value without building it.
func (s *Serializer[T]) Skip(r io.Reader) error {
	d, err := decoderFor(r)
	if err != nil {
		return err
	}
	if err := s.bundle.skip.skip(d); err != nil {
		return err
	}
	return d.Err()
}

func (s *Serializer[T]) decode(d codec.Decoder) (T, error) {
	var v T
	err := s.bundle.decode.decode(d, reflect.ValueOf(&v).Elem())
	if derr := d.Err(); derr != nil {
		err = derr
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func decoderFor(r io.Reader) (codec.Decoder, error) {
	if d, ok := r.(codec.Decoder); ok {
		return d, nil
	}
	return codec.NewStreamDecoder(r)
}
