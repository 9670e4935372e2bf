package avro

import (
	"io"

	"github.com/oy3o/avro/codec"
)

// Datum binds a value to the Serializer of its type so that it satisfies the
// standard binary marshaling interfaces.
type Datum[T any] struct {
	Serializer *Serializer[T]
	Value      T
}

var _ codec.Codec = (*Datum[struct{}])(nil)

// NewDatum binds v to s.
func NewDatum[T any](s *Serializer[T], v T) *Datum[T] {
	return &Datum[T]{Serializer: s, Value: v}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (d *Datum[T]) MarshalBinary() ([]byte, error) {
	return d.Serializer.Marshal(d.Value)
}

// WriteTo implements io.WriterTo.
func (d *Datum[T]) WriteTo(w io.Writer) (int64, error) {
	return d.Serializer.writeTo(w, d.Value)
}

// MarshalTo encodes the value into p.
func (d *Datum[T]) MarshalTo(p []byte) (int, error) {
	return d.Serializer.MarshalTo(p, d.Value)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold
// exactly one value.
func (d *Datum[T]) UnmarshalBinary(data []byte) error {
	v, err := d.Serializer.Unmarshal(data)
	if err != nil {
		return err
	}
	d.Value = v
	return nil
}

// ReadFrom implements io.ReaderFrom. Only the bytes of one value are
// consumed from readers that are already buffered.
func (d *Datum[T]) ReadFrom(r io.Reader) (int64, error) {
	v, n, err := d.Serializer.readFrom(r)
	if err != nil {
		return n, err
	}
	d.Value = v
	return n, nil
}
