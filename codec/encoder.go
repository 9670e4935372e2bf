package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes Avro binary values to a buffered sink.
// It tracks the first error that occurs; after an error, all subsequent
// encode operations become no-ops.
type Encoder struct {
	w     sink
	count int64 // total bytes written
	err   error // first error encountered. Subsequent writes become no-ops.
	depth int
	buf   [binary.MaxVarintLen64]byte
}

// NewEncoderSize creates a new Encoder with a specified buffer size.
// It returns an error to prevent double-buffering, a common source of bugs.
func NewEncoderSize(w io.Writer, size int) (*Encoder, error) {
	if w == nil {
		return nil, ErrNilIO
	}
	if size <= 0 {
		size = BUFFER_SIZE
	}

	switch bw := w.(type) {
	// Reuse the underlying buffer if it's already an Encoder.
	case *Encoder:
		return &Encoder{w: bw.w, depth: bw.depth + 1}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Writer:
		if bw.Size() >= size {
			return &Encoder{w: bw, depth: 1}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *BytesWriter:
		return &Encoder{w: bw}, nil
	case *bytes.Buffer:
		return &Encoder{w: bytesBufferWriterAdapter{bw}}, nil
	}

	// default use bufio
	return &Encoder{w: bufio.NewWriterSize(w, size)}, nil
}

// NewEncoder creates a new Encoder with a default buffer size.
func NewEncoder(w io.Writer) (*Encoder, error) {
	return NewEncoderSize(w, 0)
}

// Write implements the io.Writer interface.
func (e *Encoder) Write(buf []byte) (int, error) {
	if len(buf) == 0 || e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(buf)
	e.count += int64(n)
	e.Fail(err)
	return n, e.err
}

// WriteString implements the io.StringWriter interface.
func (e *Encoder) WriteString(str string) (int, error) {
	if str == "" || e.err != nil {
		return 0, e.err
	}
	n, err := e.w.WriteString(str)
	e.count += int64(n)
	e.Fail(err)
	return n, e.err
}

// WriteByte implements the io.ByteWriter interface.
func (e *Encoder) WriteByte(v byte) error {
	if e.err != nil {
		return e.err
	}
	err := e.w.WriteByte(v)
	if err == nil {
		e.count++
	} else {
		e.err = err
	}
	return err
}

func (e *Encoder) Count() int64 { return e.count }
func (e *Encoder) Err() error   { return e.err }

// Fail records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (e *Encoder) Fail(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}

// Result flushes the buffer and returns the final count and error state.
func (e *Encoder) Result() (int64, error) {
	e.Flush()
	return e.count, e.err
}

// Flush writes any buffered data to the underlying io.Writer.
func (e *Encoder) Flush() error {
	// Only the outermost encoder flushes a shared buffer.
	if e.depth > 0 || e.err != nil {
		return e.err
	}
	err := e.w.Flush()
	e.Fail(err)
	return err
}

// --- Primitive Encode Operations ---

// EncodeNull writes nothing; null has an empty encoding.
func (e *Encoder) EncodeNull() {}

func (e *Encoder) EncodeBool(v bool) {
	if v {
		_ = e.WriteByte(1)
	} else {
		_ = e.WriteByte(0)
	}
}

func (e *Encoder) varint(u uint64) {
	if e.err != nil {
		return
	}
	n := binary.PutUvarint(e.buf[:], u)
	_, _ = e.Write(e.buf[:n])
}

func (e *Encoder) EncodeInt(v int32) { e.varint(Zigzag(v)) }

func (e *Encoder) EncodeLong(v int64) { e.varint(Zigzag(v)) }

func (e *Encoder) EncodeFloat(v float32) {
	if e.err != nil {
		return
	}
	Order.PutUint32(e.buf[:4], math.Float32bits(v))
	_, _ = e.Write(e.buf[:4])
}

func (e *Encoder) EncodeDouble(v float64) {
	if e.err != nil {
		return
	}
	Order.PutUint64(e.buf[:8], math.Float64bits(v))
	_, _ = e.Write(e.buf[:8])
}

func (e *Encoder) EncodeBytes(v []byte) {
	e.EncodeLong(int64(len(v)))
	_, _ = e.Write(v)
}

func (e *Encoder) EncodeString(v string) {
	e.EncodeLong(int64(len(v)))
	_, _ = e.WriteString(v)
}

// EncodeFixed writes v without a length prefix. len(v) must equal size.
func (e *Encoder) EncodeFixed(size int, v []byte) {
	if e.err != nil {
		return
	}
	if size < 0 {
		e.Fail(ErrNegativeSize)
		return
	}
	if len(v) != size {
		e.Fail(fmt.Errorf("%w: got %d bytes, want %d", ErrFixedSize, len(v), size))
		return
	}
	_, _ = e.Write(v)
}

// EncodeBlockCount writes an array or map block header. Zero ends the collection.
func (e *Encoder) EncodeBlockCount(n int64) { e.EncodeLong(n) }

// EncodeSizedBlockCount writes a block header announcing the byte size of
// the block body, which lets readers skip the block without decoding it.
func (e *Encoder) EncodeSizedBlockCount(n, size int64) {
	e.EncodeLong(-n)
	e.EncodeLong(size)
}
