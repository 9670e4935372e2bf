package codec

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
)

// Decoder reads Avro binary values from a source.
//
// A Decoder records the first error it encounters. Once an error is recorded
// every subsequent call is a no-op returning a zero value, and Err reports the
// original failure.
type Decoder interface {
	DecodeBool() bool
	DecodeInt() int32
	DecodeLong() int64
	DecodeFloat() float32
	DecodeDouble() float64
	DecodeBytes() []byte
	DecodeString() string
	DecodeFixed(size int) []byte

	// DecodeBlockCount reads the header of one array or map block and returns
	// its item count. A zero count terminates the collection.
	DecodeBlockCount() int64

	SkipBool()
	SkipInt()
	SkipLong()
	SkipFloat()
	SkipDouble()
	SkipBytes()
	SkipString()
	SkipFixed(size int)

	// SkipBlocks skips an array or map. Blocks announcing their byte size are
	// jumped over; the others are skipped item by item with skipItem.
	SkipBlocks(skipItem func() error)

	// Discard drops n raw bytes.
	Discard(n int64)

	Count() int64
	Err() error

	// Fail records err unless an error is already present.
	Fail(err error)
}

var (
	_ Decoder = (*StreamDecoder)(nil)
	_ Decoder = (*SpanDecoder)(nil)
)

// StreamDecoder decodes Avro binary data from an io.Reader.
// It tracks the number of bytes consumed and the first error.
type StreamDecoder struct {
	src   source
	count int64 // total bytes read
	err   error // first error encountered.
}

// NewStreamDecoderSize creates a StreamDecoder with a specified buffer size.
// Readers that already support byte-wise reads are used without a new buffer,
// so consecutive decoders over the same *bytes.Buffer or *bufio.Reader see a
// consistent position.
func NewStreamDecoderSize(r io.Reader, size int) (*StreamDecoder, error) {
	if r == nil {
		return nil, ErrNilIO
	}
	if size <= 0 {
		size = BUFFER_SIZE
	}

	switch reader := r.(type) {
	// Reuse the underlying source if it's already a StreamDecoder.
	case *StreamDecoder:
		return &StreamDecoder{src: reader.src}, nil

	// prevent unpredictable double-buffering.
	case *bufio.Reader:
		if reader.Size() >= size {
			return &StreamDecoder{src: &bufioReaderAdapter{Reader: reader}}, nil
		}
		return nil, ErrAlreadyBuffered

	// underlying is a buf so we don't need buffering
	case *bytes.Reader:
		return &StreamDecoder{src: reader}, nil
	case *bytes.Buffer:
		return &StreamDecoder{src: bytesBufferReaderAdapter{Buffer: reader}}, nil
	}

	if size < 16 {
		return nil, ErrSizeTooSmall
	}

	// default use bufio
	return &StreamDecoder{
		src: &bufioReaderAdapter{Reader: bufio.NewReaderSize(r, size), seeker: ForwardSeeker(r)},
	}, nil
}

// NewStreamDecoder creates a StreamDecoder with a default buffer size.
func NewStreamDecoder(r io.Reader) (*StreamDecoder, error) {
	return NewStreamDecoderSize(r, 0)
}

// Read implements io.Reader over the raw remaining bytes.
func (d *StreamDecoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.src.Read(p)
	d.count += int64(n)
	if err != io.EOF {
		d.Fail(err)
	}
	return n, err
}

// ReadByte implements io.ByteReader.
func (d *StreamDecoder) ReadByte() (byte, error) {
	if d.err != nil {
		return 0, d.err
	}
	b, err := d.src.ReadByte()
	if err != nil {
		return 0, err
	}
	d.count++
	return b, nil
}

func (d *StreamDecoder) Count() int64 { return d.count }
func (d *StreamDecoder) Err() error   { return d.err }

// IsEOF reports whether decoding stopped because the source was exhausted
// before the first byte of a value.
func (d *StreamDecoder) IsEOF() bool { return errors.Is(d.err, io.EOF) }

// Fail records the first non-nil error.
func (d *StreamDecoder) Fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

// Result returns the total bytes read and the final error state.
func (d *StreamDecoder) Result() (int64, error) {
	return d.count, d.err
}

// readFull reads exactly n bytes. Large lengths are read incrementally so
// that a corrupt length prefix cannot force one huge allocation up front.
func (d *StreamDecoder) readFull(n int64) []byte {
	if d.err != nil {
		return nil
	}
	if n <= BUFFER_SIZE*16 {
		buf := make([]byte, n)
		m, err := io.ReadFull(d.src, buf)
		d.count += int64(m)
		if err != nil {
			d.Fail(truncated(eofAfter(m, err)))
			return nil
		}
		return buf
	}
	var buf bytes.Buffer
	m, err := io.CopyN(&buf, d.src, n)
	d.count += m
	if err != nil {
		d.Fail(truncated(eofAfter(int(m), err)))
		return nil
	}
	return buf.Bytes()
}

func (d *StreamDecoder) varint(maxLen int) uint64 {
	if d.err != nil {
		return 0
	}
	u, n, err := readVarint(d.src, maxLen)
	d.count += int64(n)
	d.Fail(err)
	return u
}

// --- Primitive Decode Operations ---

func (d *StreamDecoder) DecodeBool() bool {
	if d.err != nil {
		return false
	}
	b, err := d.src.ReadByte()
	if err != nil {
		d.Fail(truncated(err))
		return false
	}
	d.count++
	return b != 0
}

func (d *StreamDecoder) DecodeInt() int32 {
	u := d.varint(MaxVarintLen32)
	if u > math.MaxUint32 {
		d.Fail(corrupt("int varint overflows 32 bits"))
		return 0
	}
	return int32(Unzigzag(u))
}

func (d *StreamDecoder) DecodeLong() int64 {
	return Unzigzag(d.varint(MaxVarintLen64))
}

func (d *StreamDecoder) DecodeFloat() float32 {
	buf := d.readFull(4)
	if d.err != nil {
		return 0
	}
	return math.Float32frombits(Order.Uint32(buf))
}

func (d *StreamDecoder) DecodeDouble() float64 {
	buf := d.readFull(8)
	if d.err != nil {
		return 0
	}
	return math.Float64frombits(Order.Uint64(buf))
}

func (d *StreamDecoder) length() int64 {
	n := d.DecodeLong()
	if n < 0 {
		d.Fail(corrupt("negative length %d", n))
		return 0
	}
	return n
}

func (d *StreamDecoder) DecodeBytes() []byte {
	n := d.length()
	if d.err != nil {
		return nil
	}
	return d.readFull(n)
}

func (d *StreamDecoder) DecodeString() string {
	return string(d.DecodeBytes())
}

func (d *StreamDecoder) DecodeFixed(size int) []byte {
	if size < 0 {
		d.Fail(ErrNegativeSize)
		return nil
	}
	return d.readFull(int64(size))
}

func (d *StreamDecoder) DecodeBlockCount() int64 { return blockCount(d) }

// --- Skip Operations ---

func (d *StreamDecoder) SkipBool()   { d.Discard(1) }
func (d *StreamDecoder) SkipInt()    { d.varint(MaxVarintLen32) }
func (d *StreamDecoder) SkipLong()   { d.varint(MaxVarintLen64) }
func (d *StreamDecoder) SkipFloat()  { d.Discard(4) }
func (d *StreamDecoder) SkipDouble() { d.Discard(8) }

func (d *StreamDecoder) SkipBytes() {
	n := d.length()
	d.Discard(n)
}

func (d *StreamDecoder) SkipString() { d.SkipBytes() }

func (d *StreamDecoder) SkipFixed(size int) {
	if size < 0 {
		d.Fail(ErrNegativeSize)
		return
	}
	d.Discard(int64(size))
}

func (d *StreamDecoder) SkipBlocks(skipItem func() error) { skipBlocks(d, skipItem) }

// Discard moves forward n bytes, seeking when the source allows it.
func (d *StreamDecoder) Discard(n int64) {
	if d.err != nil || n == 0 {
		return
	}
	if n < 0 {
		d.Fail(ErrDiscardNegative)
		return
	}
	if l, ok := d.src.(interface{ Len() int }); ok && int64(l.Len()) < n {
		d.Fail(truncated(io.ErrUnexpectedEOF))
		return
	}
	if _, err := d.src.Seek(n, io.SeekCurrent); err != nil {
		d.Fail(truncated(eofAfter(1, err)))
		return
	}
	d.count += n
}

// blockCount implements DecodeBlockCount for any Decoder.
func blockCount(d Decoder) int64 {
	n := d.DecodeLong()
	if n >= 0 {
		return n
	}
	if n == math.MinInt64 {
		d.Fail(corrupt("block count overflow"))
		return 0
	}
	if size := d.DecodeLong(); size < 0 {
		d.Fail(corrupt("negative block size %d", size))
		return 0
	}
	return -n
}

// skipBlocks implements SkipBlocks for any Decoder.
func skipBlocks(d Decoder, skipItem func() error) {
	empty := 0
	for d.Err() == nil {
		n := d.DecodeLong()
		switch {
		case n == 0:
			return
		case n < 0:
			size := d.DecodeLong()
			if size < 0 {
				d.Fail(corrupt("negative block size %d", size))
				return
			}
			d.Discard(size)
		default:
			for i := int64(0); i < n && d.Err() == nil; i++ {
				before := d.Count()
				if err := skipItem(); err != nil {
					d.Fail(err)
					return
				}
				if d.Count() == before {
					if empty++; empty > MaxEmptyItems {
						d.Fail(corrupt("more than %d items without data", MaxEmptyItems))
						return
					}
				}
			}
		}
	}
}

// eofAfter turns a clean EOF into io.ErrUnexpectedEOF once part of a value was read.
func eofAfter(n int, err error) error {
	if n > 0 && err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
