package codec

import (
	"io"
	"math"
)

// SpanDecoder decodes Avro binary data directly from an in-memory byte slice.
// Skips are O(1) and no intermediate stream is involved.
type SpanDecoder struct {
	B   []byte // source slice
	N   int    // current read position
	err error
}

// NewSpanDecoder creates a SpanDecoder reading b from its start.
func NewSpanDecoder(b []byte) *SpanDecoder {
	return &SpanDecoder{B: b}
}

// Read implements the [io.Reader] interface.
func (d *SpanDecoder) Read(p []byte) (int, error) {
	if d.N >= len(d.B) {
		return 0, io.EOF
	}
	n := copy(p, d.B[d.N:])
	d.N += n
	return n, nil
}

// ReadByte implements the [io.ByteReader] interface.
func (d *SpanDecoder) ReadByte() (byte, error) {
	if d.N >= len(d.B) {
		return 0, io.EOF
	}
	b := d.B[d.N]
	d.N++
	return b, nil
}

// Reset rewinds the decoder to the start of b and clears its error.
func (d *SpanDecoder) Reset(b []byte) {
	d.B, d.N, d.err = b, 0, nil
}

// Offset returns the number of bytes consumed.
func (d *SpanDecoder) Offset() int { return d.N }

func (d *SpanDecoder) Count() int64 { return int64(d.N) }
func (d *SpanDecoder) Err() error   { return d.err }

// Available returns the number of bytes left to read.
func (d *SpanDecoder) Available() int {
	if d.N >= len(d.B) {
		return 0
	}
	return len(d.B) - d.N
}

func (d *SpanDecoder) Fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

// next returns a view of the next n bytes without copying.
func (d *SpanDecoder) next(n int64) []byte {
	if d.err != nil {
		return nil
	}
	if n > int64(d.Available()) {
		if d.Available() == 0 {
			d.Fail(truncated(io.EOF))
		} else {
			d.Fail(truncated(io.ErrUnexpectedEOF))
		}
		d.N = len(d.B)
		return nil
	}
	b := d.B[d.N : d.N+int(n)]
	d.N += int(n)
	return b
}

func (d *SpanDecoder) varint(maxLen int) uint64 {
	if d.err != nil {
		return 0
	}
	u, _, err := readVarint(d, maxLen)
	d.Fail(err)
	return u
}

func (d *SpanDecoder) length() int64 {
	n := d.DecodeLong()
	if n < 0 {
		d.Fail(corrupt("negative length %d", n))
		return 0
	}
	return n
}

// --- Primitive Decode Operations ---

func (d *SpanDecoder) DecodeBool() bool {
	b := d.next(1)
	return b != nil && b[0] != 0
}

func (d *SpanDecoder) DecodeInt() int32 {
	u := d.varint(MaxVarintLen32)
	if u > math.MaxUint32 {
		d.Fail(corrupt("int varint overflows 32 bits"))
		return 0
	}
	return int32(Unzigzag(u))
}

func (d *SpanDecoder) DecodeLong() int64 {
	return Unzigzag(d.varint(MaxVarintLen64))
}

func (d *SpanDecoder) DecodeFloat() float32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(Order.Uint32(b))
}

func (d *SpanDecoder) DecodeDouble() float64 {
	b := d.next(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(Order.Uint64(b))
}

// DecodeBytes returns a copy; the source slice is never aliased by decoded values.
func (d *SpanDecoder) DecodeBytes() []byte {
	n := d.length()
	b := d.next(n)
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

func (d *SpanDecoder) DecodeString() string {
	return string(d.next(d.length()))
}

func (d *SpanDecoder) DecodeFixed(size int) []byte {
	if size < 0 {
		d.Fail(ErrNegativeSize)
		return nil
	}
	b := d.next(int64(size))
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

func (d *SpanDecoder) DecodeBlockCount() int64 { return blockCount(d) }

// --- Skip Operations ---

func (d *SpanDecoder) SkipBool()   { d.next(1) }
func (d *SpanDecoder) SkipInt()    { d.varint(MaxVarintLen32) }
func (d *SpanDecoder) SkipLong()   { d.varint(MaxVarintLen64) }
func (d *SpanDecoder) SkipFloat()  { d.next(4) }
func (d *SpanDecoder) SkipDouble() { d.next(8) }
func (d *SpanDecoder) SkipBytes()  { d.next(d.length()) }
func (d *SpanDecoder) SkipString() { d.SkipBytes() }

func (d *SpanDecoder) SkipFixed(size int) {
	if size < 0 {
		d.Fail(ErrNegativeSize)
		return
	}
	d.next(int64(size))
}

func (d *SpanDecoder) SkipBlocks(skipItem func() error) { skipBlocks(d, skipItem) }

func (d *SpanDecoder) Discard(n int64) {
	if n < 0 {
		d.Fail(ErrDiscardNegative)
		return
	}
	d.next(n)
}
