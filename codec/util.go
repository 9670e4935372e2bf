package codec

import (
	"encoding/binary"
	"io"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Order is the byte order of Avro float and double values on the wire.
var Order = binary.LittleEndian

const BUFFER_SIZE = 4096

const (
	// MaxVarintLen32 is the longest legal encoding of an Avro int.
	MaxVarintLen32 = 5
	// MaxVarintLen64 is the longest legal encoding of an Avro long.
	MaxVarintLen64 = 10
)

// maxPrealloc bounds the capacity reserved from an untrusted block count.
const maxPrealloc = 1024

// MaxEmptyItems bounds how many items of one array or map may occupy no bytes
// on the wire. Beyond it a block count is treated as corrupt.
const MaxEmptyItems = 1 << 20

// Discard reads and drops exactly n bytes from r.
func Discard(r io.Reader, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if n < 0 {
		return 0, ErrDiscardNegative
	}
	skip, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF && skip > 0 {
		err = io.ErrUnexpectedEOF
	}
	return skip, err
}

// Zigzag maps a signed integer onto an unsigned one so that values of small
// magnitude have short varint encodings: 0→0, -1→1, 1→2, -2→3.
func Zigzag[T constraints.Signed](n T) uint64 {
	bits := uint(unsafe.Sizeof(n)) * 8
	return uint64((n<<1)^(n>>(bits-1))) & (^uint64(0) >> (64 - bits))
}

// Unzigzag is the inverse of Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// Prealloc returns a capacity to reserve for a collection announced as n items.
func Prealloc[T constraints.Integer](n T) int {
	if n < 0 {
		return 0
	}
	if uint64(n) > maxPrealloc {
		return maxPrealloc
	}
	return int(n)
}

// readVarint decodes one unsigned LEB128 varint of at most maxLen bytes.
// It returns the value and the number of bytes consumed.
func readVarint(br io.ByteReader, maxLen int) (uint64, int, error) {
	var u uint64
	var shift uint
	for i := 0; i < maxLen; i++ {
		b, err := br.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, i, truncated(err)
		}
		if i == MaxVarintLen64-1 && b > 1 {
			return 0, i + 1, corrupt("varint overflows 64 bits")
		}
		u |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return u, i + 1, nil
		}
		shift += 7
	}
	return 0, maxLen, corrupt("varint exceeds %d bytes", maxLen)
}
