package codec

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNilIO indicates that NewEncoder/NewDecoder was called with a nil io.Writer/io.Reader.
	ErrNilIO = errors.New("codec: NewEncoder/NewDecoder called with a nil io.Writer/io.Reader")

	// ErrSizeTooSmall indicates a size conflict with bufio.
	ErrSizeTooSmall = errors.New("codec: buffer size smaller than 16 conflicts with bufio")

	// ErrAlreadyBuffered indicates that a *bufio.Reader or *bufio.Writer smaller than the
	// requested size was supplied; wrapping it again would double-buffer.
	ErrAlreadyBuffered = errors.New("codec: reader or writer is already buffered")

	// ErrCorrupt indicates malformed Avro binary data: a varint longer than its
	// type permits, a negative length or block size, an out-of-range index.
	ErrCorrupt = errors.New("codec: corrupt data")

	// ErrTruncatedData indicates that the source ended before the requested value
	// was complete. It is a kind of corruption.
	ErrTruncatedData = fmt.Errorf("%w: truncated data", ErrCorrupt)

	// ErrNegativeSize indicates that a fixed-size operation was called with a negative size.
	ErrNegativeSize = errors.New("codec: negative fixed size")

	// ErrFixedSize indicates that the value passed to EncodeFixed has the wrong length.
	ErrFixedSize = errors.New("codec: fixed value length does not match size")

	// ErrInvalidSeek indicates a seek was attempted to an invalid position.
	ErrInvalidSeek = errors.New("codec: seek to an invalid position")

	// ErrUnsupportedNegativeSeek indicates a backward seek was attempted on a forward-only seeker.
	ErrUnsupportedNegativeSeek = errors.New("codec: unsupported negative offset for forward-only seeker")

	// ErrInvalidWhence indicates that an invalid 'whence' parameter was provided to a Seek operation.
	ErrInvalidWhence = errors.New("codec: unsupported whence for forward-only seeker")

	// ErrInvalidWrite indicates that an io.Writer returned an invalid (negative) count from Write.
	ErrInvalidWrite = errors.New("codec: writer returned invalid count from Write")

	// ErrDiscardNegative indicates a Discard operation was attempted with a negative byte count.
	ErrDiscardNegative = errors.New("codec: cannot discard negative number of bytes")
)

// truncated wraps a read failure so that it matches both ErrTruncatedData and
// the original io error.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return err
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
