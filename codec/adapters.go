package codec

import (
	"bufio"
	"bytes"
	"io"
)

// source is what a StreamDecoder reads from.
type source interface {
	io.Reader
	io.ByteReader
	io.Seeker
}

// sink is what an Encoder writes to.
type sink interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
	Flush() error
}

type (
	bytesBufferWriterAdapter struct{ *bytes.Buffer }
	bytesBufferReaderAdapter struct{ *bytes.Buffer }
	bufioReaderAdapter       struct {
		*bufio.Reader
		seeker io.ReadSeeker
	}
)

func (w bytesBufferWriterAdapter) Flush() error { return nil }

// Seek performs a forward-only seek by dropping bytes from the buffer.
// Only io.SeekCurrent is meaningful for a buffer that has no fixed origin.
func (r bytesBufferReaderAdapter) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent {
		return 0, ErrInvalidWhence
	}
	if offset < 0 {
		return 0, ErrUnsupportedNegativeSeek
	}
	if offset > int64(r.Buffer.Len()) {
		r.Buffer.Next(r.Buffer.Len())
		return 0, io.ErrUnexpectedEOF
	}
	r.Buffer.Next(int(offset))
	return 0, nil
}

// Seek moves forward by offset bytes relative to the current read position.
// Bytes still buffered are discarded in place; anything further is skipped on
// the underlying stream, which is then re-attached to the buffer. Without a
// seeker the reader is owned by the caller and everything is discarded
// through it. A seek past the end of the source consumes the rest and
// reports io.ErrUnexpectedEOF.
func (b *bufioReaderAdapter) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekCurrent {
		return 0, ErrInvalidWhence
	}
	if offset < 0 {
		return 0, ErrUnsupportedNegativeSeek
	}
	if b.seeker == nil {
		_, err := Discard(b.Reader, offset)
		return 0, err
	}

	buffered := int64(b.Reader.Buffered())
	if offset <= buffered {
		_, err := b.Reader.Discard(int(offset))
		return 0, err
	}

	skip := offset - buffered
	if _, forward := b.seeker.(*forwardSeeker); !forward {
		left, err := remaining(b.seeker)
		if err != nil {
			// not seekable after all, such as an *os.File over a pipe
			_, err := Discard(b.Reader, offset)
			return 0, err
		}
		if skip > left {
			if _, err := b.Reader.Discard(int(buffered)); err != nil {
				return 0, err
			}
			if _, err := b.seeker.Seek(left, io.SeekCurrent); err != nil {
				return 0, err
			}
			b.Reader.Reset(b.seeker)
			return 0, io.ErrUnexpectedEOF
		}
	}

	if _, err := b.Reader.Discard(int(buffered)); err != nil {
		return 0, err
	}
	if _, err := b.seeker.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}
	b.Reader.Reset(b.seeker)
	return 0, nil
}

// remaining returns the number of bytes between the position of s and its end,
// leaving the position unchanged.
func remaining(s io.Seeker) (int64, error) {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return max(end-cur, 0), nil
}
