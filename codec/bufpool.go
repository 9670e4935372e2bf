package codec

import (
	"bytes"
	"sync"
)

// bytesBufPool reuses scratch buffers for encoding whole values in memory.
var bytesBufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, BUFFER_SIZE))
	},
}

// maxPooledBuffer keeps oversized buffers out of the pool.
const maxPooledBuffer = 64 * 1024

// GetBuffer returns an empty scratch buffer. Return it with PutBuffer.
func GetBuffer() *bytes.Buffer {
	buf := bytesBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool. The caller must not use buf afterwards.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bytesBufPool.Put(buf)
}
