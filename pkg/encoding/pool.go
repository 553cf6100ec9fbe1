// Package encoding provides pooled buffers for response serialization.
package encoding

import (
	"bytes"
	"sync"
)

// bufferPool pools bytes.Buffer for JSON encoding of API responses.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty bytes.Buffer from the pool.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a bytes.Buffer to the pool. Buffers that grew past 64KB
// are dropped so one oversized response does not pin memory.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
