package engine

import "sync"

// Chunk is one bounded slice of a segment's body tagged with its absolute
// file offset. It is consumed exactly once by the sink.
type Chunk struct {
	Offset int64
	Data   []byte
	buf    *[]byte
}

type bufferPool struct {
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

func (b *bufferPool) get() *[]byte {
	return b.pool.Get().(*[]byte)
}

func (b *bufferPool) put(buf *[]byte) {
	if b == nil || buf == nil {
		return
	}
	b.pool.Put(buf)
}
