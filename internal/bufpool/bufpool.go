// Package bufpool provides size-classed byte-buffer pooling for the
// chunk pipeline, so encoding/decoding a stream of chunks doesn't
// allocate a fresh buffer per chunk.
package bufpool

import "sync"

// Pool buckets buffers into a small/large size class. Buffers are
// zeroized before being returned to the pool: chunk buffers hold
// plaintext, so leaving stale content around for the next borrower to
// see would leak data across entries.
type Pool struct {
	small *sync.Pool // nonce/key-sized buffers, <=64 bytes
	large *sync.Pool // chunk-sized buffers
}

const smallSize = 64

// New returns a Pool whose large class targets chunkSize plus headroom
// for AEAD tags and compression overhead.
func New(chunkSize int) *Pool {
	largeSize := chunkSize + 128
	return &Pool{
		small: &sync.Pool{New: func() any { return make([]byte, smallSize) }},
		large: &sync.Pool{New: func() any { return make([]byte, largeSize) }},
	}
}

// Get returns a buffer with capacity at least size.
func (p *Pool) Get(size int) []byte {
	if size <= smallSize {
		buf := p.small.Get().([]byte)
		if cap(buf) >= size {
			return buf[:size]
		}
	} else {
		buf := p.large.Get().([]byte)
		if cap(buf) >= size {
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to the pool matching its capacity, zeroizing it
// first. A buffer of exactly the small size goes to the small class,
// any larger buffer goes to the large class, and a buffer smaller than
// the small size is left for GC.
func (p *Pool) Put(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	switch {
	case cap(buf) == smallSize:
		p.small.Put(buf[:cap(buf)])
	case cap(buf) >= smallSize:
		p.large.Put(buf[:cap(buf)])
	}
}
