// Package bufpool provides a pool of fixed-size chunk buffers.
//
// Every in-flight archive transfer leases one buffer per chunk read from the
// compressor and returns it once the chunk was written to the client (or
// discarded during cleanup). Pooling keeps the steady-state allocation rate
// of a busy server close to zero.
//
// # Usage
//
//	pool := bufpool.NewPool(10 << 10)
//	buf := pool.Get()
//	defer pool.Put(buf)
//
// # Thread Safety
//
// A Pool is safe for concurrent use.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// DefaultChunkSize is used when NewPool receives a non-positive size.
const DefaultChunkSize = 10 << 10

// Pool hands out byte slices of a single size.
type Pool struct {
	size        int
	pool        sync.Pool
	outstanding atomic.Int64
}

// NewPool creates a pool of buffers of the given size.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultChunkSize
	}

	p := &Pool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, p.size)
		return &buf
	}
	return p
}

// Size returns the length of the buffers handed out by Get.
func (p *Pool) Size() int {
	return p.size
}

// Get returns a buffer of exactly Size() bytes. Contents are unspecified.
// The caller must return it with Put.
func (p *Pool) Get() []byte {
	p.outstanding.Add(1)
	buf := *(p.pool.Get().(*[]byte))
	return buf[:p.size]
}

// Put returns a buffer obtained from Get. The slice may have been resliced;
// only its capacity matters. Nil and foreign buffers are ignored.
func (p *Pool) Put(buf []byte) {
	if buf == nil || cap(buf) != p.size {
		return
	}
	p.outstanding.Add(-1)
	full := buf[:p.size]
	p.pool.Put(&full)
}

// Outstanding reports how many buffers are currently leased.
func (p *Pool) Outstanding() int64 {
	return p.outstanding.Load()
}
