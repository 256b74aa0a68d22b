package archive

import (
	"sync"

	"github.com/marmos91/zipline/pkg/bufpool"
)

// chunk is a leased buffer holding n bytes of compressor output.
type chunk struct {
	buf []byte
	n   int
}

func (c chunk) data() []byte { return c.buf[:c.n] }

// chunkQueue hands chunks from the producer goroutine to the consumer.
//
// The producer must take a credit before every read and the consumer
// returns it once the chunk was delivered, so at most depth chunks are
// read ahead of the client. With depth 1 reads and writes strictly
// alternate.
type chunkQueue struct {
	items   chan chunk
	credits chan struct{}
	done    chan struct{}
	pool    *bufpool.Pool

	stopOnce sync.Once

	// err is the producer's terminal error, valid once items is closed.
	err error
}

func newChunkQueue(depth int, pool *bufpool.Pool) *chunkQueue {
	if depth < 1 {
		depth = 1
	}
	q := &chunkQueue{
		items:   make(chan chunk, depth),
		credits: make(chan struct{}, depth),
		done:    make(chan struct{}),
		pool:    pool,
	}
	for i := 0; i < depth; i++ {
		q.credits <- struct{}{}
	}
	return q
}

// produce reads s until end-of-stream, a read error, or stop. It closes
// items on return; the terminal error (io.EOF on success) is left in err.
func (q *chunkQueue) produce(s Stream) {
	defer close(q.items)

	for {
		select {
		case <-q.done:
			return
		case <-q.credits:
		}

		buf := q.pool.Get()
		n, err := s.ReadChunk(buf)

		if n > 0 {
			select {
			case q.items <- chunk{buf: buf, n: n}:
			case <-q.done:
				q.pool.Put(buf)
				return
			}
		} else {
			q.pool.Put(buf)
			q.credits <- struct{}{}
		}

		if err != nil {
			q.err = err
			return
		}
	}
}

// release returns a delivered chunk's buffer and credit.
func (q *chunkQueue) release(c chunk) {
	q.pool.Put(c.buf)
	q.credits <- struct{}{}
}

// stop makes the producer exit at its next blocking point.
func (q *chunkQueue) stop() {
	q.stopOnce.Do(func() { close(q.done) })
}

// drain returns the buffers of undelivered chunks. Call only after the
// producer has exited.
func (q *chunkQueue) drain() {
	for c := range q.items {
		q.pool.Put(c.buf)
	}
}
