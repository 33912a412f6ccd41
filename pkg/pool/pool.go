// Package pool provides typed object pooling on top of sync.Pool.
//
// Example usage:
//
//	buf := pool.BufferPool.Get()
//	defer pool.BufferPool.Put(buf)
//
//	buf.WriteString("INSERT INTO ")
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// maxPooledBuffer caps the capacity of buffers returned to BufferPool so a
// single huge statement does not pin memory for the rest of the run.
const maxPooledBuffer = 1 << 20

// Pool is a type-safe object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	keep  func(T) bool
	stats struct {
		allocated int64
		inUse     int64
	}
}

// New creates a pool. newFn builds an object when the pool is empty; reset,
// if non-nil, is called on every object handed back through Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, allocating one if needed.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool. Objects rejected by the keep
// predicate are dropped.
func (p *Pool[T]) Put(obj T) {
	atomic.AddInt64(&p.stats.inUse, -1)
	if p.keep != nil && !p.keep(obj) {
		return
	}
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// Stats returns the number of objects ever allocated and the number
// currently checked out.
func (p *Pool[T]) Stats() (allocated, inUse int64) {
	return atomic.LoadInt64(&p.stats.allocated), atomic.LoadInt64(&p.stats.inUse)
}

// BufferPool recycles the buffers multi-row INSERT statements are built in.
var BufferPool = newBufferPool()

func newBufferPool() *Pool[*bytes.Buffer] {
	p := New(
		func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
		func(b *bytes.Buffer) { b.Reset() },
	)
	p.keep = func(b *bytes.Buffer) bool { return b.Cap() <= maxPooledBuffer }
	return p
}
