package queue

import (
	"slices"

	"github.com/valyala/bytebufferpool"
)

// Allocator hands out payload buffers for message blocks and takes them
// back once the block has been consumed or discarded. Acquire returns an
// empty buffer with room for at least size bytes.
type Allocator interface {
	Acquire(size int) (*bytebufferpool.ByteBuffer, error)
	Release(b *bytebufferpool.ByteBuffer)
}

type poolAllocator struct {
	pool bytebufferpool.Pool
}

// NewPoolAllocator returns an Allocator that recycles buffers through a
// bytebufferpool.Pool.
func NewPoolAllocator() Allocator {
	return &poolAllocator{}
}

func (a *poolAllocator) Acquire(size int) (*bytebufferpool.ByteBuffer, error) {
	buf := a.pool.Get()
	buf.B = slices.Grow(buf.B[:0], size)
	return buf, nil
}

func (a *poolAllocator) Release(b *bytebufferpool.ByteBuffer) {
	a.pool.Put(b)
}

// block is one queued message. The queue owns the chain from head; a popped
// block belongs to the goroutine that popped it.
type block struct {
	payload *bytebufferpool.ByteBuffer
	next    *block
}

func newBlock(alloc Allocator, data []byte) (*block, error) {
	buf, err := alloc.Acquire(len(data))
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, ErrOutOfMemory
	}
	buf.Reset()
	if _, err := buf.Write(data); err != nil {
		alloc.Release(buf)
		return nil, err
	}
	return &block{payload: buf}, nil
}

// copyTo copies as much of the payload as fits into dst.
func (b *block) copyTo(dst []byte) int {
	return copy(dst, b.payload.B)
}

func (b *block) len() int {
	return b.payload.Len()
}

// free releases the payload and unlinks the block.
func (b *block) free(alloc Allocator) {
	if b.payload != nil {
		alloc.Release(b.payload)
		b.payload = nil
	}
	b.next = nil
}
