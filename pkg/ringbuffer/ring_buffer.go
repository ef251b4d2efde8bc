// Package ringbuffer is a fixed-capacity byte ring with one producer and one
// consumer.
package ringbuffer

import (
	"context"

	"github.com/xaionaro-go/xsync"
)

type RingBuffer struct {
	Storage    []byte
	ReadIndex  uint
	WriteIndex uint
	Length     uint
	Locker     xsync.Mutex
}

func New(size uint) *RingBuffer {
	return &RingBuffer{
		Storage: make([]byte, size),
	}
}

// Push writes as much of b as fits and returns the number of bytes written.
func (r *RingBuffer) Push(b []byte) int {
	return xsync.DoR1(context.TODO(), &r.Locker, func() int {
		return r.pushLocked(b)
	})
}

func (r *RingBuffer) pushLocked(b []byte) int {
	size := uint(len(r.Storage))
	n := min(uint(len(b)), size-r.Length)
	if n == 0 {
		return 0
	}
	first := min(n, size-r.WriteIndex)
	copy(r.Storage[r.WriteIndex:], b[:first])
	copy(r.Storage, b[first:n])
	r.WriteIndex = (r.WriteIndex + n) % size
	r.Length += n
	return int(n)
}

// Pop reads up to len(dst) bytes and returns the number of bytes read.
func (r *RingBuffer) Pop(dst []byte) int {
	return xsync.DoR1(context.TODO(), &r.Locker, func() int {
		return r.popLocked(dst)
	})
}

func (r *RingBuffer) popLocked(dst []byte) int {
	size := uint(len(r.Storage))
	n := min(uint(len(dst)), r.Length)
	if n == 0 {
		return 0
	}
	first := min(n, size-r.ReadIndex)
	copy(dst, r.Storage[r.ReadIndex:r.ReadIndex+first])
	copy(dst[first:n], r.Storage[:n-first])
	r.ReadIndex = (r.ReadIndex + n) % size
	r.Length -= n
	return int(n)
}

func (r *RingBuffer) AvailableWrite() int {
	return xsync.DoR1(context.TODO(), &r.Locker, func() int {
		return len(r.Storage) - int(r.Length)
	})
}

func (r *RingBuffer) AvailableRead() int {
	return xsync.DoR1(context.TODO(), &r.Locker, func() int {
		return int(r.Length)
	})
}

func (r *RingBuffer) Capacity() int {
	return len(r.Storage)
}

func (r *RingBuffer) Reset() {
	r.Locker.Do(context.TODO(), func() {
		r.ReadIndex, r.WriteIndex, r.Length = 0, 0, 0
	})
}
