package types

import (
	"context"
	"sync/atomic"

	"github.com/xaionaro-go/xsync"
)

type SourceID string

// RingBuffer is an opaque byte store with one producer and one consumer.
// Push and Pop must be safe to call concurrently with each other.
type RingBuffer interface {
	Push(b []byte) int
	Pop(dst []byte) int
	AvailableWrite() int
	AvailableRead() int
	Capacity() int
}

// RingBufferBinding associates a source with a ring buffer, the admission
// cap and the number of frames currently resident.
type RingBufferBinding struct {
	SourceID  SourceID
	Buffer    RingBuffer
	MaxFrames int
	Target    TargetSpec

	// readLocker makes "pop a frame and decrement count" atomic, for both
	// the consumer and the eviction of the oldest frame.
	readLocker xsync.Mutex
	count      atomic.Int64
}

func NewRingBufferBinding(
	sourceID SourceID,
	buffer RingBuffer,
	maxFrames int,
	target TargetSpec,
) *RingBufferBinding {
	return &RingBufferBinding{
		SourceID:  sourceID,
		Buffer:    buffer,
		MaxFrames: maxFrames,
		Target:    target,
	}
}

// Count returns the number of frames currently resident.
func (b *RingBufferBinding) Count() int {
	return int(b.count.Load())
}

// IncCount is for the producer side only. It must be called before the
// frame is pushed, so a concurrent ReadFrame never pops an uncounted frame.
func (b *RingBufferBinding) IncCount() {
	b.count.Add(1)
}

// DecCount never moves the counter below zero.
func (b *RingBufferBinding) DecCount() {
	for {
		cur := b.count.Load()
		if cur <= 0 {
			return
		}
		if b.count.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// ReadFrame pops exactly one frame. It returns 0 if no complete frame is
// available. The producer evicts through it as well.
func (b *RingBufferBinding) ReadFrame(dst []byte) int {
	size := b.Target.FrameByteSize
	if size <= 0 || len(dst) < size || b.Buffer == nil {
		return 0
	}
	return xsync.DoR1(context.TODO(), &b.readLocker, func() int {
		if b.Buffer.AvailableRead() < size {
			return 0
		}
		n := b.Buffer.Pop(dst[:size])
		if n > 0 {
			b.DecCount()
		}
		return n
	})
}

// SetCount is for the producer side only, when a binding takes over the
// frames of a previous one.
func (b *RingBufferBinding) SetCount(n int) {
	b.count.Store(int64(max(0, n)))
}
