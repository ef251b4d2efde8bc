package ringbuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

var _ types.RingBuffer = (*RingBuffer)(nil)

func TestRingBufferWrapAround(t *testing.T) {
	r := New(8)
	require.Equal(t, 8, r.Capacity())

	require.Equal(t, 6, r.Push([]byte{1, 2, 3, 4, 5, 6}))
	require.Equal(t, 2, r.AvailableWrite())

	dst := make([]byte, 4)
	require.Equal(t, 4, r.Pop(dst))
	assert.Equal(t, []byte{1, 2, 3, 4}, dst)

	require.Equal(t, 5, r.Push([]byte{7, 8, 9, 10, 11}))
	require.Equal(t, 7, r.AvailableRead())

	out := make([]byte, 16)
	n := r.Pop(out)
	require.Equal(t, 7, n)
	assert.Equal(t, []byte{5, 6, 7, 8, 9, 10, 11}, out[:n])
	assert.Zero(t, r.AvailableRead())
}

func TestRingBufferFull(t *testing.T) {
	r := New(4)
	require.Equal(t, 4, r.Push([]byte{1, 2, 3, 4, 5}))
	require.Zero(t, r.Push([]byte{6}))
	require.Zero(t, r.AvailableWrite())

	r.Reset()
	require.Equal(t, 4, r.AvailableWrite())
	require.Zero(t, r.Pop(make([]byte, 1)))
}

func TestRingBufferConcurrentProducerConsumer(t *testing.T) {
	const total = 1 << 16
	r := New(100)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Push([]byte{byte(i)}) == 1 {
				i++
			}
		}
	}()

	buf := make([]byte, 7)
	for read := 0; read < total; {
		n := r.Pop(buf)
		for _, b := range buf[:n] {
			require.Equal(t, byte(read), b)
			read++
		}
	}
	wg.Wait()
}
