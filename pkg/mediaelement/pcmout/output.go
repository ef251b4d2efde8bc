// Package pcmout is the audio output of a media element: a bounded queue of
// interleaved little-endian float32 chunks read as a byte stream.
package pcmout

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/xaionaro-go/videotexture/pkg/videotexture/types"
)

type Output struct {
	format    types.PCMFormat
	chunks    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	pending   []byte
	dropped   atomic.Uint64
}

var _ types.PCMReader = (*Output)(nil)

func New(format types.PCMFormat, queueLen int) *Output {
	return &Output{
		format: format,
		chunks: make(chan []byte, queueLen),
		closed: make(chan struct{}),
	}
}

func (o *Output) PCMFormat() types.PCMFormat {
	return o.format
}

// Read blocks until a chunk is available or the output is closed. It must
// not be called concurrently.
func (o *Output) Read(p []byte) (int, error) {
	if len(o.pending) == 0 {
		select {
		case chunk := <-o.chunks:
			o.pending = chunk
		case <-o.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, o.pending)
	o.pending = o.pending[n:]
	return n, nil
}

// Offer never blocks; a reader that falls behind loses chunks.
func (o *Output) Offer(chunk []byte) bool {
	select {
	case o.chunks <- chunk:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// OfferSamples encodes samples and offers them as one chunk.
func (o *Output) OfferSamples(samples []float32) bool {
	if len(samples) == 0 {
		return true
	}
	return o.Offer(EncodeSamples(make([]byte, 0, len(samples)*4), samples))
}

// Dropped is the number of chunks lost to a slow reader.
func (o *Output) Dropped() uint64 {
	return o.dropped.Load()
}

// Flush discards queued chunks, e.g. after a seek.
func (o *Output) Flush() {
	for {
		select {
		case <-o.chunks:
		default:
			return
		}
	}
}

func (o *Output) Close() {
	o.closeOnce.Do(func() {
		close(o.closed)
	})
}

func EncodeSamples(dst []byte, samples []float32) []byte {
	for _, v := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
