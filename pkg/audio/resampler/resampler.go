// Package resampler converts interleaved float32 PCM between sample rates
// and channel counts using linear interpolation.
package resampler

import (
	"fmt"
)

type Format struct {
	SampleRate uint32
	Channels   int
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Resampler is stateful across calls, so a stream may be fed in arbitrary
// chunks without clicks at the boundaries.
type Resampler struct {
	In  Format
	Out Format

	step float64
	// pos is the fractional read position relative to prev.
	pos  float64
	prev []float32
	have bool
}

func New(in, out Format) (*Resampler, error) {
	if in.SampleRate == 0 || out.SampleRate == 0 {
		return nil, fmt.Errorf("sample rate is not set: %s -> %s", in, out)
	}
	if in.Channels <= 0 || out.Channels <= 0 {
		return nil, fmt.Errorf("channel count is not set: %s -> %s", in, out)
	}
	if in.Channels != out.Channels && in.Channels != 1 && out.Channels != 1 && out.Channels != 2 {
		return nil, fmt.Errorf("do not know how to convert %d channels to %d", in.Channels, out.Channels)
	}
	return &Resampler{
		In:   in,
		Out:  out,
		step: float64(in.SampleRate) / float64(out.SampleRate),
		prev: make([]float32, out.Channels),
	}, nil
}

// remix maps one input frame onto the output channel layout. Mono is
// duplicated; more than two channels fold into stereo by taking the
// front pair; anything into mono is averaged.
func (r *Resampler) remix(dst, src []float32) {
	switch {
	case r.In.Channels == r.Out.Channels:
		copy(dst, src)
	case r.Out.Channels == 1:
		var sum float32
		for _, v := range src {
			sum += v
		}
		dst[0] = sum / float32(len(src))
	case r.In.Channels == 1:
		for i := range dst {
			dst[i] = src[0]
		}
	default:
		dst[0], dst[1] = src[0], src[1]
	}
}

// Process appends the resampled form of in (interleaved, r.In.Channels per
// frame) to dst.
func (r *Resampler) Process(dst []float32, in []float32) []float32 {
	inCh, outCh := r.In.Channels, r.Out.Channels
	frames := len(in) / inCh
	if frames == 0 {
		return dst
	}

	cur := make([]float32, outCh)
	if !r.have {
		r.remix(r.prev, in[:inCh])
		r.have = true
	}
	for i := 0; i < frames; i++ {
		r.remix(cur, in[i*inCh:(i+1)*inCh])
		for r.pos < 1 {
			frac := float32(r.pos)
			for ch := 0; ch < outCh; ch++ {
				dst = append(dst, r.prev[ch]+(cur[ch]-r.prev[ch])*frac)
			}
			r.pos += r.step
		}
		r.pos--
		copy(r.prev, cur)
	}
	return dst
}

func (r *Resampler) Reset() {
	r.pos = 0
	r.have = false
	clear(r.prev)
}
