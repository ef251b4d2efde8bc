package libav

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/asticode/go-astiav"
)

type sampleLayout struct {
	size   int
	planar bool
	decode func(b []byte) float32
}

func sampleLayoutOf(format astiav.SampleFormat) (sampleLayout, error) {
	var (
		u8 = func(b []byte) float32 {
			return (float32(b[0]) - 128) / 128
		}
		s16 = func(b []byte) float32 {
			return float32(int16(binary.LittleEndian.Uint16(b))) / (1 << 15)
		}
		s32 = func(b []byte) float32 {
			return float32(float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31))
		}
		flt = func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}
		dbl = func(b []byte) float32 {
			return float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	)
	switch format {
	case astiav.SampleFormatU8:
		return sampleLayout{size: 1, decode: u8}, nil
	case astiav.SampleFormatU8P:
		return sampleLayout{size: 1, planar: true, decode: u8}, nil
	case astiav.SampleFormatS16:
		return sampleLayout{size: 2, decode: s16}, nil
	case astiav.SampleFormatS16P:
		return sampleLayout{size: 2, planar: true, decode: s16}, nil
	case astiav.SampleFormatS32:
		return sampleLayout{size: 4, decode: s32}, nil
	case astiav.SampleFormatS32P:
		return sampleLayout{size: 4, planar: true, decode: s32}, nil
	case astiav.SampleFormatFlt:
		return sampleLayout{size: 4, decode: flt}, nil
	case astiav.SampleFormatFltp:
		return sampleLayout{size: 4, planar: true, decode: flt}, nil
	case astiav.SampleFormatDbl:
		return sampleLayout{size: 8, decode: dbl}, nil
	case astiav.SampleFormatDblp:
		return sampleLayout{size: 8, planar: true, decode: dbl}, nil
	}
	return sampleLayout{}, fmt.Errorf("sample format %v is not supported", format)
}

// decodeSamples appends the samples of raw as interleaved float32 to dst.
// Planar data is expected plane after plane, as FrameData.Bytes(1) lays
// it out.
func decodeSamples(
	dst []float32,
	raw []byte,
	format astiav.SampleFormat,
	channels int,
	nbSamples int,
) ([]float32, error) {
	layout, err := sampleLayoutOf(format)
	if err != nil {
		return dst, err
	}
	if channels <= 0 {
		return dst, fmt.Errorf("invalid channel count %d", channels)
	}
	if need := layout.size * channels * nbSamples; len(raw) < need {
		return dst, fmt.Errorf("the audio frame is truncated: %d < %d", len(raw), need)
	}

	planeSize := layout.size * nbSamples
	for i := 0; i < nbSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			var off int
			if layout.planar {
				off = ch*planeSize + i*layout.size
			} else {
				off = (i*channels + ch) * layout.size
			}
			dst = append(dst, layout.decode(raw[off:off+layout.size]))
		}
	}
	return dst, nil
}
