package testsrc

import (
	"encoding/binary"
	"math"
)

const (
	SampleRate    = 48000
	Channels      = 2
	toneAmplitude = 0.2
)

// generateTone appends frames of a stereo sine starting at phase (radians)
// and returns the phase to continue from.
func generateTone(dst []byte, frames int, hz float64, phase float64) ([]byte, float64) {
	step := 2 * math.Pi * hz / SampleRate
	for i := 0; i < frames; i++ {
		v := math.Float32bits(float32(toneAmplitude * math.Sin(phase)))
		for ch := 0; ch < Channels; ch++ {
			dst = binary.LittleEndian.AppendUint32(dst, v)
		}
		phase += step
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}
	return dst, phase
}
