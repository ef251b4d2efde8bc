package spatialaudio

import (
	"math"
)

type Gain struct {
	nodeBase
	Value float64
}

func (g *Gain) SetValue(v float64) {
	g.g.locker.Do(g.g.ctx(), func() {
		g.Value = v
	})
}

func (g *Gain) render(out []float32) {
	g.mixInputs(out)
	v := float32(g.Value)
	for i := range out {
		out[i] *= v
	}
}

// Panner is an equal-power stereo panner of the mono downmix. Azimuth is in
// radians: 0 is straight ahead, positive values are to the right.
type Panner struct {
	nodeBase
	Azimuth float64
}

func (p *Panner) SetAzimuth(azimuth float64) {
	p.g.locker.Do(p.g.ctx(), func() {
		p.Azimuth = azimuth
	})
}

func (p *Panner) gains() (float32, float32) {
	pan := math.Sin(p.Azimuth)
	angle := (pan + 1) * math.Pi / 4
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}

func (p *Panner) render(out []float32) {
	p.mixInputs(out)
	gainL, gainR := p.gains()
	for i := 0; i+1 < len(out); i += Channels {
		mono := (out[i] + out[i+1]) / 2
		out[i] = mono * gainL
		out[i+1] = mono * gainR
	}
}

// AmbisonicsRenderer encodes the mono downmix into first-order B-format at
// the given direction, rotates the sound field by Yaw and decodes it with
// two virtual cardioids pointing left and right. Angles are in radians,
// counter-clockwise (positive azimuth is to the left).
type AmbisonicsRenderer struct {
	nodeBase
	Azimuth   float64
	Elevation float64
	Yaw       float64
}

func (r *AmbisonicsRenderer) SetDirection(azimuth, elevation float64) {
	r.g.locker.Do(r.g.ctx(), func() {
		r.Azimuth, r.Elevation = azimuth, elevation
	})
}

func (r *AmbisonicsRenderer) SetYaw(yaw float64) {
	r.g.locker.Do(r.g.ctx(), func() {
		r.Yaw = yaw
	})
}

func (r *AmbisonicsRenderer) gains() (float32, float32) {
	azimuth := r.Azimuth - r.Yaw
	w := 1 / math.Sqrt2
	y := math.Sin(azimuth) * math.Cos(r.Elevation)
	left := 0.5 * (math.Sqrt2*w + y)
	right := 0.5 * (math.Sqrt2*w - y)
	return float32(left), float32(right)
}

func (r *AmbisonicsRenderer) render(out []float32) {
	r.mixInputs(out)
	gainL, gainR := r.gains()
	for i := 0; i+1 < len(out); i += Channels {
		mono := (out[i] + out[i+1]) / 2
		out[i] = mono * gainL
		out[i+1] = mono * gainR
	}
}

// Destination is the final mix; it clamps to [-1, 1].
type Destination struct {
	nodeBase
}

func (d *Destination) render(out []float32) {
	d.mixInputs(out)
	for i, v := range out {
		out[i] = max(-1, min(1, v))
	}
}
