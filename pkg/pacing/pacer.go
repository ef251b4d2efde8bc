package pacing

import (
	"math"
	"time"
)

// Pacer holds the self-correcting delay arithmetic. It is not safe for
// concurrent use; the Controller drives it from a single goroutine.
type Pacer struct {
	TargetInterval  time.Duration
	LastProcessTime time.Time
	FrameDelay      time.Duration
}

func NewPacer(targetInterval time.Duration) *Pacer {
	return &Pacer{
		TargetInterval: targetInterval,
	}
}

// Due reports whether a capture should fire at now, and the elapsed time
// since the previous capture completed. The very first call is always due.
func (p *Pacer) Due(now time.Time) (time.Duration, bool) {
	if p.LastProcessTime.IsZero() {
		return p.TargetInterval, true
	}
	elapsed := now.Sub(p.LastProcessTime)
	return elapsed, elapsed >= p.TargetInterval-p.FrameDelay
}

// Done records a completed capture. The overrun of this capture is
// subtracted from the wait before the next one.
func (p *Pacer) Done(finishedAt time.Time, elapsed, processTime time.Duration) {
	p.FrameDelay = max(0, processTime-(p.TargetInterval-elapsed))
	p.LastProcessTime = finishedAt
}

func (p *Pacer) Reset() {
	p.LastProcessTime = time.Time{}
	p.FrameDelay = 0
}

// TickInterval is how often the scheduler polls the Pacer.
func TickInterval(targetInterval, maxTick time.Duration) time.Duration {
	tick := targetInterval / 2
	if maxTick > 0 && maxTick < tick {
		tick = maxTick
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	return tick
}

// IntervalForFrameRate converts a frame rate into a capture interval,
// falling back to fallbackFPS when fps is not a usable number.
func IntervalForFrameRate(fps, fallbackFPS float64) time.Duration {
	if !isUsableFrameRate(fps) {
		fps = fallbackFPS
	}
	if !isUsableFrameRate(fps) {
		fps = DefaultFrameRate
	}
	return time.Duration(float64(time.Second) / fps)
}

func isUsableFrameRate(fps float64) bool {
	return fps > 0 && !math.IsNaN(fps) && !math.IsInf(fps, 0)
}
