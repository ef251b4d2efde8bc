// Package clock provides the process-wide time source used by the pacing
// and capture code, so tests can swap in a mock and drive ticks by hand.
package clock

import (
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

type Clock = clock.Clock
type Ticker = clock.Ticker
type Timer = clock.Timer
type Mock = clock.Mock

var globalClock atomic.Pointer[Clock]

func init() {
	Set(clock.New())
}

// Get returns the currently installed clock.
func Get() Clock {
	return *globalClock.Load()
}

// Set replaces the clock for everything that did not capture one explicitly.
func Set(clk Clock) {
	globalClock.Store(&clk)
}

func New() Clock {
	return clock.New()
}

func NewMock() *Mock {
	return clock.NewMock()
}

// OrGlobal returns clk if it is set, otherwise the global clock.
func OrGlobal(clk Clock) Clock {
	if clk != nil {
		return clk
	}
	return Get()
}
