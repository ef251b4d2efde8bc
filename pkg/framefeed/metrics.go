package framefeed

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type DropReason string

const (
	DropReasonNoBuffer           = DropReason("no_buffer")
	DropReasonSizeMismatch       = DropReason("size_mismatch")
	DropReasonDimensionsMismatch = DropReason("dimensions_mismatch")
	DropReasonNoRoom             = DropReason("no_room")
	DropReasonPushFailed         = DropReason("push_failed")
)

var dropReasons = []DropReason{
	DropReasonNoBuffer,
	DropReasonSizeMismatch,
	DropReasonDimensionsMismatch,
	DropReasonNoRoom,
	DropReasonPushFailed,
}

type Stats struct {
	Admitted uint64
	Evicted  uint64
	Dropped  map[DropReason]uint64
}

func (s Stats) DroppedTotal() uint64 {
	var total uint64
	for _, v := range s.Dropped {
		total += v
	}
	return total
}

type metrics struct {
	admitted atomic.Uint64
	evicted  atomic.Uint64
	dropped  map[DropReason]*atomic.Uint64

	admittedCounter prometheus.Counter
	evictedCounter  prometheus.Counter
	droppedCounter  *prometheus.CounterVec
}

func newMetrics(constLabels prometheus.Labels) *metrics {
	m := &metrics{
		dropped: map[DropReason]*atomic.Uint64{},
		admittedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "videotexture",
			Subsystem:   "framefeed",
			Name:        "admitted_frames_total",
			Help:        "Frames pushed into the ring buffer.",
			ConstLabels: constLabels,
		}),
		evictedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "videotexture",
			Subsystem:   "framefeed",
			Name:        "evicted_frames_total",
			Help:        "Oldest frames discarded to make room for a new one.",
			ConstLabels: constLabels,
		}),
		droppedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "videotexture",
			Subsystem:   "framefeed",
			Name:        "dropped_frames_total",
			Help:        "Frames rejected by the admission policy.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}
	for _, reason := range dropReasons {
		m.dropped[reason] = &atomic.Uint64{}
	}
	return m
}

func (m *metrics) incAdmitted() {
	m.admitted.Add(1)
	m.admittedCounter.Inc()
}

func (m *metrics) incEvicted() {
	m.evicted.Add(1)
	m.evictedCounter.Inc()
}

func (m *metrics) incDropped(reason DropReason) {
	m.dropped[reason].Add(1)
	m.droppedCounter.WithLabelValues(string(reason)).Inc()
}

func (m *metrics) stats() Stats {
	s := Stats{
		Admitted: m.admitted.Load(),
		Evicted:  m.evicted.Load(),
		Dropped:  map[DropReason]uint64{},
	}
	for reason, v := range m.dropped {
		s.Dropped[reason] = v.Load()
	}
	return s
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.admittedCounter,
		m.evictedCounter,
		m.droppedCounter,
	}
}
