// Package metrics exposes Prometheus collectors for the playback loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidloop"

// Metrics holds the playback collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FramesPublished  prometheus.Counter
	PacketsDiscarded prometheus.Counter
	LoopRestarts     prometheus.Counter
	Failures         *prometheus.CounterVec
	Loads            *prometheus.CounterVec
	PacingSleep      prometheus.Histogram
	Running          prometheus.Gauge
}

// New registers the playback collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_published_total",
			Help:      "Decoded frames handed to the frame mailbox.",
		}),
		PacketsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_discarded_total",
			Help:      "Packets dropped because they belong to another stream.",
		}),
		LoopRestarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_restarts_total",
			Help:      "Rewinds to the start of the source after end of stream.",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Playback failures by kind.",
		}, []string{"kind"}),
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Session load attempts by result.",
		}, []string{"result"}),
		PacingSleep: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_sleep_seconds",
			Help:      "Time the loop slept to match frame timestamps.",
			Buckets:   []float64{.001, .005, .01, .02, .04, .08, .16, .32, 1},
		}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the playback loop is running.",
		}),
	}
}

func (m *Metrics) FramePublished() {
	if m != nil {
		m.FramesPublished.Inc()
	}
}

func (m *Metrics) PacketDiscarded() {
	if m != nil {
		m.PacketsDiscarded.Inc()
	}
}

func (m *Metrics) LoopRestarted() {
	if m != nil {
		m.LoopRestarts.Inc()
	}
}

func (m *Metrics) Failed(kind string) {
	if m != nil {
		m.Failures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Loaded(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Loads.WithLabelValues("ok").Inc()
	} else {
		m.Loads.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) Slept(d time.Duration) {
	if m != nil {
		m.PacingSleep.Observe(d.Seconds())
	}
}

func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.Running.Set(1)
	} else {
		m.Running.Set(0)
	}
}
