package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spritemov"

// Metrics groups the render counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	FramesComposited prometheus.Counter
	FramesWritten    prometheus.Counter
	Renders          *prometheus.CounterVec
	RenderSeconds    *prometheus.HistogramVec
	ActiveRenders    prometheus.Gauge
}

// New creates the render metrics and registers them with reg, if non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesComposited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_composited_total",
			Help:      "Canvases composited, including frames that failed to reach the encoder.",
		}),
		FramesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_written_total",
			Help:      "Frames accepted by the encoder pipe.",
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Finished renders by profile and outcome.",
		}, []string{"profile", "outcome"}),
		RenderSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Wall time of finished renders.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"profile"}),
		ActiveRenders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_renders",
			Help:      "Renders currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesComposited, m.FramesWritten, m.Renders, m.RenderSeconds, m.ActiveRenders)
	}
	return m
}

func (m *Metrics) Composited() {
	if m != nil {
		m.FramesComposited.Inc()
	}
}

func (m *Metrics) Written() {
	if m != nil {
		m.FramesWritten.Inc()
	}
}

func (m *Metrics) Started() {
	if m != nil {
		m.ActiveRenders.Inc()
	}
}

// Finished records a terminal render outcome.
func (m *Metrics) Finished(profile, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ActiveRenders.Dec()
	m.Renders.WithLabelValues(profile, outcome).Inc()
	m.RenderSeconds.WithLabelValues(profile).Observe(seconds)
}
