// Package metrics exposes Prometheus collectors for the control loop and
// expressions.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-emo/pkg/emotions"
	"github.com/teslashibe/go-emo/pkg/session"
)

const namespace = "emo"

// Metrics holds the collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	Cycles         *prometheus.CounterVec
	Loudness       prometheus.Histogram
	Transitions    *prometheus.CounterVec
	Sleeping       prometheus.Gauge
	Transcriptions *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	TurnDuration   prometheus.Histogram
	Expressions    *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
}

// New registers the collectors plus the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Sampling cycles started, by mode.",
		}, []string{"mode"}),
		Loudness: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_loudness_rms",
			Help:      "RMS loudness of captured samples.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions, by resulting mode and action.",
		}, []string{"mode", "action"}),
		Sleeping: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sleeping",
			Help:      "1 while the companion is sleeping.",
		}),
		Transcriptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription attempts, by outcome.",
		}, []string{"outcome"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Interaction turns, by result and emotion.",
		}, []string{"result", "emotion"}),
		TurnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from acknowledgement to delivered reply.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		Expressions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expressions_total",
			Help:      "Expressions rendered, by emotion and result.",
		}, []string{"emotion", "result"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expression_duration_seconds",
			Help:      "Expression render time.",
			Buckets:   prometheus.LinearBuckets(0.5, 0.5, 10),
		}, []string{"emotion"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CycleStarted(s session.State) {
	m.Cycles.WithLabelValues(s.Mode.String()).Inc()
}

func (m *Metrics) Sampled(loudness float64) {
	m.Loudness.Observe(loudness)
}

func (m *Metrics) Transitioned(from, to session.State, action session.Action) {
	m.Transitions.WithLabelValues(to.Mode.String(), action.String()).Inc()
	if to.Mode == session.Sleeping {
		m.Sleeping.Set(1)
	} else {
		m.Sleeping.Set(0)
	}
}

func (m *Metrics) Transcribed(outcome string) {
	m.Transcriptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TurnFinished(t session.Turn) {
	m.Turns.WithLabelValues(t.Result, t.Emotion.String()).Inc()
	if t.Result == session.ResultDelivered {
		m.TurnDuration.Observe(t.Duration.Seconds())
	}
}

var _ session.Observer = (*Metrics)(nil)

// Renderer is the expression player interface being instrumented.
type Renderer interface {
	Render(ctx context.Context, e emotions.Emotion, loops int) error
}

// InstrumentedRenderer counts and times renders.
type InstrumentedRenderer struct {
	next    Renderer
	metrics *Metrics
}

// Instrument wraps r so every render is recorded in m.
func (m *Metrics) Instrument(r Renderer) *InstrumentedRenderer {
	return &InstrumentedRenderer{next: r, metrics: m}
}

// Render delegates to the wrapped renderer.
func (r *InstrumentedRenderer) Render(ctx context.Context, e emotions.Emotion, loops int) error {
	start := time.Now()
	err := r.next.Render(ctx, e, loops)
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.metrics.Expressions.WithLabelValues(e.String(), result).Inc()
	r.metrics.RenderDuration.WithLabelValues(e.String()).Observe(time.Since(start).Seconds())
	return err
}
