package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Generations         *prometheus.CounterVec
	GenerationLatency   *prometheus.HistogramVec
	PersistenceFailures *prometheus.CounterVec
	PlaybackEvents      *prometheus.CounterVec
	LiveResources       prometheus.Gauge
	Notifications       *prometheus.CounterVec

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Generations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation requests by artifact kind and outcome.",
		}, []string{"kind", "outcome"}),
		GenerationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Upstream generation latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}, []string{"kind"}),
		PersistenceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Persistence failures by operation.",
		}, []string{"op"}),
		PlaybackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_events_total",
			Help:      "Playback transitions by event.",
		}, []string{"event"}),
		LiveResources: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_audio_resources",
			Help:      "Audio resource handles allocated and not yet released.",
		}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User notifications published by type.",
		}, []string{"type"}),
		stages: newStageWindow(256),
	}
}

// ObserveGeneration records one upstream call for kind ("script" or "voice").
func (m *Metrics) ObserveGeneration(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Milliseconds())
	m.Generations.WithLabelValues(kind, outcome).Inc()
	m.GenerationLatency.WithLabelValues(kind).Observe(ms)
	m.stages.Observe(kind+"_generation", ms)
}

// ObserveStage records a non-generation stage such as persistence writes.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.Observe(stage, float64(d.Milliseconds()))
}

func (m *Metrics) ObservePersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
	m.stages.ObserveIndicator("persistence_failure")
}

func (m *Metrics) ObservePlayback(event string) {
	if m == nil {
		return
	}
	m.PlaybackEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
