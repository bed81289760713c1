// Package metrics exposes Prometheus collectors for the engine and a small
// HTTP router serving them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HendryAvila/spikeforge/internal/cache"
	"github.com/HendryAvila/spikeforge/internal/catalog"
)

// Metrics implements engine.Recorder on a private registry, so several
// engines (tests, mostly) never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	resolutions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	selections  *prometheus.CounterVec
	confidence  prometheus.Histogram
	skipped     prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikeforge_resolutions_total",
				Help: "Spike resolutions by the source that answered them",
			},
			[]string{"source"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikeforge_resolution_errors_total",
				Help: "Failed spike resolutions by error kind",
			},
			[]string{"kind"},
		),
		selections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spikeforge_selections_total",
				Help: "Auto-select calls by outcome",
			},
			[]string{"outcome"}, // "matched", "none"
		),
		confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spikeforge_selection_confidence",
				Help:    "Confidence of auto-selected spikes",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		skipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spikeforge_metadata_skipped_total",
				Help: "Templates skipped during ranking because their metadata failed to load",
			},
		),
	}
}

func (m *Metrics) Resolved(source catalog.Source) {
	m.resolutions.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) Failed(kind catalog.ErrorKind) {
	label := string(kind)
	if label == "" {
		label = "other"
	}
	m.failures.WithLabelValues(label).Inc()
}

func (m *Metrics) Selected(found bool, confidence float64) {
	if !found {
		m.selections.WithLabelValues("none").Inc()
		return
	}
	m.selections.WithLabelValues("matched").Inc()
	m.confidence.Observe(confidence)
}

func (m *Metrics) Skipped() {
	m.skipped.Inc()
}

// WatchCache exports cache counters, read from stats at scrape time.
func (m *Metrics) WatchCache(stats func() cache.Stats) {
	f := promauto.With(m.Registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "spikeforge_cache_entries",
		Help: "Definitions currently cached",
	}, func() float64 { return float64(stats().Size) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "spikeforge_cache_hits_total",
		Help: "Cache hits",
	}, func() float64 { return float64(stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "spikeforge_cache_misses_total",
		Help: "Cache misses",
	}, func() float64 { return float64(stats().Misses) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "spikeforge_cache_evictions_total",
		Help: "Entries evicted to stay within capacity",
	}, func() float64 { return float64(stats().Evictions) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "spikeforge_cache_expirations_total",
		Help: "Entries dropped after their time-to-live",
	}, func() float64 { return float64(stats().Expirations) })
}
