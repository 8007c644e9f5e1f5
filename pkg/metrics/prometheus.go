package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	barsServed      prometheus.Histogram
	errorsTotal     *prometheus.CounterVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		upstreamCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdash_upstream_calls_total",
				Help: "Calls to reference and market data providers by result",
			},
			[]string{"upstream", "result"},
		),
		upstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockdash_upstream_duration_seconds",
				Help:    "Provider call duration in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdash_cache_lookups_total",
				Help: "Cache lookups by cache kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		barsServed: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockdash_series_bars",
				Help:    "Number of bars in each served series",
				Buckets: []float64{1, 5, 21, 63, 126, 252, 504, 1260, 2520, 5040},
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockdash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordUpstreamCall records one provider call and its latency.
func (r *Recorder) RecordUpstreamCall(upstream, result string, seconds float64) {
	r.upstreamCalls.WithLabelValues(upstream, result).Inc()
	r.upstreamLatency.WithLabelValues(upstream).Observe(seconds)
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(kind string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) RecordBarsServed(n int) {
	r.barsServed.Observe(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordUpstreamCall(string, string, float64) {}
func (Nop) RecordCache(string, bool)                   {}
func (Nop) RecordBarsServed(int)                       {}
func (Nop) RecordError(string)                         {}
