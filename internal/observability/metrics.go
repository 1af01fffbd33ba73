package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatch counters and histograms.
type Metrics struct {
	Requests    *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	QuotaDenied prometheus.Counter
	Fallbacks   prometheus.Counter
	Latency     *prometheus.HistogramVec
	CostMicros  *prometheus.CounterVec
}

// NewMetrics creates and registers the metric set. Pass nil to register
// on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by feature and outcome.",
		}, []string{"feature", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "cache_hits_total",
			Help:      "Responses served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that missed.",
		}),
		QuotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "quota_denied_total",
			Help:      "Requests rejected by the daily quota.",
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "fallbacks_total",
			Help:      "Requests served by the fallback backend.",
		}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aidispatch",
			Name:      "request_duration_seconds",
			Help:      "End-to-end dispatch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"backend"}),
		CostMicros: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidispatch",
			Name:      "cost_micros_total",
			Help:      "Accrued spend in micro-USD by backend.",
		}, []string{"backend"}),
	}

	reg.MustRegister(m.Requests, m.CacheHits, m.CacheMisses, m.QuotaDenied,
		m.Fallbacks, m.Latency, m.CostMicros)
	return m
}

// ObserveRequest records one completed dispatch.
func (m *Metrics) ObserveRequest(feature, backendID, outcome string, latency time.Duration, costMicros int64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(feature, outcome).Inc()
	if backendID != "" {
		m.Latency.WithLabelValues(backendID).Observe(latency.Seconds())
		if costMicros > 0 {
			m.CostMicros.WithLabelValues(backendID).Add(float64(costMicros))
		}
	}
}
