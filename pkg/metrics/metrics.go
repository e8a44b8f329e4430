// Package metrics exposes cache and action statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homely"

// CacheSource reports cache occupancy.
type CacheSource interface {
	Len() int
	ApproxBytes() int64
}

// HitSource reports cache lookup counters.
type HitSource interface {
	Hits() int64
	Misses() int64
	HitRatePercent() float64
}

// Metrics owns a private registry with the optimizer's collectors.
type Metrics struct {
	registry *prometheus.Registry
	actions  *prometheus.HistogramVec
}

// New registers collectors reading from cache and hits on a fresh registry.
func New(cache CacheSource, hits HitSource) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups that found a live entry.",
		}, func() float64 { return float64(hits.Hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that found nothing.",
		}, func() float64 { return float64(hits.Misses()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hit_rate_percent",
			Help:      "Hits as a percentage of all lookups since start.",
		}, hits.HitRatePercent),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries held in memory, including expired ones not yet read.",
		}, func() float64 { return float64(cache.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "bytes_approx",
			Help:      "Approximate bytes held by cache keys and values.",
		}, func() float64 { return float64(cache.ApproxBytes()) }),
	)

	actions := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "action_duration_seconds",
		Help:      "Latency of optimizer actions by name and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action", "outcome"})
	reg.MustRegister(actions)

	return &Metrics{registry: reg, actions: actions}
}

// ObserveAction records the duration of one action call.
func (m *Metrics) ObserveAction(action string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.actions.WithLabelValues(action, outcome).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
