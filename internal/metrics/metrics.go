// Package metrics exposes estimator measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"shopfloor-estimator/internal/estimator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeError      = "error"
	outcomeValidation = "invalid"
)

// Collector records suggestion requests, store failures and cache use.
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	storeErrors prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	gatherer prometheus.Gatherer
}

var _ estimator.Observer = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg. A nil reg
// uses a fresh private registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "estimator_suggest_requests_total",
			Help: "Suggestion requests by outcome (history, fallback, invalid, error)",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "estimator_suggest_duration_seconds",
			Help:    "Suggestion request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "estimator_store_errors_total",
			Help: "Suggestion requests that failed with a data access error",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "estimator_cache_hits_total",
			Help: "Suggestion requests served from the result cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "estimator_cache_misses_total",
			Help: "Suggestion requests not found in the result cache",
		}),
		gatherer: reg,
	}

	reg.MustRegister(c.requests, c.latency, c.storeErrors, c.cacheHits, c.cacheMisses)
	return c
}

// ObserveSuggest records one finished suggestion request.
func (c *Collector) ObserveSuggest(source estimator.Source, elapsed time.Duration, err error) {
	outcome := string(source)
	switch {
	case estimator.IsDataAccess(err):
		outcome = outcomeError
		c.storeErrors.Inc()
	case err != nil:
		outcome = outcomeValidation
	}
	c.requests.WithLabelValues(outcome).Inc()
	c.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup.
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
