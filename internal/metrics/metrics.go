// Package metrics exposes the relay's Prometheus collectors on a dedicated
// registry, so tests can build isolated instances.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formrelay"

// Submission outcomes recorded by SubmissionsTotal.
const (
	OutcomeSent           = "sent"
	OutcomeSuppressed     = "suppressed"
	OutcomeInvalid        = "invalid"
	OutcomeAuthFailed     = "auth_failed"
	OutcomeSecretFailed   = "secret_failed"
	OutcomeDeliveryFailed = "delivery_failed"
)

// Metrics holds every collector the relay records to.
type Metrics struct {
	registry *prometheus.Registry

	SubmissionsTotal   *prometheus.CounterVec
	DeliveryDuration   *prometheus.HistogramVec
	SecretCacheLookups *prometheus.CounterVec
	SecretCachePruned  prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Contact submissions handled, by outcome.",
		}, []string{"outcome"}),
		DeliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Duration of the single outbound delivery attempt.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"provider", "result"}),
		SecretCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_cache_lookups_total",
			Help:      "Secret cache lookups, by hit or miss.",
		}, []string{"result"}),
		SecretCachePruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_cache_pruned_total",
			Help:      "Expired secret cache entries removed by the janitor.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SubmissionsTotal,
		m.DeliveryDuration,
		m.SecretCacheLookups,
		m.SecretCachePruned,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Submission counts one handled submission.
func (m *Metrics) Submission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// Delivery records the duration of one delivery attempt.
func (m *Metrics) Delivery(provider string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DeliveryDuration.WithLabelValues(provider, result).Observe(d.Seconds())
}

// CacheLookup matches the secrets.WithObserver callback.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SecretCacheLookups.WithLabelValues(result).Inc()
}

// Pruned counts entries removed from the secret cache.
func (m *Metrics) Pruned(n int) {
	m.SecretCachePruned.Add(float64(n))
}
