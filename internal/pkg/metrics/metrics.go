// Package metrics holds the Prometheus collectors exported by the tracker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracker"

// Outcome labels for provider fetches.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ProviderMetrics records the behaviour of price providers.
// A nil *ProviderMetrics is valid and records nothing.
type ProviderMetrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	pricesFetched *prometheus.GaugeVec
	refreshTotal  *prometheus.CounterVec
}

// NewProviderMetrics creates the collectors and registers them with reg.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_total",
			Help:      "Price provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Latency of price provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		pricesFetched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_prices_returned",
			Help:      "Number of prices returned by the last successful call.",
		}, []string{"provider"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_refresh_total",
			Help:      "Price refreshes by result (fresh, partial, stale, failed).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetchTotal, m.fetchDuration, m.pricesFetched, m.refreshTotal)
	}
	return m
}

// ObserveFetch records one provider call.
func (m *ProviderMetrics) ObserveFetch(provider string, d time.Duration, returned int, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.fetchTotal.WithLabelValues(provider, OutcomeFailure).Inc()
		return
	}
	m.fetchTotal.WithLabelValues(provider, OutcomeSuccess).Inc()
	m.pricesFetched.WithLabelValues(provider).Set(float64(returned))
}

// ObserveRefresh records the result of a refresh cycle.
func (m *ProviderMetrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

// FetchCount returns the counter for a provider/outcome pair.
func (m *ProviderMetrics) FetchCount(provider, outcome string) prometheus.Counter {
	return m.fetchTotal.WithLabelValues(provider, outcome)
}

// RefreshCount returns the counter for a refresh result.
func (m *ProviderMetrics) RefreshCount(result string) prometheus.Counter {
	return m.refreshTotal.WithLabelValues(result)
}
