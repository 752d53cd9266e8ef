package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProviderMetrics_ObserveFetch(t *testing.T) {
	m := NewProviderMetrics(prometheus.NewRegistry())

	m.ObserveFetch("stooq", 20*time.Millisecond, 3, nil)
	m.ObserveFetch("stooq", 10*time.Millisecond, 0, errors.New("boom"))
	m.ObserveFetch("coingecko", 10*time.Millisecond, 1, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCount("stooq", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCount("stooq", OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pricesFetched.WithLabelValues("stooq")))
}

func TestProviderMetrics_NilIsNoop(t *testing.T) {
	var m *ProviderMetrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("stooq", time.Second, 1, nil)
		m.ObserveRefresh("fresh")
	})
}
