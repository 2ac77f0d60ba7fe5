package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveSuccess(40*time.Millisecond, 2)
	m.ObserveFailure(10*time.Millisecond, "INSUFFICIENT_STOCK")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	created := findMetricFamily(mfs, "marketplace_checkout_orders_created_total")
	require.NotNil(t, created)
	assert.Equal(t, 2.0, created.GetMetric()[0].GetCounter().GetValue())

	failures, err := fetchCounterValue(mfs, "marketplace_checkout_failures_total", "code", "INSUFFICIENT_STOCK")
	require.NoError(t, err)
	assert.Equal(t, 1.0, failures)

	sum, err := fetchHistogramSum(mfs, "marketplace_checkout_duration_seconds", "outcome", "success")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestOrderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncTransition("cancel", "ok")
	m.IncTransition("complete", "conflict")
	m.AddRestoredUnits(3)
	m.AddRestoredUnits(-1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "marketplace_orders_transitions_total", "result", "conflict")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	restored := findMetricFamily(mfs, "marketplace_orders_stock_restored_units_total")
	require.NotNil(t, restored)
	assert.Equal(t, 3.0, restored.GetMetric()[0].GetCounter().GetValue())
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	done := m.Start()
	done(http.MethodPost, "/api/v1/orders", http.StatusCreated, 20*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	sum, err := fetchHistogramSum(mfs, "marketplace_http_request_duration_seconds", "route", "/api/v1/orders")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)

	inFlight := findMetricFamily(mfs, "marketplace_http_requests_in_flight")
	require.NotNil(t, inFlight)
	assert.Equal(t, 0.0, inFlight.GetMetric()[0].GetGauge().GetValue())
}

func TestNilMetricsAreNoops(t *testing.T) {
	NewCheckoutMetrics(nil).ObserveSuccess(time.Second, 1)
	NewOrderMetrics(nil).IncTransition("process", "ok")
	NewHTTPMetrics(nil).Start()("GET", "/", 200, time.Second)

	var labels []*dto.LabelPair
	assert.False(t, matchesLabel(labels, "route", "/"))
}
