package monitor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/internal/config"
)

func TestMetricsRecording(t *testing.T) {
	m, registry := NewMetrics()

	m.RecordRun("etf-flow-long", "success", 1.5)
	m.RecordRun("etf-flow-long", "failure", 0.2)
	m.RecordScheduledRun("etf-flow-long", "success")
	m.RecordResults("etf-flow-long", 90, 42, 0.12, 1.8, -0.08)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("etf-flow-long", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("etf-flow-long", "failure")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.daysSimulated))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.tradesExecuted))
	assert.Equal(t, 0.12, testutil.ToFloat64(m.lastRunPnLPct.WithLabelValues("etf-flow-long")))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func testServer(t *testing.T, prometheusEnabled bool) (*Metrics, *Server) {
	t.Helper()
	m, registry := NewMetrics()
	s := NewServer(
		config.ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second},
		config.MonitoringConfig{PrometheusEnabled: prometheusEnabled, PrometheusPath: "/metrics"},
		registry,
	)
	return m, s
}

func TestHealthEndpoint(t *testing.T) {
	_, s := testServer(t, false)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	m, s := testServer(t, true)
	m.RecordRun("etf-flow-long", "success", 0.3)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quantbt_runs_total")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	_, s := testServer(t, false)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
