// Package monitor exposes Prometheus metrics for backtest runs and a small
// HTTP server serving /metrics and /healthz.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	daysSimulated   prometheus.Counter
	tradesExecuted  prometheus.Counter
	scheduledRuns   *prometheus.CounterVec
	lastRunPnLPct   *prometheus.GaugeVec
	lastRunSharpe   *prometheus.GaugeVec
	lastRunMaxDDPct *prometheus.GaugeVec
}

// NewMetrics creates new Prometheus metrics registered on a private registry.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantbt_runs_total",
				Help: "Total number of backtest runs",
			},
			[]string{"backtest", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantbt_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backtest"},
		),
		daysSimulated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantbt_days_simulated_total",
				Help: "Total number of simulated trading days",
			},
		),
		tradesExecuted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quantbt_trades_executed_total",
				Help: "Total number of simulated trade executions",
			},
		),
		scheduledRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantbt_scheduled_runs_total",
				Help: "Total number of scheduler-triggered runs",
			},
			[]string{"backtest", "status"},
		),
		lastRunPnLPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantbt_last_run_pnl_pct",
				Help: "Total return of the most recent run per backtest",
			},
			[]string{"backtest"},
		),
		lastRunSharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantbt_last_run_sharpe",
				Help: "Sharpe ratio of the most recent run per backtest",
			},
			[]string{"backtest"},
		),
		lastRunMaxDDPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantbt_last_run_max_drawdown_pct",
				Help: "Max drawdown of the most recent run per backtest",
			},
			[]string{"backtest"},
		),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.daysSimulated,
		m.tradesExecuted,
		m.scheduledRuns,
		m.lastRunPnLPct,
		m.lastRunSharpe,
		m.lastRunMaxDDPct,
	)

	return m, registry
}

// RecordRun records a completed or failed backtest run.
func (m *Metrics) RecordRun(backtest, status string, seconds float64) {
	m.runsTotal.WithLabelValues(backtest, status).Inc()
	m.runDuration.WithLabelValues(backtest).Observe(seconds)
}

// RecordScheduledRun records a scheduler-triggered run outcome.
func (m *Metrics) RecordScheduledRun(backtest, status string) {
	m.scheduledRuns.WithLabelValues(backtest, status).Inc()
}

// RecordResults records per-run aggregates from a successful run.
func (m *Metrics) RecordResults(backtest string, days, trades int, pnlPct, sharpe, maxDDPct float64) {
	m.daysSimulated.Add(float64(days))
	m.tradesExecuted.Add(float64(trades))
	m.lastRunPnLPct.WithLabelValues(backtest).Set(pnlPct)
	m.lastRunSharpe.WithLabelValues(backtest).Set(sharpe)
	m.lastRunMaxDDPct.WithLabelValues(backtest).Set(maxDDPct)
}
