package engine

import (
	"context"
	"time"

	"quantbt/internal/sim"
	"quantbt/internal/types"
)

// RuleSpec is one rule definition inside a backtest configuration.
type RuleSpec struct {
	Expr        string  `yaml:"expr" json:"expr"`
	Weight      float64 `yaml:"weight" json:"weight"`
	Description string  `yaml:"description" json:"description"`
}

// Window is the closed historical evaluation window.
type Window struct {
	From time.Time `yaml:"from" json:"from"`
	To   time.Time `yaml:"to" json:"to"`
}

// Config is a complete backtest configuration. The engine validates it and
// never mutates it.
type Config struct {
	Name          string     `yaml:"name" json:"name"`
	Agents        []string   `yaml:"agents" json:"agents"`
	Rules         []RuleSpec `yaml:"rules" json:"rules"`
	Window        Window     `yaml:"window" json:"window"`
	FeesBps       float64    `yaml:"fees_bps" json:"fees_bps"`
	SlippageBps   float64    `yaml:"slippage_bps" json:"slippage_bps"`
	Sizing        sim.Sizing `yaml:"sizing" json:"sizing"`
	Benchmark     string     `yaml:"benchmark" json:"benchmark"` // BTC, ETH or NAV
	RebalanceDays int        `yaml:"rebalance_days" json:"rebalance_days"`
	InitialNAV    float64    `yaml:"initial_nav" json:"initial_nav"` // defaults to 1.0
}

// SignalSource supplies per-agent signal records for one day. Absence of
// data is an empty (or nil-valued) record, never an error.
type SignalSource interface {
	Signals(ctx context.Context, agentID, date string) (map[string]interface{}, error)
}

// BenchmarkSource supplies an ordered daily benchmark price/return series
// for a window.
type BenchmarkSource interface {
	History(ctx context.Context, benchmark string, from, to time.Time) ([]types.BenchmarkPoint, error)
}

// ErrInvalidConfig reports the first broken configuration constraint.
type ErrInvalidConfig struct {
	Field   string
	Message string
}

func (e ErrInvalidConfig) Error() string {
	return "invalid config: " + e.Field + " - " + e.Message
}

// ErrDataAlignment reports that no usable days remain after aligning signal
// and benchmark dates.
type ErrDataAlignment struct {
	Message string
}

func (e ErrDataAlignment) Error() string {
	return "data alignment error: " + e.Message
}
