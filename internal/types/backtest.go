package types

import "time"

// TradeSide is the direction of a simulated fill.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// BenchmarkPoint is one day of benchmark data: daily close and simple return.
type BenchmarkPoint struct {
	Date   string  `json:"date" csv:"date"` // YYYY-MM-DD
	Price  float64 `json:"price" csv:"price"`
	Return float64 `json:"return" csv:"return"`
}

// DailySignalData holds one evaluation day's per-agent records.
type DailySignalData struct {
	Date            string                            `json:"date"`
	AgentData       map[string]map[string]interface{} `json:"agent_data"`
	AggregatedScore float64                           `json:"aggregated_score"`
}

// TradeExecution records a single simulated trade. Produced only when the
// position change exceeds the execution threshold.
type TradeExecution struct {
	Timestamp    time.Time `json:"timestamp"`
	Side         TradeSide `json:"side"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	Fees         float64   `json:"fees"`
	Slippage     float64   `json:"slippage"`
	RealizedPnL  float64   `json:"realized_pnl"` // net of fees and slippage
	PositionSize float64   `json:"position_size"`
}

// DailyPnL is one simulated day's result. Immutable once produced.
type DailyPnL struct {
	Date           string           `json:"date"`
	TargetPosition float64          `json:"target_position"`
	ActualPosition float64          `json:"actual_position"`
	MarketValue    float64          `json:"market_value"`
	RealizedPnL    float64          `json:"realized_pnl"`
	UnrealizedPnL  float64          `json:"unrealized_pnl"`
	TotalPnL       float64          `json:"total_pnl"`
	Fees           float64          `json:"fees"`
	Slippage       float64          `json:"slippage"`
	NAV            float64          `json:"nav"`
	Benchmark      float64          `json:"benchmark"`
	Trades         []TradeExecution `json:"trades"`
}

// EquityPoint is one point on the run's equity curves.
type EquityPoint struct {
	TS    time.Time `json:"ts"`
	NAV   float64   `json:"nav"`   // base curve, constant 1.0
	Strat float64   `json:"strat"` // simulator NAV
	Bench float64   `json:"bench"` // benchmark NAV
}

// MonthlyPnL is the strategy return over one calendar month.
type MonthlyPnL struct {
	YM     string  `json:"ym"` // YYYY-MM
	PnLPct float64 `json:"pnl_pct"`
}

// KPIs summarizes a backtest run.
type KPIs struct {
	PnLUSD         float64 `json:"pnl_usd"`
	PnLPct         float64 `json:"pnl_pct"`
	MaxDDPct       float64 `json:"max_dd_pct"` // always <= 0
	Sharpe         float64 `json:"sharpe"`
	HitRate        float64 `json:"hit_rate"`
	Trades         int     `json:"trades"`
	VolPct         float64 `json:"vol_pct"`
	VsBenchmarkPct float64 `json:"vs_benchmark_pct"`
}

// Results is the complete output of one backtest run.
type Results struct {
	KPIs       KPIs          `json:"kpis"`
	Equity     []EquityPoint `json:"equity"`
	MonthlyPnL []MonthlyPnL  `json:"monthly_pnl"`
	Notes      []string      `json:"notes"`
}
