// Package sim implements the stateful position and PnL simulator. A
// Simulator instance is exclusively owned by one backtest run; days must be
// fed strictly in chronological order because each day's result depends on
// the mutated state left by the previous one.
package sim

import (
	"math"
	"time"

	"quantbt/internal/types"
)

// tradeEpsilon is the position change below which no trade is generated.
const tradeEpsilon = 1e-6

// Costs models trading costs in basis points.
type Costs struct {
	FeesBps     float64 `yaml:"fees_bps" json:"fees_bps"`
	SlippageBps float64 `yaml:"slippage_bps" json:"slippage_bps"`
	MinFee      float64 `yaml:"min_fee" json:"min_fee"`           // floor per trade, 0 = none
	MaxSlippage float64 `yaml:"max_slippage" json:"max_slippage"` // cap per trade, 0 = none
}

// Sizing models position sizing constraints.
type Sizing struct {
	NotionalPctNAV float64 `yaml:"notional_pct_nav" json:"notional_pct_nav"` // (0, 1]
	MaxLeverage    float64 `yaml:"max_leverage" json:"max_leverage"`         // 0 = none
	MinPosition    float64 `yaml:"min_position" json:"min_position"`
	MaxPosition    float64 `yaml:"max_position" json:"max_position"` // 0 = none
}

// Config configures a Simulator.
type Config struct {
	Costs      Costs   `yaml:"costs" json:"costs"`
	Sizing     Sizing  `yaml:"sizing" json:"sizing"`
	InitialNAV float64 `yaml:"initial_nav" json:"initial_nav"`
}

// State is a read-only snapshot of the simulator's internals.
type State struct {
	Position      float64 `json:"position"`
	EntryPrice    float64 `json:"entry_price"`
	NAV           float64 `json:"nav"`
	BenchmarkNAV  float64 `json:"benchmark_nav"`
	RealizedPnL   float64 `json:"realized_pnl"`
	TotalFees     float64 `json:"total_fees"`
	TotalSlippage float64 `json:"total_slippage"`
	Days          int     `json:"days"`
}

// Simulator tracks one run's position, cost basis, NAV and PnL history.
type Simulator struct {
	config Config

	position      float64 // signed notional
	entryPrice    float64 // weighted-average cost basis
	nav           float64
	benchmarkNAV  float64
	realizedPnL   float64
	totalFees     float64
	totalSlippage float64

	history []types.DailyPnL
}

// NewSimulator creates a simulator for a single run.
func NewSimulator(config Config) *Simulator {
	if config.InitialNAV <= 0 {
		config.InitialNAV = 1.0
	}
	s := &Simulator{config: config}
	s.Reset(config.InitialNAV)
	return s
}

// Reset clears all state so the simulator can be reused for another run.
func (s *Simulator) Reset(initialNAV float64) {
	if initialNAV <= 0 {
		initialNAV = 1.0
	}
	s.position = 0
	s.entryPrice = 0
	s.nav = initialNAV
	s.benchmarkNAV = initialNAV
	s.realizedPnL = 0
	s.totalFees = 0
	s.totalSlippage = 0
	s.history = nil
}

// ProcessDay advances the simulator by one day: it sizes the target position
// from the signal score, executes the implied trade with fees and slippage,
// updates the cost basis and NAV, and returns the day's record.
func (s *Simulator) ProcessDay(date string, signalScore, price, benchmarkReturn, underlyingReturn float64) types.DailyPnL {
	score := signalScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	target := score * s.config.Sizing.NotionalPctNAV * s.nav
	if s.config.Sizing.MinPosition != 0 && target < s.config.Sizing.MinPosition {
		target = s.config.Sizing.MinPosition
	}
	if s.config.Sizing.MaxPosition != 0 && target > s.config.Sizing.MaxPosition {
		target = s.config.Sizing.MaxPosition
	}
	if s.config.Sizing.MaxLeverage > 0 {
		maxNotional := s.nav * s.config.Sizing.MaxLeverage
		if math.Abs(target) > maxNotional {
			if target > 0 {
				target = maxNotional
			} else {
				target = -maxNotional
			}
		}
	}

	priorPosition := s.position
	change := target - priorPosition

	day := types.DailyPnL{
		Date:           date,
		TargetPosition: target,
		ActualPosition: priorPosition,
	}

	var dayRealized, dayFees, daySlippage float64
	if math.Abs(change) > tradeEpsilon {
		notional := math.Abs(change) * price
		fees := notional * s.config.Costs.FeesBps / 10000
		if s.config.Costs.MinFee > 0 && fees < s.config.Costs.MinFee {
			fees = s.config.Costs.MinFee
		}
		slippage := notional * s.config.Costs.SlippageBps / 10000
		if s.config.Costs.MaxSlippage > 0 && slippage > s.config.Costs.MaxSlippage {
			slippage = s.config.Costs.MaxSlippage
		}

		// Realized PnL accrues only on the portion that closes the prior
		// position: a change opposing the prior position's direction.
		gross := 0.0
		if priorPosition != 0 && s.entryPrice != 0 && oppositeSigns(change, priorPosition) {
			closingQty := math.Min(math.Abs(change), math.Abs(priorPosition))
			gross = closingQty * (price - s.entryPrice)
			if priorPosition < 0 {
				gross = -gross
			}
		}
		netRealized := gross - fees - slippage

		side := types.TradeSideBuy
		if change < 0 {
			side = types.TradeSideSell
		}
		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			ts = time.Now().UTC()
		}
		trade := types.TradeExecution{
			Timestamp:    ts,
			Side:         side,
			Quantity:     math.Abs(change),
			Price:        price,
			Fees:         fees,
			Slippage:     slippage,
			RealizedPnL:  netRealized,
			PositionSize: target,
		}
		day.Trades = append(day.Trades, trade)

		s.position = target
		day.ActualPosition = s.position

		// Cost basis: reset on a new position or a direction flip, judged
		// against the pre-trade position; weighted average when the position
		// grew in the same direction.
		if s.position != 0 {
			if priorPosition == 0 || oppositeSigns(s.position, priorPosition) {
				s.entryPrice = price
			} else if math.Abs(s.position) > math.Abs(priorPosition) {
				added := math.Abs(s.position) - math.Abs(priorPosition)
				s.entryPrice = (s.entryPrice*math.Abs(priorPosition) + price*added) / math.Abs(s.position)
			}
		}

		dayRealized = netRealized
		dayFees = fees
		daySlippage = slippage
		s.realizedPnL += netRealized
		s.totalFees += fees
		s.totalSlippage += slippage
	}

	unrealized := s.position * (price - s.entryPrice)
	totalPnL := dayRealized + unrealized

	// Multiplicative NAV update, preserved exactly.
	if s.nav != 0 {
		s.nav = s.nav * (1 + totalPnL/s.nav)
	}
	s.benchmarkNAV *= 1 + benchmarkReturn

	day.MarketValue = s.position * price
	day.RealizedPnL = dayRealized
	day.UnrealizedPnL = unrealized
	day.TotalPnL = totalPnL
	day.Fees = dayFees
	day.Slippage = daySlippage
	day.NAV = s.nav
	day.Benchmark = s.benchmarkNAV

	s.history = append(s.history, day)
	return day
}

func oppositeSigns(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

// Results returns the accumulated daily history.
func (s *Simulator) Results() []types.DailyPnL {
	out := make([]types.DailyPnL, len(s.history))
	copy(out, s.history)
	return out
}

// CurrentState returns a snapshot of the simulator's internal state.
func (s *Simulator) CurrentState() State {
	return State{
		Position:      s.position,
		EntryPrice:    s.entryPrice,
		NAV:           s.nav,
		BenchmarkNAV:  s.benchmarkNAV,
		RealizedPnL:   s.realizedPnL,
		TotalFees:     s.totalFees,
		TotalSlippage: s.totalSlippage,
		Days:          len(s.history),
	}
}
