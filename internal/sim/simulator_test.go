package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/internal/types"
)

func newTestSimulator(nav float64) *Simulator {
	return NewSimulator(Config{
		Costs:      Costs{FeesBps: 5, SlippageBps: 3},
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: nav,
	})
}

func TestProcessDayFirstTrade(t *testing.T) {
	// Starting flat, target 100 at price 10 with 5bps fees and 3bps
	// slippage: notional 1000, fees 0.50, slippage 0.30, net -0.80.
	s := NewSimulator(Config{
		Costs:      Costs{FeesBps: 5, SlippageBps: 3},
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: 100,
	})

	day := s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	require.Len(t, day.Trades, 1)

	trade := day.Trades[0]
	assert.Equal(t, types.TradeSideBuy, trade.Side)
	assert.InDelta(t, 100, trade.Quantity, 1e-9)
	assert.InDelta(t, 0.5, trade.Fees, 1e-9)
	assert.InDelta(t, 0.3, trade.Slippage, 1e-9)
	assert.InDelta(t, -0.8, trade.RealizedPnL, 1e-9)

	state := s.CurrentState()
	assert.InDelta(t, 100, state.Position, 1e-9)
	assert.InDelta(t, 10, state.EntryPrice, 1e-9)
}

func TestProcessDayNoTradeBelowEpsilon(t *testing.T) {
	s := newTestSimulator(100)
	s.ProcessDay("2024-01-02", 0.5, 10, 0, 0)
	before := s.CurrentState()

	// Same score and NAV implies the same target; the residual change is
	// below the execution threshold.
	navRatio := before.NAV / 100
	_ = navRatio
	day := s.ProcessDay("2024-01-03", 0.5*100/before.NAV, 10, 0, 0)
	assert.Empty(t, day.Trades)
	assert.Equal(t, 0.0, day.Fees)
	assert.Equal(t, 0.0, day.Slippage)
}

func TestNAVUnchangedOnZeroPnL(t *testing.T) {
	s := newTestSimulator(100)
	before := s.CurrentState().NAV

	// Score 0 keeps the position flat: no trade, no PnL.
	day := s.ProcessDay("2024-01-02", 0, 10, 0, 0)
	assert.Empty(t, day.Trades)
	assert.Equal(t, 0.0, day.TotalPnL)
	assert.Equal(t, before, s.CurrentState().NAV)
}

func TestScoreClamping(t *testing.T) {
	s := NewSimulator(Config{
		Sizing:     Sizing{NotionalPctNAV: 0.5},
		InitialNAV: 100,
	})
	day := s.ProcessDay("2024-01-02", 5.0, 10, 0, 0)
	// Score clamps to 1: target = 1 * 0.5 * 100.
	assert.InDelta(t, 50, day.TargetPosition, 1e-9)

	s.Reset(100)
	day = s.ProcessDay("2024-01-02", -3.0, 10, 0, 0)
	assert.Equal(t, 0.0, day.TargetPosition)
	assert.Empty(t, day.Trades)
}

func TestRealizedPnLOnClose(t *testing.T) {
	s := NewSimulator(Config{
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: 100,
	})

	// Open at 10, price rises to 12; score 0 closes the whole position.
	s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	openPos := s.CurrentState().Position
	day := s.ProcessDay("2024-01-03", 0, 12, 0, 0)

	require.Len(t, day.Trades, 1)
	assert.Equal(t, types.TradeSideSell, day.Trades[0].Side)
	// Gross realized = closed quantity * (12 - 10), no costs configured.
	assert.InDelta(t, openPos*2, day.Trades[0].RealizedPnL, 1e-9)
	assert.Equal(t, 0.0, s.CurrentState().Position)
}

func TestCostBasisWeightedAverageOnIncrease(t *testing.T) {
	s := NewSimulator(Config{
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: 100,
	})

	// Half size at 10, then full size at 20 with a grown NAV.
	s.ProcessDay("2024-01-02", 0.5, 10, 0, 0)
	first := s.CurrentState()
	assert.InDelta(t, 10, first.EntryPrice, 1e-9)

	s.ProcessDay("2024-01-03", 1.0, 20, 0, 0)
	second := s.CurrentState()

	added := second.Position - first.Position
	require.Greater(t, added, 0.0)
	wantBasis := (first.EntryPrice*first.Position + 20*added) / second.Position
	assert.InDelta(t, wantBasis, second.EntryPrice, 1e-9)
}

func TestCostBasisResetOnNewPosition(t *testing.T) {
	s := NewSimulator(Config{
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: 100,
	})
	s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	s.ProcessDay("2024-01-03", 0, 11, 0, 0) // flat again
	s.ProcessDay("2024-01-04", 1.0, 15, 0, 0)
	assert.InDelta(t, 15, s.CurrentState().EntryPrice, 1e-9)
}

func TestBenchmarkNAVCompounds(t *testing.T) {
	s := newTestSimulator(100)
	s.ProcessDay("2024-01-02", 0, 10, 0.10, 0)
	s.ProcessDay("2024-01-03", 0, 10, -0.05, 0)
	assert.InDelta(t, 100*1.10*0.95, s.CurrentState().BenchmarkNAV, 1e-9)
}

func TestMaxLeverageCap(t *testing.T) {
	s := NewSimulator(Config{
		Sizing:     Sizing{NotionalPctNAV: 1.0, MaxLeverage: 0.5},
		InitialNAV: 100,
	})
	day := s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	assert.InDelta(t, 50, day.TargetPosition, 1e-9)
}

func TestMinFeeAndMaxSlippage(t *testing.T) {
	s := NewSimulator(Config{
		Costs:      Costs{FeesBps: 1, SlippageBps: 100, MinFee: 5, MaxSlippage: 2},
		Sizing:     Sizing{NotionalPctNAV: 1.0},
		InitialNAV: 100,
	})
	day := s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	require.Len(t, day.Trades, 1)
	assert.Equal(t, 5.0, day.Trades[0].Fees)
	assert.Equal(t, 2.0, day.Trades[0].Slippage)
}

func TestResetClearsState(t *testing.T) {
	s := newTestSimulator(100)
	s.ProcessDay("2024-01-02", 1.0, 10, 0.01, 0)
	require.NotEmpty(t, s.Results())

	s.Reset(200)
	state := s.CurrentState()
	assert.Equal(t, 0.0, state.Position)
	assert.Equal(t, 0.0, state.EntryPrice)
	assert.Equal(t, 200.0, state.NAV)
	assert.Equal(t, 200.0, state.BenchmarkNAV)
	assert.Empty(t, s.Results())
}

func TestHistoryIsCopied(t *testing.T) {
	s := newTestSimulator(100)
	s.ProcessDay("2024-01-02", 1.0, 10, 0, 0)
	results := s.Results()
	results[0].NAV = -1
	assert.NotEqual(t, -1.0, s.Results()[0].NAV)
}

func TestValidateCosts(t *testing.T) {
	assert.NoError(t, ValidateCosts(Costs{FeesBps: 0, SlippageBps: 1000}))
	assert.Error(t, ValidateCosts(Costs{FeesBps: -1}))
	assert.Error(t, ValidateCosts(Costs{FeesBps: 1001}))
	assert.Error(t, ValidateCosts(Costs{SlippageBps: 2000}))
}

func TestValidateSizing(t *testing.T) {
	assert.NoError(t, ValidateSizing(Sizing{NotionalPctNAV: 1.0}))
	assert.Error(t, ValidateSizing(Sizing{NotionalPctNAV: 0}))
	assert.Error(t, ValidateSizing(Sizing{NotionalPctNAV: 1.5}))
	assert.Error(t, ValidateSizing(Sizing{NotionalPctNAV: 0.5, MinPosition: 10, MaxPosition: 5}))

	err := ValidateSizing(Sizing{NotionalPctNAV: 2})
	var cerr ErrInvalidConfig
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "notional_pct_nav", cerr.Field)
}
