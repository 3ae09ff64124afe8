// Package perf provides stateless performance statistics over price, return
// and equity series. All functions are pure; annualization assumes 252
// trading days and a zero risk-free rate.
package perf

import (
	"math"
	"sort"

	"quantbt/internal/types"
)

const tradingDaysPerYear = 252

// ErrKPIComputation reports a KPI computation failure.
type ErrKPIComputation struct {
	Message string
}

func (e ErrKPIComputation) Error() string {
	return "kpi computation error: " + e.Message
}

// Returns computes daily simple returns from a price series. A non-positive
// previous price yields a zero return for that step.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}

// TotalReturn compounds a return sequence into a cumulative return.
func TotalReturn(returns []float64) float64 {
	cum := 1.0
	for _, r := range returns {
		cum *= 1 + r
	}
	return cum - 1
}

// AnnualizedReturn annualizes the compounded return of the sequence.
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	total := TotalReturn(returns)
	years := float64(len(returns)) / tradingDaysPerYear
	if years <= 0 {
		return total
	}
	return math.Pow(1+total, 1/years) - 1
}

// AnnualizedVolatility is the sample standard deviation of the returns
// scaled by sqrt(252). Fewer than 2 points yields 0.
func AnnualizedVolatility(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(n - 1)
	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown returns the most negative peak-to-trough decline of an equity
// curve. The result is always <= 0; a non-decreasing curve yields 0.
func MaxDrawdown(equity []float64) float64 {
	peak := 1.0
	if len(equity) > 0 {
		peak = equity[0]
	}
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Sharpe is the annualized return over annualized volatility, 0 when the
// volatility is 0.
func Sharpe(annReturn, annVol float64) float64 {
	if annVol == 0 {
		return 0
	}
	return annReturn / annVol
}

// HitRate is the fraction of trades with positive realized PnL.
func HitRate(trades []types.TradeExecution) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// ExcessReturn is the strategy's cumulative return over the benchmark's.
// Equal-length series are compounded step by step in alignment; otherwise
// each side's total return is compounded independently.
func ExcessReturn(stratReturns, benchReturns []float64) float64 {
	if len(stratReturns) == len(benchReturns) {
		stratCum, benchCum := 1.0, 1.0
		diff := 0.0
		for i := range stratReturns {
			stratCum *= 1 + stratReturns[i]
			benchCum *= 1 + benchReturns[i]
			diff = (stratCum - 1) - (benchCum - 1)
		}
		return diff
	}
	return TotalReturn(stratReturns) - TotalReturn(benchReturns)
}

// MonthlyPnL groups equity points by calendar month and reports each month's
// strategy return, sorted ascending by year-month with one entry per month.
func MonthlyPnL(points []types.EquityPoint) []types.MonthlyPnL {
	type span struct {
		first float64
		last  float64
		seen  bool
	}
	byMonth := make(map[string]*span)
	for _, p := range points {
		ym := p.TS.UTC().Format("2006-01")
		s, ok := byMonth[ym]
		if !ok {
			s = &span{}
			byMonth[ym] = s
		}
		if !s.seen {
			s.first = p.Strat
			s.seen = true
		}
		s.last = p.Strat
	}

	months := make([]string, 0, len(byMonth))
	for ym := range byMonth {
		months = append(months, ym)
	}
	sort.Strings(months)

	out := make([]types.MonthlyPnL, 0, len(months))
	for _, ym := range months {
		s := byMonth[ym]
		pct := 0.0
		if s.first > 0 {
			pct = (s.last - s.first) / s.first
		}
		out = append(out, types.MonthlyPnL{YM: ym, PnLPct: pct})
	}
	return out
}

// Clamp bounds a value into [min, max]. NaN and infinities map to 0, not to
// a bound.
func Clamp(value, min, max float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RollingSharpe computes the Sharpe ratio over each trailing window of the
// return sequence, clamped to [-5, 5].
func RollingSharpe(returns []float64, window int) []float64 {
	if window <= 0 {
		window = 63
	}
	if len(returns) < window {
		return nil
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := window; i <= len(returns); i++ {
		slice := returns[i-window : i]
		s := Sharpe(AnnualizedReturn(slice), AnnualizedVolatility(slice))
		out = append(out, Clamp(s, -5, 5))
	}
	return out
}

// VaR is the empirical return quantile at the given confidence level.
func VaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)) * confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Calmar is the annualized return over the absolute max drawdown, 0 when the
// drawdown is non-negative.
func Calmar(annReturn, maxDD float64) float64 {
	if maxDD >= 0 {
		return 0
	}
	return annReturn / math.Abs(maxDD)
}

// ComputeKPIs assembles the full KPI record for a run. It fails when fewer
// than 2 equity points are supplied.
func ComputeKPIs(equity []types.EquityPoint, trades []types.TradeExecution, benchReturns []float64) (types.KPIs, error) {
	if len(equity) < 2 {
		return types.KPIs{}, ErrKPIComputation{Message: "need at least 2 equity points"}
	}

	strat := make([]float64, len(equity))
	for i, p := range equity {
		strat[i] = p.Strat
	}
	stratReturns := Returns(strat)

	annReturn := AnnualizedReturn(stratReturns)
	annVol := AnnualizedVolatility(stratReturns)

	pnlUSD := 0.0
	for _, t := range trades {
		pnlUSD += t.RealizedPnL
	}

	return types.KPIs{
		PnLUSD:         pnlUSD,
		PnLPct:         TotalReturn(stratReturns),
		MaxDDPct:       MaxDrawdown(strat),
		Sharpe:         Sharpe(annReturn, annVol),
		HitRate:        HitRate(trades),
		Trades:         len(trades),
		VolPct:         annVol,
		VsBenchmarkPct: ExcessReturn(stratReturns, benchReturns),
	}, nil
}
