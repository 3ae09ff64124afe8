// Package engine orchestrates a backtest run: it validates the
// configuration, parses the rule set, builds the evaluation time grid, pulls
// signal and benchmark data through the data ports, drives the simulator one
// day at a time in chronological order and assembles the final metrics.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quantbt/internal/logger"
	"quantbt/internal/perf"
	"quantbt/internal/rule"
	"quantbt/internal/sim"
	"quantbt/internal/types"
)

const dateLayout = "2006-01-02"

// Engine runs backtests against a pair of data ports.
type Engine struct {
	signals    SignalSource
	benchmarks BenchmarkSource
	log        logger.Logger
}

// NewEngine creates an engine over the given data ports.
func NewEngine(signals SignalSource, benchmarks BenchmarkSource) *Engine {
	return &Engine{
		signals:    signals,
		benchmarks: benchmarks,
		log:        logger.GetGlobalLogger(),
	}
}

// SetLogger overrides the engine's logger.
func (e *Engine) SetLogger(log logger.Logger) {
	if log != nil {
		e.log = log
	}
}

// Run executes one backtest. Any failure before the simulation loop aborts
// the whole run; there are no partial results. The day loop is strictly
// sequential because the simulator state carries from day to day.
func (e *Engine) Run(ctx context.Context, cfg Config) (*types.Results, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.WithFields(map[string]interface{}{
		"run_id":   runID,
		"backtest": cfg.Name,
	})

	results, err := e.run(ctx, log, cfg)
	elapsed := time.Since(start)
	if err != nil {
		log.Error("backtest run failed", "error", err, "elapsed", elapsed.String())
		return nil, err
	}
	log.Info("backtest run completed",
		"elapsed", elapsed.String(),
		"days", len(results.Equity),
		"trades", results.KPIs.Trades,
		"pnl_pct", results.KPIs.PnLPct,
	)
	return results, nil
}

func (e *Engine) run(ctx context.Context, log logger.Logger, cfg Config) (*types.Results, error) {
	// Phase 1: validate.
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	// Phase 2: parse rules.
	rules, err := parseRules(cfg.Rules)
	if err != nil {
		return nil, err
	}

	// Phase 3: build the time grid.
	grid := buildTimeGrid(cfg.Window.From, cfg.Window.To)
	log.Debug("time grid built", "days", len(grid))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 4: load signals. Fetches are read-only and independent of
	// simulator state, so they may run concurrently across agents.
	signalsByDate, err := e.loadSignals(ctx, cfg.Agents, grid)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	// Phase 5: load benchmark history.
	benchmark, err := e.benchmarks.History(ctx, cfg.Benchmark, cfg.Window.From, cfg.Window.To)
	if err != nil {
		return nil, fmt.Errorf("load benchmark %s: %w", cfg.Benchmark, err)
	}

	// Align: keep only grid days with a benchmark point. Days with signal
	// data but no benchmark match are dropped.
	aligned := alignDays(grid, benchmark)
	if len(aligned) == 0 {
		return nil, ErrDataAlignment{Message: "no days remain after aligning signals with benchmark " + cfg.Benchmark}
	}
	if dropped := len(grid) - len(aligned); dropped > 0 {
		log.Debug("dropped days without benchmark data", "dropped", dropped)
	}

	// Phase 6: simulate, strictly in ascending date order.
	initialNAV := cfg.InitialNAV
	if initialNAV <= 0 {
		initialNAV = 1.0
	}
	simulator := sim.NewSimulator(sim.Config{
		Costs:      sim.Costs{FeesBps: cfg.FeesBps, SlippageBps: cfg.SlippageBps},
		Sizing:     cfg.Sizing,
		InitialNAV: initialNAV,
	})

	equity := make([]types.EquityPoint, 0, len(aligned))
	trades := make([]types.TradeExecution, 0)
	benchReturns := make([]float64, 0, len(aligned))

	for _, day := range aligned {
		signalDay := signalsByDate[day.date]
		flat := flattenAgentData(cfg.Agents, signalDay.AgentData)
		score := rule.Score(rules, flat)

		if cfg.RebalanceDays > 1 {
			// Rebalance smoothing heuristic, kept as-is: blend the raw
			// score with a hold bias when a long position is open.
			hold := 0.0
			if simulator.CurrentState().Position > 0 {
				hold = 0.5
			}
			score = score*0.7 + hold*0.3
		}

		signalDay.AggregatedScore = score

		daily := simulator.ProcessDay(day.date, score, day.bench.Price, day.bench.Return, day.bench.Return)
		trades = append(trades, daily.Trades...)
		benchReturns = append(benchReturns, day.bench.Return)

		equity = append(equity, types.EquityPoint{
			TS:    day.ts,
			NAV:   1.0,
			Strat: daily.NAV,
			Bench: daily.Benchmark,
		})
	}

	// Phase 7: aggregate metrics.
	kpis, err := perf.ComputeKPIs(equity, trades, benchReturns)
	if err != nil {
		return nil, err
	}

	return &types.Results{
		KPIs:       kpis,
		Equity:     equity,
		MonthlyPnL: perf.MonthlyPnL(equity),
		Notes:      qualityNotes(cfg, grid, aligned, kpis),
	}, nil
}

// validateConfig checks the run configuration and reports the first broken
// constraint.
func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return ErrInvalidConfig{Field: "name", Message: "must not be empty"}
	}
	if len(cfg.Agents) == 0 {
		return ErrInvalidConfig{Field: "agents", Message: "at least one agent is required"}
	}
	if len(cfg.Rules) == 0 {
		return ErrInvalidConfig{Field: "rules", Message: "at least one rule is required"}
	}
	if !cfg.Window.From.Before(cfg.Window.To) {
		return ErrInvalidConfig{Field: "window", Message: "from must be before to"}
	}
	if cfg.Sizing.NotionalPctNAV <= 0 || cfg.Sizing.NotionalPctNAV > 1 {
		return ErrInvalidConfig{Field: "sizing.notional_pct_nav", Message: "must be in (0, 1]"}
	}
	if err := sim.ValidateCosts(sim.Costs{FeesBps: cfg.FeesBps, SlippageBps: cfg.SlippageBps}); err != nil {
		return err
	}
	return sim.ValidateSizing(cfg.Sizing)
}

// parseRules compiles every rule spec, aborting on the first failure with
// the offending expression text included.
func parseRules(specs []RuleSpec) ([]*rule.Rule, error) {
	rules := make([]*rule.Rule, 0, len(specs))
	for i, spec := range specs {
		r, err := rule.Parse(spec.Expr, spec.Weight)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// buildTimeGrid returns every calendar day from from to to inclusive,
// normalized to UTC midnight, de-duplicated and sorted ascending.
func buildTimeGrid(from, to time.Time) []time.Time {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	var grid []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		grid = append(grid, d)
	}
	return grid
}

// loadSignals fetches every agent's records for every grid day. Agents load
// concurrently; the result is one DailySignalData per grid day, keyed by
// date string.
func (e *Engine) loadSignals(ctx context.Context, agents []string, grid []time.Time) (map[string]*types.DailySignalData, error) {
	byDate := make(map[string]*types.DailySignalData, len(grid))
	for _, d := range grid {
		date := d.Format(dateLayout)
		byDate[date] = &types.DailySignalData{
			Date:      date,
			AgentData: make(map[string]map[string]interface{}, len(agents)),
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, agent := range agents {
		agent := agent
		g.Go(func() error {
			for _, d := range grid {
				date := d.Format(dateLayout)
				record, err := e.signals.Signals(gctx, agent, date)
				if err != nil {
					return fmt.Errorf("agent %s on %s: %w", agent, date, err)
				}
				mu.Lock()
				byDate[date].AgentData[agent] = record
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byDate, nil
}

// alignedDay pairs a grid day with its benchmark point.
type alignedDay struct {
	ts    time.Time
	date  string
	bench types.BenchmarkPoint
}

// alignDays keeps grid days that have an exact date-string match in the
// benchmark series, preserving ascending order.
func alignDays(grid []time.Time, benchmark []types.BenchmarkPoint) []alignedDay {
	byDate := make(map[string]types.BenchmarkPoint, len(benchmark))
	for _, p := range benchmark {
		byDate[p.Date] = p
	}

	var aligned []alignedDay
	for _, d := range grid {
		date := d.Format(dateLayout)
		p, ok := byDate[date]
		if !ok {
			continue
		}
		aligned = append(aligned, alignedDay{ts: d, date: date, bench: p})
	}
	return aligned
}

// flattenAgentData collapses per-agent nested records into one dot-path
// keyed map. Agents are applied in configuration order, so later agents
// overwrite colliding keys.
func flattenAgentData(agents []string, byAgent map[string]map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	for _, agent := range agents {
		record, ok := byAgent[agent]
		if !ok || record == nil {
			continue
		}
		for k, v := range rule.Flatten(record) {
			flat[k] = v
		}
	}
	return flat
}
