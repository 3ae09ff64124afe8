package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quantbt/internal/config"
	"quantbt/internal/engine"
	"quantbt/internal/logger"
	"quantbt/internal/monitor"
	"quantbt/internal/provider"
	"quantbt/internal/sched"
	"quantbt/internal/types"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		runName    = flag.String("run", "", "Run a single named backtest and exit")
		schedule   = flag.Bool("schedule", false, "Run configured backtests on their cron schedules")
		outDir     = flag.String("out", "", "Results output directory (overrides configuration)")
	)
	flag.Parse()

	// .env is optional; variables referenced by the config file may come
	// from it.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	initLogger(cfg.Logging)

	app, err := newApp(cfg)
	if err != nil {
		logger.Fatal("failed to build application", "error", err)
	}

	if *schedule {
		if err := app.runScheduler(); err != nil {
			logger.Fatal("scheduler failed", "error", err)
		}
		return
	}

	if err := app.runOnce(context.Background(), *runName); err != nil {
		logger.Fatal("backtest failed", "error", err)
	}
}

func initLogger(cfg config.LoggingConfig) {
	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.Level),
		Format:     logger.LogFormat(cfg.Format),
		Output:     cfg.Output,
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}

// app wires the engine, data sources, metrics and scheduler together.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	metrics *monitor.Metrics
	server  *monitor.Server
}

func newApp(cfg *config.Config) (*app, error) {
	signals, benchmarks, err := buildSources(cfg.Data)
	if err != nil {
		return nil, err
	}

	metrics, registry := monitor.NewMetrics()
	return &app{
		cfg:     cfg,
		engine:  engine.NewEngine(signals, benchmarks),
		metrics: metrics,
		server:  monitor.NewServer(cfg.Server, cfg.Monitoring, registry),
	}, nil
}

// buildSources selects the data source implementations for the configured
// mode. CSV benchmarks degrade to synthetic data unless strict mode is set.
func buildSources(cfg config.DataConfig) (engine.SignalSource, engine.BenchmarkSource, error) {
	switch cfg.Mode {
	case "synthetic":
		return provider.NewSyntheticSignalSource(), provider.NewSyntheticBenchmarkSource(), nil
	case "csv":
		benchmarks := provider.NewFallbackBenchmarkSource(provider.NewCSVBenchmarkSource(cfg.Dir), cfg.Strict)
		return provider.NewCSVSignalSource(cfg.Dir), benchmarks, nil
	default:
		return nil, nil, fmt.Errorf("unknown data mode %q", cfg.Mode)
	}
}

// RunBacktest executes one backtest, records metrics and writes the results
// file. It satisfies sched.Runner.
func (a *app) RunBacktest(ctx context.Context, cfg engine.Config) (*types.Results, error) {
	start := time.Now()
	results, err := a.engine.Run(ctx, cfg)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		a.metrics.RecordRun(cfg.Name, "failure", elapsed)
		return nil, err
	}
	a.metrics.RecordRun(cfg.Name, "success", elapsed)
	a.metrics.RecordResults(cfg.Name,
		len(results.Equity), results.KPIs.Trades,
		results.KPIs.PnLPct, results.KPIs.Sharpe, results.KPIs.MaxDDPct)

	if err := a.writeResults(cfg.Name, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *app) writeResults(name string, results *types.Results) error {
	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(a.cfg.Output.Dir,
		fmt.Sprintf("%s-%s.json", name, time.Now().UTC().Format("20060102T150405Z")))

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	logger.Info("results written", "backtest", name, "path", path)
	return nil
}

// runOnce executes the named backtest, or every configured backtest when no
// name is given.
func (a *app) runOnce(ctx context.Context, name string) error {
	if name != "" {
		cfg, err := a.cfg.Backtest(name)
		if err != nil {
			return err
		}
		_, err = a.RunBacktest(ctx, cfg)
		return err
	}

	if len(a.cfg.Backtests) == 0 {
		return fmt.Errorf("no backtests configured")
	}
	for _, cfg := range a.cfg.Backtests {
		if _, err := a.RunBacktest(ctx, cfg); err != nil {
			return fmt.Errorf("backtest %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// runScheduler serves metrics and runs backtests on their cron schedules
// until SIGINT or SIGTERM.
func (a *app) runScheduler() error {
	scheduler := sched.NewScheduler(a, a.metrics)
	for _, s := range a.cfg.Schedules {
		cfg, err := a.cfg.Backtest(s.Backtest)
		if err != nil {
			return err
		}
		if err := scheduler.AddSchedule(s, cfg); err != nil {
			return err
		}
	}

	go func() {
		if err := a.server.Start(); err != nil {
			logger.Error("monitoring server failed", "error", err)
		}
	}()
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received signal, shutting down", "signal", sig.String())

	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}
