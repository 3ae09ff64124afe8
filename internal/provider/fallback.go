package provider

import (
	"context"
	"time"

	"quantbt/internal/engine"
	"quantbt/internal/logger"
	"quantbt/internal/types"
)

// FallbackBenchmarkSource wraps a benchmark source and substitutes
// deterministic synthetic data when the primary fails. This is a documented
// degraded mode, not an error; set Strict to propagate failures instead.
type FallbackBenchmarkSource struct {
	Primary   engine.BenchmarkSource
	Synthetic *SyntheticBenchmarkSource
	Strict    bool
}

// NewFallbackBenchmarkSource wraps primary with a synthetic fallback.
func NewFallbackBenchmarkSource(primary engine.BenchmarkSource, strict bool) *FallbackBenchmarkSource {
	return &FallbackBenchmarkSource{
		Primary:   primary,
		Synthetic: NewSyntheticBenchmarkSource(),
		Strict:    strict,
	}
}

// History fetches from the primary source, degrading to synthetic data on
// failure unless Strict is set.
func (s *FallbackBenchmarkSource) History(ctx context.Context, benchmark string, from, to time.Time) ([]types.BenchmarkPoint, error) {
	points, err := s.Primary.History(ctx, benchmark, from, to)
	if err == nil {
		return points, nil
	}
	if s.Strict {
		return nil, err
	}
	logger.Warn("benchmark source failed, falling back to synthetic data",
		"benchmark", benchmark, "error", err.Error())
	return s.Synthetic.History(ctx, benchmark, from, to)
}
