// Package provider contains concrete implementations of the engine's data
// ports: deterministic synthetic generators, CSV-file sources and a
// fallback wrapper that degrades to synthetic benchmark data.
package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"quantbt/internal/types"
)

const dateLayout = "2006-01-02"

// SyntheticBenchmarkSource generates a deterministic random-walk-with-drift
// price series. The seed derives from the benchmark id and window start, so
// identical requests reproduce identical series.
type SyntheticBenchmarkSource struct {
	Drift      float64 // daily drift, default 0.0005
	Volatility float64 // daily volatility, default 0.02
}

// NewSyntheticBenchmarkSource creates a generator with default drift and
// volatility.
func NewSyntheticBenchmarkSource() *SyntheticBenchmarkSource {
	return &SyntheticBenchmarkSource{Drift: 0.0005, Volatility: 0.02}
}

// basePrice anchors each benchmark's walk at a plausible level.
func basePrice(benchmark string) float64 {
	switch benchmark {
	case "BTC":
		return 50000
	case "ETH":
		return 3000
	default:
		return 1
	}
}

// History generates the daily series for the window. The NAV benchmark is a
// flat base curve: price 1, return 0.
func (s *SyntheticBenchmarkSource) History(ctx context.Context, benchmark string, from, to time.Time) ([]types.BenchmarkPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	drift := s.Drift
	vol := s.Volatility
	if benchmark == "NAV" {
		drift, vol = 0, 0
	}

	rng := rand.New(rand.NewSource(seedFor(benchmark, from)))
	price := basePrice(benchmark)

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	var points []types.BenchmarkPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		ret := drift + vol*boxMuller(rng)
		if len(points) == 0 {
			ret = 0
		}
		price *= 1 + ret
		points = append(points, types.BenchmarkPoint{
			Date:   d.Format(dateLayout),
			Price:  price,
			Return: ret,
		})
	}
	return points, nil
}

// SyntheticSignalSource generates deterministic per-agent signal records,
// seeded per (agent, date) so every run sees the same values.
type SyntheticSignalSource struct{}

// NewSyntheticSignalSource creates a mocked signal source.
func NewSyntheticSignalSource() *SyntheticSignalSource {
	return &SyntheticSignalSource{}
}

// Signals returns a nested record of named values for one agent and day.
func (s *SyntheticSignalSource) Signals(ctx context.Context, agentID, date string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seedFor(agentID, mustParseDate(date))))
	return map[string]interface{}{
		"tvl": map[string]interface{}{
			"change7d": rng.Float64()*0.2 - 0.1,
		},
		"etf": map[string]interface{}{
			"flow": map[string]interface{}{
				"usd": rng.Float64() * 5e8,
			},
		},
		"funding": map[string]interface{}{
			"rate": rng.Float64()*0.002 - 0.001,
		},
		"momentum": map[string]interface{}{
			"rsi": rng.Float64() * 100,
		},
		"score": rng.Float64(),
	}, nil
}

// boxMuller draws one standard normal sample via the Box-Muller transform.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// seedFor derives a stable seed from an identifier and a date.
func seedFor(id string, t time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	h.Write([]byte(t.UTC().Format(dateLayout)))
	return int64(h.Sum64())
}

func mustParseDate(date string) time.Time {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}
