package engine

import (
	"fmt"
	"math"
	"time"

	"quantbt/internal/types"
)

// Data-quality thresholds. Violations produce non-fatal notes, never
// interrupt the run.
const (
	minCoverage     = 0.8
	minTrades       = 10
	maxDrawdownWarn = -0.5
	minWindowDays   = 30
	maxGapDays      = 7
)

// qualityNotes runs the data-quality checks over a finished run and returns
// human-readable warning strings.
func qualityNotes(cfg Config, grid []time.Time, aligned []alignedDay, kpis types.KPIs) []string {
	notes := make([]string, 0, 4)

	if len(grid) > 0 {
		coverage := float64(len(aligned)) / float64(len(grid))
		if coverage < minCoverage {
			notes = append(notes, fmt.Sprintf(
				"low data coverage: %d of %d calendar days have benchmark data (%.0f%%)",
				len(aligned), len(grid), coverage*100))
		}
	}

	if kpis.Trades < minTrades {
		notes = append(notes, fmt.Sprintf(
			"low trade count: %d trades; results may not be statistically meaningful", kpis.Trades))
	}

	if kpis.MaxDDPct < maxDrawdownWarn {
		notes = append(notes, fmt.Sprintf(
			"high drawdown: max drawdown of %.1f%% exceeds 50%%", math.Abs(kpis.MaxDDPct)*100))
	}

	if len(grid) < minWindowDays {
		notes = append(notes, fmt.Sprintf(
			"short backtest window: %d days; consider at least %d", len(grid), minWindowDays))
	}

	for i := 1; i < len(aligned); i++ {
		gap := aligned[i].ts.Sub(aligned[i-1].ts).Hours() / 24
		if gap > maxGapDays {
			notes = append(notes, fmt.Sprintf(
				"large date gap: %.0f days between %s and %s",
				gap, aligned[i-1].date, aligned[i].date))
			break
		}
	}

	return notes
}
