package config

import (
	"fmt"
)

// validModes are the accepted data source modes.
var validModes = map[string]bool{
	"synthetic": true,
	"csv":       true,
}

// Validate checks the loaded configuration for problems that would only
// surface mid-run otherwise. It reports the first error found.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if !validModes[c.Data.Mode] {
		return fmt.Errorf("data.mode must be synthetic or csv, got %q", c.Data.Mode)
	}
	if c.Data.Mode == "csv" && c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required when data.mode is csv")
	}

	seen := make(map[string]bool, len(c.Backtests))
	for i, b := range c.Backtests {
		if b.Name == "" {
			return fmt.Errorf("backtests[%d]: name must not be empty", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("backtests[%d]: duplicate name %q", i, b.Name)
		}
		seen[b.Name] = true
	}

	for i, s := range c.Schedules {
		if s.Backtest == "" {
			return fmt.Errorf("schedules[%d]: backtest must not be empty", i)
		}
		if !seen[s.Backtest] {
			return fmt.Errorf("schedules[%d]: unknown backtest %q", i, s.Backtest)
		}
		if s.Cron == "" {
			return fmt.Errorf("schedules[%d]: cron expression must not be empty", i)
		}
	}

	return nil
}
