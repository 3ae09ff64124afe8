package sim

// ErrInvalidConfig reports a simulator configuration violation.
type ErrInvalidConfig struct {
	Field   string
	Message string
}

func (e ErrInvalidConfig) Error() string {
	return "invalid simulator config: " + e.Field + " - " + e.Message
}

// ValidateCosts checks that fee and slippage rates lie in [0, 1000] bps.
func ValidateCosts(c Costs) error {
	if c.FeesBps < 0 || c.FeesBps > 1000 {
		return ErrInvalidConfig{Field: "fees_bps", Message: "must be in [0, 1000]"}
	}
	if c.SlippageBps < 0 || c.SlippageBps > 1000 {
		return ErrInvalidConfig{Field: "slippage_bps", Message: "must be in [0, 1000]"}
	}
	return nil
}

// ValidateSizing checks the sizing constraints: NotionalPctNAV in (0, 1] and
// MinPosition <= MaxPosition when both are given.
func ValidateSizing(s Sizing) error {
	if s.NotionalPctNAV <= 0 || s.NotionalPctNAV > 1 {
		return ErrInvalidConfig{Field: "notional_pct_nav", Message: "must be in (0, 1]"}
	}
	if s.MinPosition != 0 && s.MaxPosition != 0 && s.MinPosition > s.MaxPosition {
		return ErrInvalidConfig{Field: "min_position", Message: "must not exceed max_position"}
	}
	return nil
}

// ValidateConfig checks a complete simulator configuration.
func ValidateConfig(c Config) error {
	if err := ValidateCosts(c.Costs); err != nil {
		return err
	}
	return ValidateSizing(c.Sizing)
}
