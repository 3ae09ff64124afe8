package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"quantbt/internal/engine"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Data       DataConfig       `yaml:"data"`
	Output     OutputConfig     `yaml:"output"`
	Backtests  []engine.Config  `yaml:"backtests"`
	Schedules  []ScheduleConfig `yaml:"schedules"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// ServerConfig represents the metrics/health server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// MonitoringConfig represents monitoring configuration
type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPath    string `yaml:"prometheus_path"`
}

// DataConfig represents data source configuration. Mode selects where
// signal and benchmark data come from: "synthetic" or "csv".
type DataConfig struct {
	Mode   string `yaml:"mode"`
	Dir    string `yaml:"dir"`
	Strict bool   `yaml:"strict"`
}

// OutputConfig represents results output configuration
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ScheduleConfig represents one scheduled backtest run
type ScheduleConfig struct {
	Backtest string `yaml:"backtest"`
	Cron     string `yaml:"cron"`
	Enabled  bool   `yaml:"enabled"`
}

// envRe matches ${VAR} and ${VAR:default} placeholders.
var envRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// expandEnv substitutes ${VAR} placeholders with environment values; a
// ${VAR:default} placeholder falls back to default when VAR is unset.
func expandEnv(data []byte) []byte {
	return envRe.ReplaceAllFunc(data, func(match []byte) []byte {
		groups := envRe.FindSubmatch(match)
		if value := os.Getenv(string(groups[1])); value != "" {
			return []byte(value)
		}
		return groups[2]
	})
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(expandEnv(data), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quantbt"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Monitoring.PrometheusPath == "" {
		c.Monitoring.PrometheusPath = "/metrics"
	}
	if c.Data.Mode == "" {
		c.Data.Mode = "synthetic"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "results"
	}
}

// Backtest returns the named backtest configuration.
func (c *Config) Backtest(name string) (engine.Config, error) {
	for _, b := range c.Backtests {
		if b.Name == name {
			return b, nil
		}
	}
	return engine.Config{}, fmt.Errorf("backtest %q not found in configuration", name)
}
