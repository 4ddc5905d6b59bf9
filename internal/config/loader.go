// Package config provides configuration management for the Crosscheck engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields, tolerating a missing config file.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If the file doesn't exist, continue with defaults and environment.

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CROSSCHECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults enumerates every recognized option with a default, so a
// minimal config file (or none at all in development) still yields a
// complete, validated configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "crosscheck")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("provider.name", "ohlcv_api")
	v.SetDefault("provider.base_url", "https://data.example.com/v1")
	v.SetDefault("provider.benchmark", "SPY")
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.max_retries", 5)
	v.SetDefault("provider.rate_limit", 5.0)
	v.SetDefault("provider.cache_ttl_seconds", 900)
	v.SetDefault("provider.cache_max_size", 512)

	v.SetDefault("study.ema_fast_period", 20)
	v.SetDefault("study.ema_slow_period", 50)
	v.SetDefault("study.vol_window", 20)
	v.SetDefault("study.persistence_bars", 3)
	v.SetDefault("study.cooldown_days", 20)
	v.SetDefault("study.horizons", []int{1, 3, 5, 10, 20})
	v.SetDefault("study.estimation_start", -60)
	v.SetDefault("study.estimation_end", -6)
	v.SetDefault("study.min_overlap_bars", 120)
	v.SetDefault("study.costs.spread_bps", 5)
	v.SetDefault("study.costs.slippage_bps", 3)
	v.SetDefault("study.costs.commission_bps", 2)
	v.SetDefault("study.capacity.max_position_pct_adv", 1.0)
	v.SetDefault("study.capacity.min_adv_usd", 1000000)
	v.SetDefault("study.capacity.max_spread_bps", 25)
	v.SetDefault("study.capacity.spread_window_bars", 30)
	v.SetDefault("study.capacity.adv_window_bars", 30)
	v.SetDefault("study.fdr_alpha", 0.10)
	v.SetDefault("study.bootstrap_iterations", 2000)
	v.SetDefault("study.bootstrap_seed", 42)
	v.SetDefault("study.max_parallel_fits", 4)

	// No default cron schedule: scanning is opt-in and requires tickers.
	v.SetDefault("scan.lookback_days", 730)
	v.SetDefault("scan.parallel_tickers", 4)
	v.SetDefault("scan.output_dir", "./output")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", "8081")
}
