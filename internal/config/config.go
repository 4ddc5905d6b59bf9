// Package config provides configuration management for the Crosscheck engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Provider ProviderConfig `mapstructure:"provider" validate:"required"`
	Quotes   QuotesConfig   `mapstructure:"quotes"`
	Study    StudyConfig    `mapstructure:"study" validate:"required"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Health   HealthConfig   `mapstructure:"health"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. Optional: the
// batch CLI can run purely from the provider.
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// ProviderConfig represents the market-data provider configuration
type ProviderConfig struct {
	Name            string  `mapstructure:"name" validate:"required"`
	BaseURL         string  `mapstructure:"base_url" validate:"required,url"`
	APIKey          string  `mapstructure:"api_key"`
	Benchmark       string  `mapstructure:"benchmark" validate:"required"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// QuotesConfig represents the optional live bid/ask feed
type QuotesConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	StreamURL string `mapstructure:"stream_url"`
	APIKey    string `mapstructure:"api_key"`
}

// StudyConfig represents the event-study engine configuration
type StudyConfig struct {
	EMAFastPeriod   int   `mapstructure:"ema_fast_period" validate:"required,gt=0"`
	EMASlowPeriod   int   `mapstructure:"ema_slow_period" validate:"required,gt=0"`
	VolWindow       int   `mapstructure:"vol_window" validate:"required,gte=2"`
	PersistenceBars int   `mapstructure:"persistence_bars" validate:"required,gte=1"`
	CooldownDays    int   `mapstructure:"cooldown_days" validate:"gte=0"`
	Horizons        []int `mapstructure:"horizons" validate:"required,min=1,dive,gt=0"`
	EstimationStart int   `mapstructure:"estimation_start" validate:"required,lt=0"`
	EstimationEnd   int   `mapstructure:"estimation_end" validate:"required,lt=0"`
	MinOverlapBars  int   `mapstructure:"min_overlap_bars" validate:"required,gte=2"`

	Costs    CostConfig     `mapstructure:"costs" validate:"required"`
	Capacity CapacityConfig `mapstructure:"capacity" validate:"required"`

	FDRAlpha            float64 `mapstructure:"fdr_alpha" validate:"required,gt=0,lt=1"`
	BootstrapIterations int     `mapstructure:"bootstrap_iterations" validate:"required,gte=100"`
	BootstrapSeed       int64   `mapstructure:"bootstrap_seed"`
	MaxParallelFits     int     `mapstructure:"max_parallel_fits" validate:"gte=0"`
}

// CostConfig represents round-trip transaction cost components in basis points
type CostConfig struct {
	SpreadBps     float64 `mapstructure:"spread_bps" validate:"gte=0"`
	SlippageBps   float64 `mapstructure:"slippage_bps" validate:"gte=0"`
	CommissionBps float64 `mapstructure:"commission_bps" validate:"gte=0"`
}

// CapacityConfig represents the economics gate thresholds
type CapacityConfig struct {
	MaxPositionPctADV float64 `mapstructure:"max_position_pct_adv" validate:"required,gt=0,lte=100"`
	MinADVUSD         float64 `mapstructure:"min_adv_usd" validate:"gte=0"`
	MaxSpreadBps      float64 `mapstructure:"max_spread_bps" validate:"required,gt=0"`
	SpreadWindowBars  int     `mapstructure:"spread_window_bars" validate:"required,gte=1"`
	ADVWindowBars     int     `mapstructure:"adv_window_bars" validate:"required,gte=1"`
}

// ScanConfig represents the recurring multi-ticker scan daemon configuration
type ScanConfig struct {
	Tickers         []string `mapstructure:"tickers"`
	CronSchedule    string   `mapstructure:"cron_schedule"`
	LookbackDays    int      `mapstructure:"lookback_days" validate:"omitempty,gte=200"`
	ParallelTickers int      `mapstructure:"parallel_tickers" validate:"omitempty,gt=0"`
	OutputDir       string   `mapstructure:"output_dir"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health check server configuration
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
