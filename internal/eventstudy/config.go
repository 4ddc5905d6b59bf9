package eventstudy

import (
	"fmt"
	"sort"

	"github.com/yourusername/crosscheck/internal/config"
)

// StudyConfig enumerates every knob of the event-study pipeline. It is
// validated once at run start; nothing in the core reads configuration by ad
// hoc lookup.
type StudyConfig struct {
	EMAFastPeriod   int
	EMASlowPeriod   int
	VolWindow       int
	PersistenceBars int
	CooldownDays    int
	Horizons        []int

	// Estimation window offsets relative to the event bar (both negative).
	EstimationStart int
	EstimationEnd   int
	MinOverlapBars  int

	// Round-trip cost components, basis points.
	SpreadCostBps     float64
	SlippageCostBps   float64
	CommissionCostBps float64

	// Capacity gates.
	MaxPositionPctADV float64
	MinADVUSD         float64
	MaxSpreadBps      float64
	SpreadWindowBars  int
	ADVWindowBars     int

	FDRAlpha            float64
	BootstrapIterations int
	BootstrapSeed       int64

	// MaxParallelFits bounds the per-event worker pool. <=1 disables
	// concurrency.
	MaxParallelFits int
}

// DefaultStudyConfig returns the documented defaults.
func DefaultStudyConfig() StudyConfig {
	return StudyConfig{
		EMAFastPeriod:       20,
		EMASlowPeriod:       50,
		VolWindow:           20,
		PersistenceBars:     3,
		CooldownDays:        20,
		Horizons:            []int{1, 3, 5, 10, 20},
		EstimationStart:     -60,
		EstimationEnd:       -6,
		MinOverlapBars:      120,
		SpreadCostBps:       5,
		SlippageCostBps:     3,
		CommissionCostBps:   2,
		MaxPositionPctADV:   1.0,
		MinADVUSD:           1_000_000,
		MaxSpreadBps:        25,
		SpreadWindowBars:    30,
		ADVWindowBars:       30,
		FDRAlpha:            0.10,
		BootstrapIterations: 2000,
		BootstrapSeed:       42,
		MaxParallelFits:     4,
	}
}

// FromConfig converts app config to a study config
func FromConfig(cfg *config.StudyConfig) (StudyConfig, error) {
	if cfg == nil {
		return StudyConfig{}, fmt.Errorf("study config is required")
	}

	sc := StudyConfig{
		EMAFastPeriod:       cfg.EMAFastPeriod,
		EMASlowPeriod:       cfg.EMASlowPeriod,
		VolWindow:           cfg.VolWindow,
		PersistenceBars:     cfg.PersistenceBars,
		CooldownDays:        cfg.CooldownDays,
		Horizons:            append([]int(nil), cfg.Horizons...),
		EstimationStart:     cfg.EstimationStart,
		EstimationEnd:       cfg.EstimationEnd,
		MinOverlapBars:      cfg.MinOverlapBars,
		SpreadCostBps:       cfg.Costs.SpreadBps,
		SlippageCostBps:     cfg.Costs.SlippageBps,
		CommissionCostBps:   cfg.Costs.CommissionBps,
		MaxPositionPctADV:   cfg.Capacity.MaxPositionPctADV,
		MinADVUSD:           cfg.Capacity.MinADVUSD,
		MaxSpreadBps:        cfg.Capacity.MaxSpreadBps,
		SpreadWindowBars:    cfg.Capacity.SpreadWindowBars,
		ADVWindowBars:       cfg.Capacity.ADVWindowBars,
		FDRAlpha:            cfg.FDRAlpha,
		BootstrapIterations: cfg.BootstrapIterations,
		BootstrapSeed:       cfg.BootstrapSeed,
		MaxParallelFits:     cfg.MaxParallelFits,
	}
	if err := sc.Validate(); err != nil {
		return StudyConfig{}, err
	}
	return sc, nil
}

// TotalCostBps is the round-trip transaction cost in basis points.
func (c StudyConfig) TotalCostBps() float64 {
	return c.SpreadCostBps + c.SlippageCostBps + c.CommissionCostBps
}

// CostFraction is the round-trip cost as a return fraction.
func (c StudyConfig) CostFraction() float64 {
	return c.TotalCostBps() / 10000.0
}

// MinBars is the shortest history the feature engine accepts.
func (c StudyConfig) MinBars() int {
	return c.VolWindow + c.EMASlowPeriod
}

// Validate rejects structurally impossible configurations.
func (c StudyConfig) Validate() error {
	if c.EMAFastPeriod <= 0 || c.EMASlowPeriod <= 0 {
		return fmt.Errorf("ema periods must be positive")
	}
	if c.EMAFastPeriod >= c.EMASlowPeriod {
		return fmt.Errorf("ema_fast_period (%d) must be shorter than ema_slow_period (%d)", c.EMAFastPeriod, c.EMASlowPeriod)
	}
	if c.VolWindow < 2 {
		return fmt.Errorf("vol_window must be at least 2")
	}
	if c.PersistenceBars < 1 {
		return fmt.Errorf("persistence_bars must be at least 1")
	}
	if c.CooldownDays < 0 {
		return fmt.Errorf("cooldown_days cannot be negative")
	}
	if len(c.Horizons) == 0 {
		return fmt.Errorf("at least one horizon is required")
	}
	if !sort.IntsAreSorted(c.Horizons) {
		return fmt.Errorf("horizons must be sorted ascending")
	}
	for _, h := range c.Horizons {
		if h <= 0 {
			return fmt.Errorf("horizon %d must be positive", h)
		}
	}
	if c.EstimationStart >= c.EstimationEnd || c.EstimationEnd >= 0 {
		return fmt.Errorf("estimation window (%d, %d) must satisfy start < end < 0", c.EstimationStart, c.EstimationEnd)
	}
	if c.MinOverlapBars < 2 {
		return fmt.Errorf("min_overlap_bars must be at least 2")
	}
	if c.SpreadCostBps < 0 || c.SlippageCostBps < 0 || c.CommissionCostBps < 0 {
		return fmt.Errorf("cost components cannot be negative")
	}
	if c.MaxPositionPctADV <= 0 || c.MaxPositionPctADV > 100 {
		return fmt.Errorf("max_position_pct_adv must be in (0, 100]")
	}
	if c.MinADVUSD < 0 {
		return fmt.Errorf("min_adv_usd cannot be negative")
	}
	if c.MaxSpreadBps <= 0 {
		return fmt.Errorf("max_spread_bps must be positive")
	}
	if c.SpreadWindowBars < 1 || c.ADVWindowBars < 1 {
		return fmt.Errorf("trailing windows must be at least 1 bar")
	}
	if c.FDRAlpha <= 0 || c.FDRAlpha >= 1 {
		return fmt.Errorf("fdr_alpha must be in (0, 1)")
	}
	if c.BootstrapIterations < 100 {
		return fmt.Errorf("bootstrap_iterations must be at least 100")
	}
	return nil
}
