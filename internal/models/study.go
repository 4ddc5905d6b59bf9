package models

import "time"

// MarketModelFit is the per-event expected-return model. When fewer than the
// required overlapping observations exist the fit degrades to alpha=0, beta=1
// (raw excess return vs. benchmark) with SufficientOverlap=false.
type MarketModelFit struct {
	EventDate         time.Time `json:"event_date"`
	Alpha             float64   `json:"alpha"`
	Beta              float64   `json:"beta"`
	OverlapBars       int       `json:"overlap_bars"`
	SufficientOverlap bool      `json:"sufficient_overlap"`
}

// EventOutcome is one (event, horizon) cumulative abnormal return.
type EventOutcome struct {
	EventDate    time.Time `json:"event_date"`
	HorizonDays  int       `json:"horizon_days"`
	CARGross     float64   `json:"car_gross"`
	CARNetOfCost float64   `json:"car_net_of_cost"`
}

// HorizonStats aggregates all outcomes sharing a horizon. Significance is
// decided on the FDR-corrected q-value, never the raw p-value.
type HorizonStats struct {
	HorizonDays        int     `json:"horizon_days"`
	N                  int     `json:"n"`
	MeanCAR            float64 `json:"mean_car"`
	MedianCAR          float64 `json:"median_car"`
	MedianCARNet       float64 `json:"median_car_net"`
	StdCAR             float64 `json:"std_car"`
	EffectSize         float64 `json:"effect_size"`
	PValue             float64 `json:"p_value"`
	QValue             float64 `json:"q_value"`
	CILow              float64 `json:"ci_low"`
	CIHigh             float64 `json:"ci_high"`
	HitRate            float64 `json:"hit_rate"`
	Significant        bool    `json:"significant"`
	InsufficientSample bool    `json:"insufficient_sample"`
}

// EffectBucket labels the effect size for human-readable interpretation only;
// it never feeds the decision rule.
func (h HorizonStats) EffectBucket() string {
	abs := h.EffectSize
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > 0.3:
		return "LARGE"
	case abs >= 0.1:
		return "MEDIUM"
	default:
		return "SMALL"
	}
}

// CapacityStatus is the once-per-run economics snapshot, computed from recent
// bars independently of event statistics. Values are reported even when a
// gate fails, to support explanation.
type CapacityStatus struct {
	SpreadBps      float64 `json:"spread_bps"`
	SpreadOK       bool    `json:"spread_ok"`
	ADVUSD         float64 `json:"adv_usd"`
	MaxPositionUSD float64 `json:"max_position_usd"`
	ADVOK          bool    `json:"adv_ok"`
	LiveQuoteUsed  bool    `json:"live_quote_used"`
}
