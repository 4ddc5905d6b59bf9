package models

// FeatureRow is a PriceBar plus derived per-bar features. Every derived field
// uses only information available at or before the bar's close.
type FeatureRow struct {
	PriceBar

	SimpleReturn          float64 `json:"simple_return"`
	LogReturn             float64 `json:"log_return"`
	EMAFast               float64 `json:"ema_fast"`
	EMASlow               float64 `json:"ema_slow"`
	RealizedVolAnnualized float64 `json:"realized_vol_annualized"`
	VolumeAvg             float64 `json:"volume_avg"`

	// HasReturn is false on the first bar, where no prior close exists.
	HasReturn bool `json:"has_return"`
	// EMAReady is true once both moving averages have a full seed window.
	EMAReady bool `json:"ema_ready"`
	// VolReady is true once the trailing volatility window is full.
	VolReady bool `json:"vol_ready"`
}
