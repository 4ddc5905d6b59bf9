package eventstudy

import (
	"github.com/yourusername/crosscheck/internal/models"
)

// ComputeOutcomes produces one EventOutcome per (event, horizon) pair. The
// abnormal return on day t is R_stock_t - (alpha + beta*R_benchmark_t),
// cumulated from the event bar through event+H inclusive. An event with
// fewer than H forward bars remaining is excluded from that horizon, never
// padded or extrapolated. Days where the benchmark series has no return are
// treated as flat benchmark days.
func ComputeOutcomes(rows []models.FeatureRow, bench map[int64]float64, event models.Event, fit models.MarketModelFit, cfg StudyConfig) []models.EventOutcome {
	outcomes := make([]models.EventOutcome, 0, len(cfg.Horizons))
	costFraction := cfg.CostFraction()

	for _, horizon := range cfg.Horizons {
		lastIdx := event.Index + horizon
		if lastIdx >= len(rows) {
			continue
		}
		car := 0.0
		for t := event.Index; t <= lastIdx; t++ {
			if !rows[t].HasReturn {
				continue
			}
			benchReturn := bench[rows[t].Date.Unix()]
			car += rows[t].SimpleReturn - (fit.Alpha + fit.Beta*benchReturn)
		}
		outcomes = append(outcomes, models.EventOutcome{
			EventDate:    event.Date,
			HorizonDays:  horizon,
			CARGross:     car,
			CARNetOfCost: car - costFraction,
		})
	}
	return outcomes
}
