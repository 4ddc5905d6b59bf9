package eventstudy

import (
	"github.com/yourusername/crosscheck/internal/models"
)

// minWindowPairs is the point below which the configured estimation window is
// considered sparse (missing benchmark days) and the fit widens to the most
// recent eligible pairs instead.
const minWindowPairs = 20

type returnPair struct {
	offset int
	stock  float64
	bench  float64
}

// FitMarketModel estimates stock_return = alpha + beta*benchmark_return over
// the estimation window strictly before the event. Overlap sufficiency is
// judged on the full common pre-event history, not just the configured
// window; with fewer than MinOverlapBars overlapping observations the model
// falls back to alpha=0, beta=1 (raw excess return) and flags
// SufficientOverlap=false. The fallback is a modeling choice preserved
// exactly; it is never an error.
func FitMarketModel(rows []models.FeatureRow, bench map[int64]float64, eventIdx int, cfg StudyConfig) models.MarketModelFit {
	fit := models.MarketModelFit{
		EventDate: rows[eventIdx].Date,
		Alpha:     0,
		Beta:      1,
	}

	eligible := alignedPairs(rows, bench, eventIdx, cfg.EstimationEnd)
	fit.OverlapBars = len(eligible)
	if fit.OverlapBars < cfg.MinOverlapBars {
		return fit
	}

	window := make([]returnPair, 0, cfg.EstimationEnd-cfg.EstimationStart+1)
	for _, p := range eligible {
		if p.offset >= cfg.EstimationStart {
			window = append(window, p)
		}
	}
	if len(window) < minWindowPairs {
		span := cfg.EstimationEnd - cfg.EstimationStart + 1
		if len(eligible) > span {
			window = eligible[len(eligible)-span:]
		} else {
			window = eligible
		}
	}

	x := make([]float64, len(window))
	y := make([]float64, len(window))
	for i, p := range window {
		x[i] = p.bench
		y[i] = p.stock
	}
	fit.Alpha, fit.Beta = olsFit(x, y)
	fit.SufficientOverlap = true
	return fit
}

// alignedPairs collects (stock, benchmark) return pairs, matched by date, for
// bars at least |endOffset| bars before the event, ordered oldest first.
func alignedPairs(rows []models.FeatureRow, bench map[int64]float64, eventIdx int, endOffset int) []returnPair {
	last := eventIdx + endOffset
	if last >= len(rows) {
		last = len(rows) - 1
	}
	pairs := make([]returnPair, 0, last+1)
	for j := 1; j <= last; j++ {
		if !rows[j].HasReturn {
			continue
		}
		b, ok := bench[rows[j].Date.Unix()]
		if !ok {
			continue
		}
		pairs = append(pairs, returnPair{offset: j - eventIdx, stock: rows[j].SimpleReturn, bench: b})
	}
	return pairs
}
