package eventstudy

import (
	"fmt"
	"math"

	"github.com/yourusername/crosscheck/internal/models"
)

// tradingDaysPerYear annualizes the realized volatility.
const tradingDaysPerYear = 252

// ComputeFeatures derives per-bar returns, the fast/slow EMA pair, trailing
// realized volatility and the trailing volume average. Pure function of the
// input bars and configuration; returns ErrInsufficientHistory when the full
// requested window cannot be populated.
func ComputeFeatures(bars []models.PriceBar, cfg StudyConfig) ([]models.FeatureRow, error) {
	if len(bars) < cfg.MinBars() {
		return nil, fmt.Errorf("need %d bars, got %d: %w", cfg.MinBars(), len(bars), models.ErrInsufficientHistory)
	}

	rows := make([]models.FeatureRow, len(bars))
	simpleReturns := make([]float64, len(bars))
	for i, bar := range bars {
		rows[i].PriceBar = bar
		if i == 0 {
			continue
		}
		prev := priceForReturn(bars[i-1])
		curr := priceForReturn(bar)
		if prev <= 0 || curr <= 0 {
			continue
		}
		rows[i].SimpleReturn = curr/prev - 1.0
		rows[i].LogReturn = math.Log(curr / prev)
		rows[i].HasReturn = true
		simpleReturns[i] = rows[i].SimpleReturn
	}

	applyEMA(rows, bars, cfg.EMAFastPeriod, func(r *models.FeatureRow, v float64) { r.EMAFast = v })
	applyEMA(rows, bars, cfg.EMASlowPeriod, func(r *models.FeatureRow, v float64) { r.EMASlow = v })
	for i := range rows {
		// Both EMAs carry a full seed window once the slow one does.
		rows[i].EMAReady = i >= cfg.EMASlowPeriod-1
	}

	applyRealizedVol(rows, simpleReturns, cfg.VolWindow)
	applyVolumeAvg(rows, bars, cfg.VolWindow)

	return rows, nil
}

// priceForReturn prefers the split/dividend adjusted close.
func priceForReturn(bar models.PriceBar) float64 {
	if bar.AdjustedClose > 0 {
		return bar.AdjustedClose
	}
	return bar.Close
}

// applyEMA seeds the average with the SMA of the first period closes, then
// recurses with the standard 2/(period+1) smoothing factor.
func applyEMA(rows []models.FeatureRow, bars []models.PriceBar, period int, set func(*models.FeatureRow, float64)) {
	if period <= 0 || len(bars) < period {
		return
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += priceForReturn(bars[i])
	}
	seed /= float64(period)
	set(&rows[period-1], seed)

	alpha := 2.0 / (float64(period) + 1.0)
	ema := seed
	for i := period; i < len(bars); i++ {
		ema = alpha*priceForReturn(bars[i]) + (1.0-alpha)*ema
		set(&rows[i], ema)
	}
}

// applyRealizedVol computes the trailing standard deviation of simple returns
// over the window, annualized by sqrt(252).
func applyRealizedVol(rows []models.FeatureRow, returns []float64, window int) {
	annualize := math.Sqrt(tradingDaysPerYear)
	for i := window; i < len(rows); i++ {
		sample := returns[i-window+1 : i+1]
		rows[i].RealizedVolAnnualized = populationStd(sample) * annualize
		rows[i].VolReady = true
	}
}

func applyVolumeAvg(rows []models.FeatureRow, bars []models.PriceBar, window int) {
	sum := 0.0
	for i, bar := range bars {
		sum += bar.Volume
		if i >= window {
			sum -= bars[i-window].Volume
		}
		n := i + 1
		if n > window {
			n = window
		}
		rows[i].VolumeAvg = sum / float64(n)
	}
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// benchmarkReturns builds a date-keyed simple return lookup for the benchmark
// series. The benchmark needs no moving averages.
func benchmarkReturns(bars []models.PriceBar) map[int64]float64 {
	out := make(map[int64]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := priceForReturn(bars[i-1])
		curr := priceForReturn(bars[i])
		if prev <= 0 || curr <= 0 {
			continue
		}
		out[bars[i].Date.Unix()] = curr/prev - 1.0
	}
	return out
}
