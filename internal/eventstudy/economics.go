package eventstudy

import (
	"math"
	"time"

	"github.com/yourusername/crosscheck/internal/models"
)

// quoteStaleAfter bounds how old a live quote may be before the gate falls
// back to the range proxy.
const quoteStaleAfter = 15 * time.Minute

// ComputeCapacity evaluates the spread and liquidity gates from recent bars,
// independent of event statistics. A fresh live bid/ask quote is preferred
// for the spread; otherwise each bar contributes the range proxy
// clip(10000*(high-low)/close/pi, 3, 50), averaged over the trailing window.
// The pi divisor is an inherited calibration constant, preserved bit for bit
// because changing it silently shifts the pass/fail boundary.
func ComputeCapacity(bars []models.PriceBar, quote *models.Quote, now time.Time, cfg StudyConfig) models.CapacityStatus {
	status := models.CapacityStatus{}

	if quote != nil && quote.SpreadBps() > 0 && now.Sub(quote.Time) <= quoteStaleAfter {
		status.SpreadBps = quote.SpreadBps()
		status.LiveQuoteUsed = true
	} else {
		status.SpreadBps = proxySpreadBps(bars, cfg.SpreadWindowBars)
	}
	status.SpreadOK = status.SpreadBps > 0 && status.SpreadBps <= cfg.MaxSpreadBps

	status.ADVUSD = averageDollarVolume(bars, cfg.ADVWindowBars)
	status.MaxPositionUSD = status.ADVUSD * cfg.MaxPositionPctADV / 100.0
	status.ADVOK = status.ADVUSD >= cfg.MinADVUSD

	return status
}

func proxySpreadBps(bars []models.PriceBar, window int) float64 {
	if len(bars) == 0 {
		return 0
	}
	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	n := 0
	for _, bar := range bars[start:] {
		if bar.Close <= 0 {
			continue
		}
		proxy := 10000.0 * (bar.High - bar.Low) / bar.Close / math.Pi
		sum += clip(proxy, 3, 50)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func averageDollarVolume(bars []models.PriceBar, window int) float64 {
	if len(bars) == 0 {
		return 0
	}
	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	recent := bars[start:]
	volumeSum := 0.0
	priceSum := 0.0
	for _, bar := range recent {
		volumeSum += bar.Volume
		priceSum += bar.Close
	}
	n := float64(len(recent))
	return (volumeSum / n) * (priceSum / n)
}
