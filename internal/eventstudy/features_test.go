package eventstudy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yourusername/crosscheck/internal/models"
)

func barsFromCloses(closes []float64) []models.PriceBar {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestComputeFeaturesInsufficientHistory(t *testing.T) {
	cfg := DefaultStudyConfig()
	bars := barsFromCloses(make([]float64, cfg.MinBars()-1))
	for i := range bars {
		bars[i].Close = 100
	}

	_, err := ComputeFeatures(bars, cfg)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestComputeFeaturesEMASeedAndReturns(t *testing.T) {
	cfg := DefaultStudyConfig()
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}

	rows, err := ComputeFeatures(barsFromCloses(closes), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The fast EMA seeds with the SMA of the first 20 closes.
	seed := 0.0
	for i := 0; i < cfg.EMAFastPeriod; i++ {
		seed += closes[i]
	}
	seed /= float64(cfg.EMAFastPeriod)
	if math.Abs(rows[cfg.EMAFastPeriod-1].EMAFast-seed) > 1e-9 {
		t.Fatalf("fast EMA seed = %v, want %v", rows[cfg.EMAFastPeriod-1].EMAFast, seed)
	}

	if rows[0].HasReturn {
		t.Fatalf("first bar cannot have a return")
	}
	wantReturn := closes[1]/closes[0] - 1
	if math.Abs(rows[1].SimpleReturn-wantReturn) > 1e-12 {
		t.Fatalf("return = %v, want %v", rows[1].SimpleReturn, wantReturn)
	}

	if rows[cfg.EMASlowPeriod-2].EMAReady {
		t.Fatalf("EMAs should not be ready before the slow seed window fills")
	}
	if !rows[cfg.EMASlowPeriod-1].EMAReady {
		t.Fatalf("EMAs should be ready at the slow seed bar")
	}

	// In a steady uptrend the fast average tracks price more closely.
	last := rows[len(rows)-1]
	if last.EMAFast <= last.EMASlow {
		t.Fatalf("uptrend should put the fast EMA above the slow: %v vs %v", last.EMAFast, last.EMASlow)
	}
}

func TestComputeFeaturesPrefersAdjustedClose(t *testing.T) {
	cfg := DefaultStudyConfig()
	bars := barsFromCloses(make([]float64, cfg.MinBars()))
	for i := range bars {
		bars[i].Close = 200
		bars[i].AdjustedClose = 100
	}
	// A 2:1 split halfway through the raw series leaves adjusted returns flat.
	rows, err := ComputeFeatures(bars, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, row := range rows[1:] {
		if row.SimpleReturn != 0 {
			t.Fatalf("adjusted series is flat, got return %v", row.SimpleReturn)
		}
	}
	if rows[cfg.EMAFastPeriod-1].EMAFast != 100 {
		t.Fatalf("EMA should run on adjusted closes, got %v", rows[cfg.EMAFastPeriod-1].EMAFast)
	}
}

func TestComputeFeaturesRealizedVol(t *testing.T) {
	cfg := DefaultStudyConfig()
	closes := make([]float64, 120)
	for i := range closes {
		// Alternate +1%/-1% moves for a known return dispersion.
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}

	rows, err := ComputeFeatures(barsFromCloses(closes), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := rows[len(rows)-1]
	if !last.VolReady {
		t.Fatalf("vol window should be full at the end of the series")
	}
	if last.RealizedVolAnnualized <= 0 {
		t.Fatalf("alternating returns must produce positive volatility")
	}
	// Daily dispersion just under 1%, annualized by sqrt(252): ballpark 0.16.
	if last.RealizedVolAnnualized < 0.10 || last.RealizedVolAnnualized > 0.25 {
		t.Fatalf("annualized vol %v outside expected range", last.RealizedVolAnnualized)
	}
}
