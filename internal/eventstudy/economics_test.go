package eventstudy

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/crosscheck/internal/models"
)

func flatBars(n int, high, low, close, volume float64) []models.PriceBar {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		}
	}
	return bars
}

func TestComputeCapacityRangeProxy(t *testing.T) {
	cfg := DefaultStudyConfig()
	now := time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC)

	// high-low=0.5 on a 100 close: 10000*0.005/pi ~ 15.9 bps, inside the clip.
	bars := flatBars(40, 100.25, 99.75, 100, 2_000_000)
	status := ComputeCapacity(bars, nil, now, cfg)

	want := 10000.0 * 0.5 / 100.0 / math.Pi
	if math.Abs(status.SpreadBps-want) > 1e-9 {
		t.Fatalf("spread proxy = %v, want %v", status.SpreadBps, want)
	}
	if !status.SpreadOK {
		t.Fatalf("15.9 bps should pass the 25 bps gate")
	}
	if status.LiveQuoteUsed {
		t.Fatalf("no quote was supplied")
	}
}

func TestComputeCapacityProxyClipBounds(t *testing.T) {
	cfg := DefaultStudyConfig()
	now := time.Now().UTC()

	wide := ComputeCapacity(flatBars(40, 101, 99, 100, 2_000_000), nil, now, cfg)
	if wide.SpreadBps != 50 {
		t.Fatalf("wide range should clip to 50 bps, got %v", wide.SpreadBps)
	}
	if wide.SpreadOK {
		t.Fatalf("50 bps must fail the 25 bps gate")
	}

	tight := ComputeCapacity(flatBars(40, 100.005, 99.995, 100, 2_000_000), nil, now, cfg)
	if tight.SpreadBps != 3 {
		t.Fatalf("tight range should clip to the 3 bps floor, got %v", tight.SpreadBps)
	}
}

func TestComputeCapacityPrefersFreshQuote(t *testing.T) {
	cfg := DefaultStudyConfig()
	now := time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC)
	bars := flatBars(40, 101, 99, 100, 2_000_000)

	quote := &models.Quote{Ticker: "AAPL", Bid: 99.9, Ask: 100.1, Time: now.Add(-time.Minute)}
	status := ComputeCapacity(bars, quote, now, cfg)

	if !status.LiveQuoteUsed {
		t.Fatalf("fresh quote should be preferred over the range proxy")
	}
	if math.Abs(status.SpreadBps-20) > 1e-9 {
		t.Fatalf("quoted spread = %v bps, want 20", status.SpreadBps)
	}
	if !status.SpreadOK {
		t.Fatalf("20 bps should pass the gate")
	}
}

func TestComputeCapacityIgnoresStaleQuote(t *testing.T) {
	cfg := DefaultStudyConfig()
	now := time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC)
	bars := flatBars(40, 101, 99, 100, 2_000_000)

	quote := &models.Quote{Ticker: "AAPL", Bid: 99.9, Ask: 100.1, Time: now.Add(-16 * time.Minute)}
	status := ComputeCapacity(bars, quote, now, cfg)

	if status.LiveQuoteUsed {
		t.Fatalf("a 16-minute-old quote must fall back to the range proxy")
	}
	if status.SpreadBps != 50 {
		t.Fatalf("expected the clipped proxy, got %v", status.SpreadBps)
	}
}

func TestComputeCapacityADVGate(t *testing.T) {
	cfg := DefaultStudyConfig()
	now := time.Now().UTC()

	liquid := ComputeCapacity(flatBars(40, 100.25, 99.75, 100, 1_000_000), nil, now, cfg)
	if !liquid.ADVOK {
		t.Fatalf("$100M ADV should pass the $1M floor")
	}
	wantADV := 1_000_000.0 * 100.0
	if math.Abs(liquid.ADVUSD-wantADV) > 1e-6 {
		t.Fatalf("ADV = %v, want %v", liquid.ADVUSD, wantADV)
	}
	wantPosition := wantADV * cfg.MaxPositionPctADV / 100.0
	if math.Abs(liquid.MaxPositionUSD-wantPosition) > 1e-6 {
		t.Fatalf("max position = %v, want %v", liquid.MaxPositionUSD, wantPosition)
	}

	thin := ComputeCapacity(flatBars(40, 100.25, 99.75, 100, 5_000), nil, now, cfg)
	if thin.ADVOK {
		t.Fatalf("$500k ADV should fail the $1M floor")
	}
}
