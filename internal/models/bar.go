package models

import (
	"fmt"
	"time"
)

// Provenance identifies where a bar series came from.
type Provenance string

const (
	ProvenanceCache    Provenance = "cache"
	ProvenanceProvider Provenance = "provider"
)

// Trusted reports whether the provenance tag is one the engine accepts.
// Anything else (empty, "mock", "synthetic", ...) must refuse to run.
func (p Provenance) Trusted() bool {
	return p == ProvenanceCache || p == ProvenanceProvider
}

// PriceBar is a single daily OHLCV observation. Immutable once loaded.
type PriceBar struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        float64   `json:"volume"`
}

// BarSeries is an ordered daily bar history for one instrument.
type BarSeries struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
	Source Provenance `json:"source"`
}

// Validate checks the structural input contract: strictly increasing unique
// dates and no negative prices or volumes.
func (s *BarSeries) Validate() error {
	if s == nil {
		return fmt.Errorf("nil bar series: %w", ErrInsufficientHistory)
	}
	if len(s.Bars) == 0 {
		return fmt.Errorf("%s: empty bar series: %w", s.Ticker, ErrInsufficientHistory)
	}
	for i, bar := range s.Bars {
		if bar.Open < 0 || bar.High < 0 || bar.Low < 0 || bar.Close < 0 || bar.AdjustedClose < 0 || bar.Volume < 0 {
			return fmt.Errorf("%s: negative value at %s", s.Ticker, bar.Date.Format("2006-01-02"))
		}
		if i > 0 && !s.Bars[i-1].Date.Before(bar.Date) {
			return fmt.Errorf("%s: dates not strictly increasing at %s", s.Ticker, bar.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// DateRange returns the first and last bar dates.
func (s *BarSeries) DateRange() (time.Time, time.Time) {
	if len(s.Bars) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Bars[0].Date, s.Bars[len(s.Bars)-1].Date
}

// Quote is an optional live best bid/ask snapshot used by the economics gate
// in preference to the high/low range proxy.
type Quote struct {
	Ticker string    `json:"ticker"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"time"`
}

// SpreadBps returns the quoted spread in basis points of the mid price.
func (q *Quote) SpreadBps() float64 {
	if q == nil || q.Bid <= 0 || q.Ask <= q.Bid {
		return 0
	}
	mid := (q.Bid + q.Ask) / 2.0
	return 10000.0 * (q.Ask - q.Bid) / mid
}
