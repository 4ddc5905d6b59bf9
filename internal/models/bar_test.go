package models

import (
	"errors"
	"testing"
	"time"
)

func validSeries() *BarSeries {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &BarSeries{
		Ticker: "AAPL",
		Source: ProvenanceProvider,
		Bars: []PriceBar{
			{Date: base, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1e6},
			{Date: base.AddDate(0, 0, 1), Open: 100.5, High: 102, Low: 100, Close: 101.2, Volume: 1.1e6},
		},
	}
}

func TestBarSeriesValidate(t *testing.T) {
	if err := validSeries().Validate(); err != nil {
		t.Fatalf("valid series rejected: %v", err)
	}
}

func TestBarSeriesValidateNilReceiver(t *testing.T) {
	var s *BarSeries
	err := s.Validate()
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("nil series must report ErrInsufficientHistory, got %v", err)
	}
}

func TestBarSeriesValidateEmpty(t *testing.T) {
	s := &BarSeries{Ticker: "AAPL"}
	if err := s.Validate(); !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("empty series must report ErrInsufficientHistory, got %v", err)
	}
}

func TestBarSeriesValidateUnorderedDates(t *testing.T) {
	s := validSeries()
	s.Bars[1].Date = s.Bars[0].Date
	if err := s.Validate(); err == nil {
		t.Fatalf("duplicate dates must be rejected")
	}
}

func TestBarSeriesValidateNegativeValue(t *testing.T) {
	s := validSeries()
	s.Bars[1].Volume = -1
	if err := s.Validate(); err == nil {
		t.Fatalf("negative volume must be rejected")
	}
}

func TestProvenanceTrusted(t *testing.T) {
	cases := []struct {
		source Provenance
		want   bool
	}{
		{ProvenanceCache, true},
		{ProvenanceProvider, true},
		{"", false},
		{"mock", false},
		{"synthetic", false},
	}
	for _, tc := range cases {
		if got := tc.source.Trusted(); got != tc.want {
			t.Fatalf("Trusted(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestQuoteSpreadBps(t *testing.T) {
	q := &Quote{Ticker: "AAPL", Bid: 99.9, Ask: 100.1}
	if got := q.SpreadBps(); got < 19.99 || got > 20.01 {
		t.Fatalf("spread = %v bps, want ~20", got)
	}

	crossed := &Quote{Ticker: "AAPL", Bid: 100.1, Ask: 99.9}
	if crossed.SpreadBps() != 0 {
		t.Fatalf("crossed quote must report zero spread")
	}
	var nilQuote *Quote
	if nilQuote.SpreadBps() != 0 {
		t.Fatalf("nil quote must report zero spread")
	}
}
