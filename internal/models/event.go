package models

import "time"

// EventKind classifies a moving-average crossover.
type EventKind string

const (
	EventBullishCross EventKind = "BULLISH_CROSS"
	EventBearishCross EventKind = "BEARISH_CROSS"
)

// Event is a detected crossover. Created once by the detector and immutable
// thereafter; only events with Valid=true enter downstream statistics.
type Event struct {
	Date               time.Time `json:"date"`
	Index              int       `json:"index"`
	Kind               EventKind `json:"kind"`
	PriceAtEvent       float64   `json:"price_at_event"`
	SeparationVolUnits float64   `json:"separation_in_vol_units"`
	PersistenceOK      bool      `json:"persistence_ok"`
	DedupOK            bool      `json:"dedup_ok"`
	OppositeConflict   bool      `json:"opposite_conflict"`
	Valid              bool      `json:"valid"`
}
