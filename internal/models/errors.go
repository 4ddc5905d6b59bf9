package models

import "errors"

// Custom errors
var (
	// ErrInsufficientHistory means too few bars for the requested feature
	// windows. Fatal: no partial output is produced.
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrUntrustedDataSource means the series provenance is missing or marks
	// synthetic/mock data. Fatal.
	ErrUntrustedDataSource = errors.New("untrusted data source")
	// ErrNoValidEvents is internal: the run still completes with a SKIP
	// verdict and an empty evidence table.
	ErrNoValidEvents = errors.New("no valid crossover events")
	// ErrDegenerateSample is internal: a horizon with n<2 outcomes is marked
	// non-significant and the run continues.
	ErrDegenerateSample = errors.New("degenerate sample for horizon")

	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)
