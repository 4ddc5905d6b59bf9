package eventstudy

import (
	"math"

	"github.com/yourusername/crosscheck/internal/models"
)

// DetectEvents walks the feature rows as a state machine over the sign of
// (ema_fast - ema_slow) and returns every raw crossover, flagged by the
// whipsaw filters. Gates only ever downgrade validity, in this order:
// persistence, cooldown de-duplication, opposite-cross exclusion.
//
// Tie-break rule: a separation of exactly zero counts as "not above", so the
// closed interval belongs to the lower side.
func DetectEvents(rows []models.FeatureRow, cfg StudyConfig) []models.Event {
	raw := rawCrossovers(rows)
	if len(raw) == 0 {
		return nil
	}

	events := make([]models.Event, len(raw))
	for i, idx := range raw {
		events[i] = newEvent(rows, idx)
	}

	markPersistence(events, rows, cfg.PersistenceBars)
	markOppositeConflicts(events, cfg.PersistenceBars)

	// Cooldown is measured from the prior accepted event, not the prior raw
	// signal, so whipsaws are suppressed without permanently blocking
	// legitimate reversals.
	lastValidIdx := math.MinInt32
	for i := range events {
		events[i].DedupOK = events[i].Index-lastValidIdx > cfg.CooldownDays
		events[i].Valid = events[i].PersistenceOK && events[i].DedupOK && !events[i].OppositeConflict
		if events[i].Valid {
			lastValidIdx = events[i].Index
		}
	}
	return events
}

// ValidEvents filters to the events that enter downstream statistics.
func ValidEvents(events []models.Event) []models.Event {
	valid := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Valid {
			valid = append(valid, e)
		}
	}
	return valid
}

// fastAbove applies the tie-break: zero separation is "not above".
func fastAbove(row models.FeatureRow) bool {
	return row.EMAFast-row.EMASlow > 0
}

func rawCrossovers(rows []models.FeatureRow) []int {
	var indices []int
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].EMAReady || !rows[i].EMAReady {
			continue
		}
		if fastAbove(rows[i]) != fastAbove(rows[i-1]) {
			indices = append(indices, i)
		}
	}
	return indices
}

func newEvent(rows []models.FeatureRow, idx int) models.Event {
	row := rows[idx]
	kind := models.EventBearishCross
	if fastAbove(row) {
		kind = models.EventBullishCross
	}
	return models.Event{
		Date:               row.Date,
		Index:              idx,
		Kind:               kind,
		PriceAtEvent:       row.Close,
		SeparationVolUnits: separationInVolUnits(row),
	}
}

// separationInVolUnits expresses |ema_fast - ema_slow| relative to one daily
// standard deviation of price moves at the event bar.
func separationInVolUnits(row models.FeatureRow) float64 {
	if row.Close <= 0 || row.RealizedVolAnnualized <= 0 {
		return 0
	}
	dailyVol := row.RealizedVolAnnualized / math.Sqrt(tradingDaysPerYear)
	if dailyVol == 0 {
		return 0
	}
	return math.Abs(row.EMAFast-row.EMASlow) / row.Close / dailyVol
}

// markPersistence requires the post-crossover sign to hold for at least
// persistenceBars consecutive bars starting at the cross. A cross too close
// to the end of history to confirm is not persistent.
func markPersistence(events []models.Event, rows []models.FeatureRow, persistenceBars int) {
	for i := range events {
		idx := events[i].Index
		want := fastAbove(rows[idx])
		held := 0
		for j := idx; j < len(rows) && fastAbove(rows[j]) == want; j++ {
			held++
			if held >= persistenceBars {
				break
			}
		}
		events[i].PersistenceOK = held >= persistenceBars
	}
}

// markOppositeConflicts invalidates both sides of an ambiguous short-term
// reversal: two raw crossovers of opposite kind within persistenceBars.
func markOppositeConflicts(events []models.Event, persistenceBars int) {
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			gap := events[j].Index - events[i].Index
			if gap > persistenceBars {
				break
			}
			if events[j].Kind != events[i].Kind {
				events[i].OppositeConflict = true
				events[j].OppositeConflict = true
			}
		}
	}
}
