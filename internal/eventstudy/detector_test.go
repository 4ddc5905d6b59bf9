package eventstudy

import (
	"testing"
	"time"

	"github.com/yourusername/crosscheck/internal/models"
)

// rowsFromSigns builds feature rows where each entry places the fast EMA
// above (+1) or below (-1) the slow EMA.
func rowsFromSigns(signs []int) []models.FeatureRow {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]models.FeatureRow, len(signs))
	for i, sign := range signs {
		rows[i] = models.FeatureRow{
			PriceBar: models.PriceBar{
				Date:  base.AddDate(0, 0, i),
				Close: 100,
			},
			EMAFast:               100 + float64(sign),
			EMASlow:               100,
			EMAReady:              true,
			RealizedVolAnnualized: 0.20,
			VolReady:              true,
		}
	}
	return rows
}

func repeatSigns(sign, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = sign
	}
	return out
}

func TestDetectEventsSingleGoldenCross(t *testing.T) {
	signs := append(repeatSigns(-1, 5), repeatSigns(1, 55)...)
	events := DetectEvents(rowsFromSigns(signs), DefaultStudyConfig())

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Index != 5 {
		t.Fatalf("expected cross at index 5, got %d", e.Index)
	}
	if e.Kind != models.EventBullishCross {
		t.Fatalf("expected bullish cross, got %s", e.Kind)
	}
	if !e.Valid || !e.PersistenceOK || !e.DedupOK || e.OppositeConflict {
		t.Fatalf("expected fully valid event, got %+v", e)
	}
}

func TestDetectEventsOppositeCrossesBothInvalid(t *testing.T) {
	// Up at index 3, back down at index 4: an ambiguous one-bar reversal.
	signs := append([]int{-1, -1, -1, 1}, repeatSigns(-1, 40)...)
	events := DetectEvents(rowsFromSigns(signs), DefaultStudyConfig())

	if len(events) != 2 {
		t.Fatalf("expected 2 raw events, got %d", len(events))
	}
	for _, e := range events {
		if !e.OppositeConflict {
			t.Fatalf("expected opposite conflict flag on event at %d", e.Index)
		}
		if e.Valid {
			t.Fatalf("event at %d should be invalid", e.Index)
		}
	}
}

func TestDetectEventsCooldownRejectsLaterEvent(t *testing.T) {
	// Crosses at 5 and 15; the second lands inside the 20-day cooldown
	// measured from the first accepted event.
	signs := append(repeatSigns(-1, 5), repeatSigns(1, 10)...)
	signs = append(signs, repeatSigns(-1, 45)...)
	events := DetectEvents(rowsFromSigns(signs), DefaultStudyConfig())

	if len(events) != 2 {
		t.Fatalf("expected 2 raw events, got %d", len(events))
	}
	if !events[0].Valid {
		t.Fatalf("first event should stay valid: %+v", events[0])
	}
	if events[1].Valid {
		t.Fatalf("second event should be rejected by cooldown: %+v", events[1])
	}
	if !events[1].PersistenceOK {
		t.Fatalf("second event should pass persistence")
	}
	if events[1].DedupOK {
		t.Fatalf("second event should fail the cooldown gate")
	}
}

func TestDetectEventsCooldownAnchorsOnAcceptedEvent(t *testing.T) {
	// Crosses at 5, 15, and 40. The one at 15 is inside the cooldown of the
	// accepted event at 5, so it does not reset the clock; 40 is 35 bars
	// after the last accepted event and is valid again.
	signs := append(repeatSigns(-1, 5), repeatSigns(1, 10)...)
	signs = append(signs, repeatSigns(-1, 25)...)
	signs = append(signs, repeatSigns(1, 30)...)
	events := DetectEvents(rowsFromSigns(signs), DefaultStudyConfig())

	if len(events) != 3 {
		t.Fatalf("expected 3 raw events, got %d", len(events))
	}
	wantValid := []bool{true, false, true}
	for i, want := range wantValid {
		if events[i].Valid != want {
			t.Fatalf("event %d at index %d: valid=%v, want %v", i, events[i].Index, events[i].Valid, want)
		}
	}
}

func TestDetectEventsPersistenceRequiresConfirmation(t *testing.T) {
	// The cross at the end of history has no bars left to confirm it.
	signs := append(repeatSigns(-1, 58), 1, 1)
	events := DetectEvents(rowsFromSigns(signs), DefaultStudyConfig())

	if len(events) != 1 {
		t.Fatalf("expected 1 raw event, got %d", len(events))
	}
	if events[0].PersistenceOK || events[0].Valid {
		t.Fatalf("unconfirmed cross should not be persistent: %+v", events[0])
	}
}

func TestFastAboveTieBreak(t *testing.T) {
	row := models.FeatureRow{EMAFast: 100, EMASlow: 100}
	if fastAbove(row) {
		t.Fatalf("zero separation must count as not above")
	}
}

func TestDetectEventsSkipsUnseededBars(t *testing.T) {
	signs := append(repeatSigns(-1, 5), repeatSigns(1, 10)...)
	rows := rowsFromSigns(signs)
	for i := range rows {
		rows[i].EMAReady = false
	}
	if events := DetectEvents(rows, DefaultStudyConfig()); len(events) != 0 {
		t.Fatalf("expected no events before the slow EMA is seeded, got %d", len(events))
	}
}
