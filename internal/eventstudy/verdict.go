package eventstudy

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/crosscheck/internal/models"
)

// Run flags attached to the verdict when the evidence is degraded.
const (
	FlagNoValidEvents        = "no_valid_events"
	FlagNoSignificantHorizon = "no_significant_horizon"
	FlagInsufficientSample   = "insufficient_sample"
	FlagInsufficientOverlap  = "insufficient_overlap_fallback"
	FlagSpreadGateFailed     = "spread_gate_failed"
	FlagADVGateFailed        = "adv_gate_failed"
)

// SynthesizeVerdict folds the horizon table and the capacity snapshot into a
// single verdict. The chosen horizon is the significant one with the highest
// median CAR net of cost. The decision rule, evaluated in order:
//
//	SKIP  if no horizon is significant or the spread gate failed
//	BUY   if significant, net median > 0, and both economics gates pass
//	HOLD  otherwise (statistically real but not executable at size)
//
// Total and deterministic: every input resolves to a verdict, never a panic.
func SynthesizeVerdict(runID uuid.UUID, ticker string, stats []models.HorizonStats, capacity models.CapacityStatus, provenance models.ProvenanceInfo, generatedAt time.Time) models.Verdict {
	verdict := models.Verdict{
		RunID:       runID,
		Ticker:      ticker,
		Economics:   capacity,
		Provenance:  provenance,
		GeneratedAt: generatedAt,
	}

	chosen := chooseHorizon(stats)
	if chosen != nil {
		verdict.ChosenHorizon = chosen.HorizonDays
		verdict.Evidence = *chosen
	}

	verdict.Flags = collectFlags(stats, capacity, chosen)

	switch {
	case chosen == nil || !capacity.SpreadOK:
		verdict.Verdict = models.VerdictSkip
	case chosen.MedianCARNet > 0 && capacity.SpreadOK && capacity.ADVOK:
		verdict.Verdict = models.VerdictBuy
	default:
		verdict.Verdict = models.VerdictHold
	}
	return verdict
}

// chooseHorizon picks the significant horizon with the best net median CAR.
func chooseHorizon(stats []models.HorizonStats) *models.HorizonStats {
	var best *models.HorizonStats
	for i := range stats {
		hs := &stats[i]
		if !hs.Significant {
			continue
		}
		if best == nil || hs.MedianCARNet > best.MedianCARNet {
			best = hs
		}
	}
	return best
}

func collectFlags(stats []models.HorizonStats, capacity models.CapacityStatus, chosen *models.HorizonStats) []string {
	var flags []string
	if len(stats) == 0 {
		flags = append(flags, FlagNoValidEvents)
	} else if chosen == nil {
		flags = append(flags, FlagNoSignificantHorizon)
	}
	for _, hs := range stats {
		if hs.InsufficientSample {
			flags = append(flags, FlagInsufficientSample)
			break
		}
	}
	if !capacity.SpreadOK {
		flags = append(flags, FlagSpreadGateFailed)
	}
	if !capacity.ADVOK {
		flags = append(flags, FlagADVGateFailed)
	}
	return flags
}
