package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VerdictKind is the terminal decision for a run.
type VerdictKind string

const (
	VerdictBuy  VerdictKind = "BUY"
	VerdictHold VerdictKind = "HOLD"
	VerdictSkip VerdictKind = "SKIP"
)

// ProvenanceInfo records where the evaluated data came from.
type ProvenanceInfo struct {
	Source Provenance `json:"source"`
	Start  time.Time  `json:"start"`
	End    time.Time  `json:"end"`
	NBars  int        `json:"n_bars"`
}

// Verdict is the terminal artifact of a run. Built once, never mutated.
type Verdict struct {
	RunID         uuid.UUID      `json:"run_id"`
	Ticker        string         `json:"ticker"`
	ChosenHorizon int            `json:"chosen_horizon"`
	Verdict       VerdictKind    `json:"verdict"`
	Evidence      HorizonStats   `json:"evidence"`
	Economics     CapacityStatus `json:"economics"`
	Provenance    ProvenanceInfo `json:"provenance"`
	Flags         []string       `json:"flags,omitempty"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// VerdictRecord is the JSON boundary consumed by the narrative layer and the
// dashboard. Consumers treat it as read-only evidence and never recompute
// statistics themselves.
type VerdictRecord struct {
	Ticker     string               `json:"ticker"`
	Verdict    VerdictKind          `json:"verdict"`
	Evidence   EvidenceRecord       `json:"evidence"`
	Economics  EconomicsRecord      `json:"economics"`
	Provenance ProvenanceRecord     `json:"provenance"`
	Flags      []string             `json:"flags,omitempty"`
}

// EvidenceRecord is the chosen horizon's statistics snapshot.
type EvidenceRecord struct {
	Horizon     int        `json:"horizon"`
	EffectSize  float64    `json:"effect_size"`
	CI          [2]float64 `json:"ci"`
	PValue      float64    `json:"p_value"`
	QValue      float64    `json:"q_value"`
	HitRate     float64    `json:"hit_rate"`
	Significant bool       `json:"significant"`
}

// EconomicsRecord is the capacity snapshot plus the chosen net return.
type EconomicsRecord struct {
	NetReturn      float64 `json:"net_return"`
	SpreadBps      float64 `json:"spread_bps"`
	ADVUSD         float64 `json:"adv_usd"`
	MaxPositionUSD float64 `json:"max_position_usd"`
	GatesPassed    bool    `json:"gates_passed"`
}

// ProvenanceRecord describes the evaluated input series.
type ProvenanceRecord struct {
	Source    Provenance `json:"source"`
	DateRange [2]string  `json:"date_range"`
	NBars     int        `json:"n_bars"`
}

// Record flattens the verdict into the output contract shape.
func (v *Verdict) Record() VerdictRecord {
	return VerdictRecord{
		Ticker:  v.Ticker,
		Verdict: v.Verdict,
		Evidence: EvidenceRecord{
			Horizon:     v.ChosenHorizon,
			EffectSize:  v.Evidence.EffectSize,
			CI:          [2]float64{v.Evidence.CILow, v.Evidence.CIHigh},
			PValue:      v.Evidence.PValue,
			QValue:      v.Evidence.QValue,
			HitRate:     v.Evidence.HitRate,
			Significant: v.Evidence.Significant,
		},
		Economics: EconomicsRecord{
			NetReturn:      v.Evidence.MedianCARNet,
			SpreadBps:      v.Economics.SpreadBps,
			ADVUSD:         v.Economics.ADVUSD,
			MaxPositionUSD: v.Economics.MaxPositionUSD,
			GatesPassed:    v.Economics.SpreadOK && v.Economics.ADVOK,
		},
		Provenance: ProvenanceRecord{
			Source: v.Provenance.Source,
			DateRange: [2]string{
				v.Provenance.Start.Format("2006-01-02"),
				v.Provenance.End.Format("2006-01-02"),
			},
			NBars: v.Provenance.NBars,
		},
		Flags: v.Flags,
	}
}

// ToJSON serializes the output record.
func (v *Verdict) ToJSON() string {
	data, _ := json.Marshal(v.Record())
	return string(data)
}
