package eventstudy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/crosscheck/internal/models"
)

// EvidenceExport is the file handed to the narrative layer: the output
// contract record plus the full horizon table so prose generation never
// recomputes a statistic.
type EvidenceExport struct {
	Record       models.VerdictRecord  `json:"record"`
	HorizonTable []models.HorizonStats `json:"horizon_table"`
	Events       []models.Event        `json:"events"`
}

// BuildEvidenceExport assembles the export payload from a completed run.
func BuildEvidenceExport(result *RunResult) EvidenceExport {
	return EvidenceExport{
		Record:       result.Verdict.Record(),
		HorizonTable: result.HorizonStats,
		Events:       result.Events,
	}
}

// ExportToJSON writes the evidence payload to disk.
func ExportToJSON(export EvidenceExport, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evidence export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
